package olog

import (
	"sync"
	"sync/atomic"
)

// Callsite is the caller-owned registration slot for one source location.
// Its zero value is ready to use; the first invocation through it analyzes
// the format string, fixes the parameter sizes, and registers the
// descriptor. After that the id and descriptor are stable for the process
// lifetime. The invocation front end keeps one Callsite per source location
// (the Go analog of the C++ static id at the macro site).
type Callsite struct {
	id   atomic.Int32
	info atomic.Pointer[StaticLogInfo]
}

// logRegistry is the process-wide append-only mapping from callsite to
// descriptor. A callsite's log id equals its registration index and never
// changes. Producers register under the mutex, once per callsite ever; the
// consumer grows a private shadow copy on demand and reads that lock-free.
type logRegistry struct {
	mu         sync.Mutex
	registered []*StaticLogInfo
}

// register assigns an id to the callsite, publishing the descriptor on
// first call. Concurrent first calls from several goroutines race benignly:
// the mutex picks one winner and the rest observe its descriptor. The
// descriptor pointer is published last so a non-nil load implies a valid id.
func (r *logRegistry) register(cs *Callsite, info *StaticLogInfo) *StaticLogInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	if registered := cs.info.Load(); registered != nil {
		return registered
	}
	cs.id.Store(int32(len(r.registered)))
	r.registered = append(r.registered, info)
	cs.info.Store(info)
	return info
}

// refreshShadow copies any entries the shadow has not seen yet and returns
// the grown shadow. Called by the consumer only when a record's log id is
// beyond the shadow's length.
func (r *logRegistry) refreshShadow(shadow []*StaticLogInfo) []*StaticLogInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(shadow); i < len(r.registered); i++ {
		shadow = append(shadow, r.registered[i])
	}
	return shadow
}
