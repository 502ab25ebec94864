// Package olog is a low-latency asynchronous printf-style logger. Producing
// goroutines never block on formatting or I/O: each producer owns a private
// lock-free staging buffer and deposits a compact binary record; a single
// background consumer goroutine reconstructs the text lines and writes them
// through a double-buffered asynchronous file interface.
//
// Format strings are analyzed once per callsite into an immutable descriptor
// that is reused for every subsequent record, so the hot path is a size
// computation, a reservation, and a few raw byte copies.
package olog

import (
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultOutputBufferSize is the size of each half of the consumer's
	// double-buffered output region.
	DefaultOutputBufferSize = 8 << 20

	// DefaultLineEnding terminates every emitted log line.
	DefaultLineEnding = "\r\n"
)

// Logger owns the registry, the producer staging buffers, the consumer
// goroutine, and the double-buffered asynchronous writer.
type Logger struct {
	level atomic.Uint32

	registry logRegistry

	producersMu     sync.Mutex
	producerBuffers []*stagingBuffer
	nextBufferID    uint32

	stagingSize  int
	doubleBuffer [2][]byte
	activeHalf   int
	endOfLog     string

	writer       *asyncWriter
	shouldExit   atomic.Bool
	consumerDone chan struct{}
	closeOnce    sync.Once

	// Pool of producer handles backing the convenience API. A pooled
	// handle is exclusively owned between Get and Put, which preserves the
	// single-producer discipline of its staging buffer.
	pool sync.Pool

	callsites sync.Map // uintptr (caller pc) -> *callsite

	stats counters
}

// New creates a logger with default sizes, an INFO threshold, and stdout as
// the sink (colorized when stdout is a terminal), then starts the consumer
// goroutine. Close must be called to flush and release it.
func New() *Logger {
	return newLogger(DefaultStagingBufferSize, DefaultOutputBufferSize, DefaultLineEnding,
		ConsoleSink(os.Stdout), nil)
}

func newLogger(stagingSize, outputSize int, endOfLog string, sink io.Writer, closer io.Closer) *Logger {
	l := &Logger{
		stagingSize:  stagingSize,
		endOfLog:     endOfLog,
		consumerDone: make(chan struct{}),
	}
	l.level.Store(uint32(LevelInfo))
	l.doubleBuffer[0] = make([]byte, outputSize)
	l.doubleBuffer[1] = make([]byte, outputSize)
	l.writer = newAsyncWriter(sink, closer)
	l.pool.New = func() any { return l.NewProducer() }
	go l.consumerMain()
	return l
}

// SetLevel sets the severity threshold. Records whose severity exceeds the
// threshold are discarded at the callsite. LevelNone disables all output.
// Out-of-range values clamp to LevelDebug.
func (l *Logger) SetLevel(level Level) {
	if level >= numLevels {
		level = numLevels - 1
	}
	l.level.Store(uint32(level))
}

// Level returns the current severity threshold.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// SetOutputFile opens path with create/append/read-write semantics and
// data-sync-on-write and installs it as the sink. On failure the current
// sink is preserved and the error returned. The previous sink is closed
// exactly once, after any in-flight write to it completes.
func (l *Logger) SetOutputFile(path string) error {
	f, err := openLogFile(path)
	if err != nil {
		return err
	}
	l.writer.setSink(f, f)
	return nil
}

// SetSink installs an arbitrary writer as the sink. The previous sink is
// closed only if the logger opened it (SetOutputFile, SetRotatingOutput); w
// itself is never closed by the logger.
func (l *Logger) SetSink(w io.Writer) {
	l.writer.setSink(w, nil)
}

// Close flushes every committed record, stops the consumer and the I/O
// goroutine, and closes the sink if the logger opened it. Records committed
// after Close begins may be lost.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.shouldExit.Store(true)
		<-l.consumerDone
		l.writer.close()
	})
}

// NewProducer allocates a staging buffer for one producing goroutine and
// returns its handle. The handle must be used by a single goroutine at a
// time. Close releases it; a dropped handle is picked up by a finalizer so
// the buffer is still reclaimed by the consumer eventually.
func (l *Logger) NewProducer() *Producer {
	l.producersMu.Lock()
	id := l.nextBufferID
	l.nextBufferID++
	l.producersMu.Unlock()

	// Allocation happens outside the mutex; only the list append needs it.
	sb := newStagingBuffer(id, l.stagingSize)

	l.producersMu.Lock()
	l.producerBuffers = append(l.producerBuffers, sb)
	l.producersMu.Unlock()

	p := &Producer{logger: l, buf: sb, blocking: true}
	runtime.SetFinalizer(p, (*Producer).release)
	return p
}

// numProducerBuffers reports the live staging buffers. Used by tests.
func (l *Logger) numProducerBuffers() int {
	l.producersMu.Lock()
	defer l.producersMu.Unlock()
	return len(l.producerBuffers)
}

// Producer is the per-goroutine logging handle. It owns one staging buffer;
// the buffer outlives the handle and is freed by the consumer once the
// handle is closed (or finalized) and the buffer drained.
type Producer struct {
	logger   *Logger
	buf      *stagingBuffer
	blocking bool

	// Reused scratch for per-record string lengths.
	lens []int
}

// Close marks the staging buffer for destruction. The consumer frees it
// after draining the remaining records. The handle must not be used again.
func (p *Producer) Close() {
	runtime.SetFinalizer(p, nil)
	p.release()
}

func (p *Producer) release() {
	if p.buf != nil {
		p.buf.markForDestruction()
	}
}

// SetBlocking selects the full-buffer policy: blocking (default) spins until
// the consumer frees space and never drops a record; non-blocking drops the
// record and counts it.
func (p *Producer) SetBlocking(blocking bool) {
	p.blocking = blocking
}

// Logf encodes one record and commits it to the staging buffer. cs is the
// caller-owned callsite slot; the first invocation through it analyzes
// format, fixes the parameter sizes from args, and registers the
// descriptor. A malformed format panics at that first invocation — the
// callsite cannot ever log correctly.
func (p *Producer) Logf(cs *Callsite, filename string, line int, severity Level, format string, args ...any) {
	l := p.logger
	if severity > l.Level() {
		return
	}

	info := cs.info.Load()
	if info == nil {
		var ok bool
		info, ok = p.registerCallsite(cs, filename, line, severity, format, args)
		if !ok {
			// The first invocation itself is malformed; registration is
			// withheld so a later correct call can still fix the sizes.
			l.stats.recordsMismatched.Add(1)
			return
		}
	}
	id := cs.id.Load()

	if len(args) != len(info.ParamTypes) {
		// Argument count cannot satisfy the descriptor; reject the record.
		l.stats.recordsMismatched.Add(1)
		return
	}

	if cap(p.lens) < len(args) {
		p.lens = make([]int, len(args))
	}
	lens := p.lens[:len(args)]

	total := argSizes(info, args, lens)
	timestamp := time.Now().UnixMilli()

	dst := p.buf.reserve(total, p.blocking)
	if dst == nil {
		l.stats.recordsDropped.Add(1)
		return
	}
	putRecordHeader(dst, id, total, timestamp)
	encodeArgs(dst[recordHeaderSize:], info, args, lens)
	p.buf.commit(total)
}

// registerCallsite builds and registers the descriptor on the callsite's
// first invocation. Parameter sizes are fixed from this invocation's
// argument types and shared by every later record of the callsite, so a
// descriptor is published only when this invocation's argument count
// matches the format; otherwise nothing is registered and ok is false.
func (p *Producer) registerCallsite(cs *Callsite, filename string, line int, severity Level, format string, args []any) (*StaticLogInfo, bool) {
	info, err := newStaticLogInfo(filename, line, severity, format)
	if err != nil {
		panic(err)
	}
	if len(args) != len(info.ParamTypes) {
		return nil, false
	}
	for i, arg := range args {
		info.ParamSizes[i] = paramStaticSize(arg)
	}
	return p.logger.registry.register(cs, info), true
}

// Errorf logs at ERROR severity, resolving the callsite automatically.
func (p *Producer) Errorf(format string, args ...any) {
	p.logAuto(LevelError, format, args)
}

// Warningf logs at WARNING severity, resolving the callsite automatically.
func (p *Producer) Warningf(format string, args ...any) {
	p.logAuto(LevelWarning, format, args)
}

// Infof logs at INFO severity, resolving the callsite automatically.
func (p *Producer) Infof(format string, args ...any) {
	p.logAuto(LevelInfo, format, args)
}

// Debugf logs at DEBUG severity, resolving the callsite automatically.
func (p *Producer) Debugf(format string, args ...any) {
	p.logAuto(LevelDebug, format, args)
}

func (p *Producer) logAuto(severity Level, format string, args []any) {
	if severity > p.logger.Level() {
		return
	}
	cs := p.logger.callsiteFor(3)
	p.Logf(&cs.cs, cs.file, cs.line, severity, format, args...)
}

// Logger-level convenience API. Each call borrows a pooled producer handle,
// so per-goroutine record ordering is not guaranteed across calls; use an
// explicit Producer when commit order matters.

// Errorf logs at ERROR severity through a pooled producer.
func (l *Logger) Errorf(format string, args ...any) {
	l.logPooled(LevelError, format, args)
}

// Warningf logs at WARNING severity through a pooled producer.
func (l *Logger) Warningf(format string, args ...any) {
	l.logPooled(LevelWarning, format, args)
}

// Infof logs at INFO severity through a pooled producer.
func (l *Logger) Infof(format string, args ...any) {
	l.logPooled(LevelInfo, format, args)
}

// Debugf logs at DEBUG severity through a pooled producer.
func (l *Logger) Debugf(format string, args ...any) {
	l.logPooled(LevelDebug, format, args)
}

func (l *Logger) logPooled(severity Level, format string, args []any) {
	if severity > l.Level() {
		return
	}
	cs := l.callsiteFor(3)
	p := l.pool.Get().(*Producer)
	p.Logf(&cs.cs, cs.file, cs.line, severity, format, args...)
	l.pool.Put(p)
}
