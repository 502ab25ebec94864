package olog

import (
	"runtime"
	"sync/atomic"
)

const (
	// Cache line size for padding between producer- and consumer-owned fields.
	cacheLineSize = 64

	// DefaultStagingBufferSize is the per-producer staging buffer capacity.
	DefaultStagingBufferSize = 1 << 20

	// Spins before the blocking reservation path yields the processor.
	reserveSpinThreshold = 1024
)

// stagingBuffer is a lock-free single-producer single-consumer circular byte
// pipe. The producer deposits variable-sized records; the single consumer
// goroutine reclaims them. Positions are byte offsets into storage.
//
// Ownership discipline: producerPos, endOfData and availableBytes are written
// only by the producer; consumerPos only by the consumer. The three shared
// offsets are published with atomic stores and read with atomic loads, which
// gives the release/acquire ordering the protocol needs.
type stagingBuffer struct {
	storage  []byte
	capacity int64
	id       uint32

	// Set by the owning producer's guard at hand-off time; the buffer is
	// freed by the consumer once it has also been drained.
	shouldBeDestructed atomic.Bool

	_ [cacheLineSize]byte

	// producerPos is the producer's write offset.
	producerPos atomic.Int64

	// endOfData marks the tail of valid data when the producer has wrapped
	// back to the start while the consumer is still behind.
	endOfData atomic.Int64

	// availableBytes is the producer's cached free-space count. Producer
	// private; never read by the consumer.
	availableBytes int64

	_ [cacheLineSize - 8]byte

	// consumerPos is the consumer's read offset.
	consumerPos atomic.Int64

	_ [cacheLineSize - 8]byte
}

func newStagingBuffer(id uint32, capacity int) *stagingBuffer {
	sb := &stagingBuffer{
		storage:        make([]byte, capacity),
		capacity:       int64(capacity),
		id:             id,
		availableBytes: int64(capacity),
	}
	sb.endOfData.Store(sb.capacity)
	return sb
}

// reserve returns a slice of n contiguous writable bytes, or nil when
// blocking is false and no room exists. In blocking mode it spins until the
// consumer frees space; n must then be smaller than the capacity or the spin
// never ends.
func (sb *stagingBuffer) reserve(n int, blocking bool) []byte {
	need := int64(n)
	if need < sb.availableBytes {
		pos := sb.producerPos.Load()
		return sb.storage[pos : pos+need]
	}
	return sb.reserveSlow(need, blocking)
}

// reserveSlow re-reads the consumer offset and, when the linear tail cannot
// hold the request, publishes a wrap: endOfData is stored first so the
// consumer never reads past valid data, then producerPos snaps to the start.
func (sb *stagingBuffer) reserveSlow(need int64, blocking bool) []byte {
	spins := 0
	for sb.availableBytes <= need {
		cons := sb.consumerPos.Load()
		prod := sb.producerPos.Load()

		if cons <= prod {
			sb.availableBytes = sb.capacity - prod

			if sb.availableBytes > need {
				break
			}

			sb.endOfData.Store(prod)

			// Wrapping to the start is only legal when the consumer has
			// moved off it; producerPos == consumerPos must keep meaning
			// "empty".
			if cons != 0 {
				sb.producerPos.Store(0)
				sb.availableBytes = cons
			}
		} else {
			sb.availableBytes = cons - prod
		}

		if sb.availableBytes <= need {
			if !blocking {
				return nil
			}
			spins++
			if spins > reserveSpinThreshold {
				runtime.Gosched()
			}
		}
	}
	pos := sb.producerPos.Load()
	return sb.storage[pos : pos+need]
}

// commit publishes n freshly written bytes to the consumer.
func (sb *stagingBuffer) commit(n int) {
	sb.availableBytes -= int64(n)
	sb.producerPos.Store(sb.producerPos.Load() + int64(n))
}

// peek returns the contiguous readable region at the consumer offset. When
// the producer has wrapped, the slice up to endOfData is returned first;
// once that is drained the consumer offset snaps to the start.
func (sb *stagingBuffer) peek() []byte {
	prod := sb.producerPos.Load()
	cons := sb.consumerPos.Load()

	if prod < cons {
		avail := sb.endOfData.Load() - cons
		if avail > 0 {
			return sb.storage[cons : cons+avail]
		}
		sb.consumerPos.Store(0)
		cons = 0
	}
	return sb.storage[cons:prod]
}

// consume releases n read bytes back to the producer.
func (sb *stagingBuffer) consume(n int) {
	sb.consumerPos.Store(sb.consumerPos.Load() + int64(n))
}

// markForDestruction is called by the producer-side guard when the owning
// producer is done with the buffer.
func (sb *stagingBuffer) markForDestruction() {
	sb.shouldBeDestructed.Store(true)
}

// isDestroyable reports whether the consumer may free the buffer: the
// producer has let go and every committed byte has been consumed.
func (sb *stagingBuffer) isDestroyable() bool {
	return sb.shouldBeDestructed.Load() &&
		sb.consumerPos.Load() == sb.producerPos.Load()
}
