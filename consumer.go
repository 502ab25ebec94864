package olog

import (
	"fmt"
	"os"
	"runtime"
)

// consumerMain is the single background goroutine that drains every staging
// buffer, drives the assembler, and swaps the double buffer. It exits only
// when shutdown has been requested, a full polling pass found no data, and
// no asynchronous write remains outstanding, so every committed record
// reaches the sink.
func (l *Logger) consumerMain() {
	defer close(l.consumerDone)

	asm := newLogAssembler(l.endOfLog)
	asm.setOutput(l.doubleBuffer[l.activeHalf])

	var shadow []*StaticLogInfo

	for {
		didWork := false

		l.producersMu.Lock()
		for i := 0; i < len(l.producerBuffers); i++ {
			sb := l.producerBuffers[i]
			data := sb.peek()
			if len(data) == 0 {
				// A silent buffer may belong to a departed producer.
				if sb.isDestroyable() {
					l.producerBuffers = append(l.producerBuffers[:i], l.producerBuffers[i+1:]...)
					i--
				}
				continue
			}

			didWork = true
			l.producersMu.Unlock()

			consumed := 0
			for consumed < len(data) {
				rec := data[consumed:]
				logID, infoSize, msTimestamp := readRecordHeader(rec)

				if logID >= uint64(len(shadow)) {
					shadow = l.registry.refreshShadow(shadow)
				}
				if logID >= uint64(len(shadow)) || infoSize < recordHeaderSize || infoSize > len(rec) {
					// Corrupt header: resynchronize by skipping what the
					// record claims, or everything readable if the claim
					// is itself unusable.
					skip := infoSize
					if skip < recordHeaderSize || skip > len(rec) {
						skip = len(rec)
					}
					consumed += skip
					sb.consume(skip)
					continue
				}

				info := shadow[logID]
				asm.load(info, rec[recordHeaderSize:infoSize], msTimestamp, sb.id)
				for asm.hasRemaining() {
					asm.step()
					if asm.isFull() {
						l.swapOutputBuffers(asm)
					}
				}
				l.stats.recordsWritten.Add(1)

				consumed += infoSize
				sb.consume(infoSize)
			}

			l.producersMu.Lock()
		}
		l.producersMu.Unlock()

		if asm.bytesWritten() > 0 {
			l.swapOutputBuffers(asm)
		}

		if !didWork {
			if l.shouldExit.Load() {
				if err := l.writer.wait(); err != nil {
					reportWriteError(err)
					l.stats.writeErrors.Add(1)
				}
				return
			}
			runtime.Gosched()
		}
	}
}

// swapOutputBuffers performs the double-buffer swap: wait out the previous
// submission, exchange halves, submit the filled half, and point the
// assembler at the now-idle one.
func (l *Logger) swapOutputBuffers(asm *logAssembler) {
	if err := l.writer.wait(); err != nil {
		reportWriteError(err)
		l.stats.writeErrors.Add(1)
	}

	n := asm.bytesWritten()
	filled := l.doubleBuffer[l.activeHalf][:n]
	l.activeHalf ^= 1

	l.writer.submit(filled)
	l.stats.bufferSwaps.Add(1)
	l.stats.bytesSubmitted.Add(uint64(n))

	asm.setOutput(l.doubleBuffer[l.activeHalf])
}

func reportWriteError(err error) {
	fmt.Fprintf(os.Stderr, "olog: async write failed, log messages may be incomplete: %v\n", err)
}
