package olog

import "io"

// asyncWriter is the asynchronous submission interface the consumer loop
// hands filled output halves to: submit a byte range, learn of completion on
// the next wait. A dedicated goroutine owns the sink, so sink replacement is
// serialized with in-flight writes through the same request channel.
type asyncWriter struct {
	reqs    chan ioRequest
	done    chan error
	stopped chan struct{}

	// Consumer-side bookkeeping: true while a submitted write has not been
	// waited on. Touched only by the consumer goroutine.
	outstanding bool

	// Owned by the I/O goroutine after start.
	sink   io.Writer
	closer io.Closer
}

type ioRequest struct {
	data []byte

	// Sink replacement request when ack is non-nil.
	sink   io.Writer
	closer io.Closer
	ack    chan struct{}
}

func newAsyncWriter(sink io.Writer, closer io.Closer) *asyncWriter {
	w := &asyncWriter{
		reqs:    make(chan ioRequest),
		done:    make(chan error, 1),
		stopped: make(chan struct{}),
		sink:    sink,
		closer:  closer,
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.stopped)
	for req := range w.reqs {
		if req.ack != nil {
			if w.closer != nil {
				w.closer.Close()
			}
			w.sink, w.closer = req.sink, req.closer
			req.ack <- struct{}{}
			continue
		}
		_, err := w.sink.Write(req.data)
		w.done <- err
	}
	if w.closer != nil {
		w.closer.Close()
	}
}

// submit queues one byte range for writing. At most one write may be
// outstanding; the caller waits before the next submit.
func (w *asyncWriter) submit(data []byte) {
	w.reqs <- ioRequest{data: data}
	w.outstanding = true
}

// wait blocks until the outstanding write, if any, completes.
func (w *asyncWriter) wait() error {
	if !w.outstanding {
		return nil
	}
	w.outstanding = false
	return <-w.done
}

// setSink installs a new sink, closing the previous one exactly once. Safe
// to call from any goroutine; ordering with writes is the channel's.
func (w *asyncWriter) setSink(sink io.Writer, closer io.Closer) {
	ack := make(chan struct{})
	w.reqs <- ioRequest{sink: sink, closer: closer, ack: ack}
	<-ack
}

// close stops the I/O goroutine after it drains queued requests and closes
// the current sink's closer, if one was installed. The caller must have
// waited out any outstanding write.
func (w *asyncWriter) close() {
	close(w.reqs)
	<-w.stopped
}
