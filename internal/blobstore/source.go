package blobstore

import (
	"context"
	"io"
	"time"
)

// contextReader returns from Read as soon as ctx is done, even when the
// underlying source is blocked. An abandoned read finishes in its goroutine
// and its result is dropped; the reader is unusable after ctx ends.
type contextReader struct {
	ctx     context.Context
	src     io.Reader
	buf     []byte
	results chan sourceRead
}

type sourceRead struct {
	n   int
	err error
}

// newContextReader also hands ctx's deadline to sources that take one, such
// as pipes and network connections, so an abandoned read ends as well.
func newContextReader(ctx context.Context, src io.Reader) *contextReader {
	if deadline, ok := ctx.Deadline(); ok {
		if d, ok := src.(interface{ SetReadDeadline(time.Time) error }); ok {
			// Regular files reject read deadlines; Read selects on ctx for them.
			_ = d.SetReadDeadline(deadline)
		}
	}
	return &contextReader{ctx: ctx, src: src, results: make(chan sourceRead, 1)}
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if cap(r.buf) < len(p) {
		r.buf = make([]byte, len(p))
	}
	buf := r.buf[:len(p)]
	go func() {
		n, err := r.src.Read(buf)
		r.results <- sourceRead{n: n, err: err}
	}()

	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	case res := <-r.results:
		copy(p, buf[:res.n])
		return res.n, res.err
	}
}
