package sink

import (
	"bufio"
	"context"
	"io"
	"net/url"
	"os"
)

func init() {
	Register("stdout", func(_ *url.URL, _ OpenOptions) (Sink, error) {
		return NewWriterSink(os.Stdout), nil
	})
	Register("discard", func(_ *url.URL, _ OpenOptions) (Sink, error) {
		return Discard{}, nil
	})
}

// WriterSink writes one line per record to an io.Writer, buffered.
// It backs the stdout scheme and the replay command.
type WriterSink struct {
	w *bufio.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: bufio.NewWriter(w)}
}

func (s *WriterSink) Accept(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.w.WriteString(rec.Envelope); err != nil {
		return err
	}
	if err := s.w.WriteByte(' '); err != nil {
		return err
	}
	if _, err := s.w.WriteString(rec.Raw); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

func (s *WriterSink) Flush(context.Context) error {
	return s.w.Flush()
}

func (s *WriterSink) Close() error {
	return s.w.Flush()
}

// Discard swallows every record. Used by dry runs to exercise the full
// fetch and decode path without delivering anything.
type Discard struct{}

func (Discard) Accept(context.Context, Record) error { return nil }
func (Discard) Flush(context.Context) error          { return nil }
func (Discard) Close() error                         { return nil }
