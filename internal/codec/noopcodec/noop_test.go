package noopcodec

import (
	"bytes"
	"io"
	"testing"
)

// trackingBuffer records whether Close was called.
type trackingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *trackingBuffer) Close() error {
	b.closed = true
	return nil
}

func TestWriter_LeavesDestinationOpen(t *testing.T) {
	dst := &trackingBuffer{}
	w, err := New().Writer(dst)
	if err != nil {
		t.Fatalf("Writer() error = %v", err)
	}
	if _, err := io.WriteString(w, "user:42"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if dst.closed {
		t.Error("Close() closed the destination")
	}
	if got := dst.String(); got != "user:42" {
		t.Errorf("written = %q, want %q", got, "user:42")
	}
}

func TestReader_ClosesBody(t *testing.T) {
	body := &trackingBuffer{}
	body.WriteString("payload")

	r, err := New().Reader(body)
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("read = %q, want %q", data, "payload")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !body.closed {
		t.Error("Close() did not close the body")
	}
}
