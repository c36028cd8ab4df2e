package gzipcodec

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
)

func TestNewLevel(t *testing.T) {
	tests := []struct {
		level   int
		wantErr bool
	}{
		{gzip.BestSpeed, false},
		{gzip.BestCompression, false},
		{gzip.HuffmanOnly, false},
		{42, true},
	}

	for _, tt := range tests {
		_, err := NewLevel(tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewLevel(%d) error = %v, wantErr %v", tt.level, err, tt.wantErr)
		}
	}
}

func TestCodec_BestCompressionRoundTrip(t *testing.T) {
	c, err := NewLevel(gzip.BestCompression)
	if err != nil {
		t.Fatalf("NewLevel() error = %v", err)
	}
	original := bytes.Repeat([]byte("level"), 1000)

	var compressed bytes.Buffer
	w, err := c.Writer(&compressed)
	if err != nil {
		t.Fatalf("Writer() error = %v", err)
	}
	if _, err := w.Write(original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	r, err := c.Reader(&compressed)
	if err != nil {
		t.Fatalf("Reader() error = %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Error("round-trip failed")
	}
}
