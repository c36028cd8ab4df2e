// Package noopcodec stores cache objects as raw bytes. It backs
// "--codec none" and seeded directories whose manifest names no codec.
package noopcodec

import (
	"io"

	"github.com/discochess/tiercache/internal/codec"
)

var _ codec.Codec = Codec{}

// Codec leaves object bytes untouched.
type Codec struct{}

// New returns the identity codec.
func New() Codec { return Codec{} }

// Reader hands back the object body itself. Closing the result closes the
// body when it has a Close method.
func (Codec) Reader(r io.Reader) (io.ReadCloser, error) {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(r), nil
}

// Writer writes straight through to w. Close leaves w open: the store that
// created w owns it.
func (Codec) Writer(w io.Writer) (io.WriteCloser, error) {
	return rawWriter{w}, nil
}

func (Codec) Extension() string { return "" }

type rawWriter struct{ io.Writer }

func (rawWriter) Close() error { return nil }
