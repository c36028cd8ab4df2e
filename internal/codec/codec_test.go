package codec_test

import (
	"bytes"
	"testing"

	"github.com/discochess/tiercache/internal/codec"
	"github.com/discochess/tiercache/internal/codec/gzipcodec"
	"github.com/discochess/tiercache/internal/codec/noopcodec"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	codecs := []struct {
		name string
		c    codec.Codec
		ext  string
	}{
		{"zstd", zstdcodec.New(), "zst"},
		{"gzip", gzipcodec.New(), "gz"},
		{"noop", noopcodec.New(), ""},
	}
	payloads := map[string][]byte{
		"empty":  {},
		"short":  []byte("value for key user:42"),
		"repeat": bytes.Repeat([]byte("ABCDEFGHIJ"), 10000),
	}

	for _, tc := range codecs {
		if got := tc.c.Extension(); got != tc.ext {
			t.Errorf("%s Extension() = %q, want %q", tc.name, got, tc.ext)
		}
		for name, original := range payloads {
			t.Run(tc.name+"/"+name, func(t *testing.T) {
				encoded, err := codec.Encode(tc.c, original)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				decoded, err := codec.Decode(tc.c, bytes.NewReader(encoded))
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if !bytes.Equal(decoded, original) {
					t.Errorf("round-trip mismatch: got %d bytes, want %d", len(decoded), len(original))
				}
			})
		}
	}
}

func TestEncode_Compresses(t *testing.T) {
	original := bytes.Repeat([]byte("tiercache"), 5000)
	for _, c := range []codec.Codec{zstdcodec.New(), gzipcodec.New()} {
		encoded, err := codec.Encode(c, original)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		if len(encoded) >= len(original) {
			t.Errorf("%s: expected compression, got %d bytes from %d", c.Extension(), len(encoded), len(original))
		}
	}
}

func TestDecode_InvalidData(t *testing.T) {
	for _, c := range []codec.Codec{zstdcodec.New(), gzipcodec.New()} {
		if _, err := codec.Decode(c, bytes.NewReader([]byte("definitely not compressed"))); err == nil {
			t.Errorf("%s: Decode() expected error for invalid data", c.Extension())
		}
	}
}
