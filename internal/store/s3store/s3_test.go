package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/tiercache/internal/codec"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
	"github.com/discochess/tiercache/internal/store"
)

// fakeS3 serves objects from a map.
type fakeS3 struct {
	objects map[string][]byte
	gets    []string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c", "a/b/c/"},
		{"/a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var s settings
			WithPrefix(tt.input)(&s)
			if s.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", s.prefix, tt.want)
			}
		})
	}
}

func TestStore_Read(t *testing.T) {
	c := zstdcodec.New()
	encoded, err := codec.Encode(c, []byte("profile for 42"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	fake := &fakeS3{objects: map[string][]byte{
		"tenant/objects/user:42.zst": encoded,
	}}
	s := newWithClient(fake, "bucket", c, "tenant/")

	got, err := s.Read(context.Background(), "user:42")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != "profile for 42" {
		t.Errorf("Read() = %q, want %q", got, "profile for 42")
	}
}

func TestStore_ReadNotFound(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := newWithClient(fake, "bucket", zstdcodec.New(), "")

	_, err := s.Read(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
	if len(fake.gets) != 1 || fake.gets[0] != "objects/missing.zst" {
		t.Errorf("GetObject keys = %v, want [objects/missing.zst]", fake.gets)
	}
}

func TestStore_ReadCorrupt(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"objects/bad.zst": []byte("garbage")}}
	s := newWithClient(fake, "bucket", zstdcodec.New(), "")

	_, err := s.Read(context.Background(), "bad")
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want decode error", err)
	}
}

func TestStore_Close(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
