package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"

	"github.com/arkilian/groupbench/internal/config"
	benchErrors "github.com/arkilian/groupbench/internal/errors"
)

// Codec compresses and decompresses whole blocks. Implementations are safe
// for concurrent use.
type Codec interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// New returns the codec with the given name. level is ignored by snappy.
func New(name string, level int) (Codec, error) {
	switch name {
	case config.CodecZlib:
		return zlibCodec{level: level}, nil
	case config.CodecFlate:
		return flateCodec{level: level}, nil
	case config.CodecSnappy:
		return snappyCodec{}, nil
	default:
		return nil, benchErrors.New(benchErrors.ErrCategoryCompression, benchErrors.CodeUnknownCodec,
			fmt.Sprintf("unknown codec %q", name))
	}
}

type zlibCodec struct {
	level int
}

func (c zlibCodec) Name() string { return config.CodecZlib }

func (c zlibCodec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("zlib: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c zlibCodec) Decompress(src []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib: read: %w", err)
	}
	return out, nil
}

type flateCodec struct {
	level int
}

func (c flateCodec) Name() string { return config.CodecFlate }

func (c flateCodec) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("flate: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flate: close: %w", err)
	}
	return buf.Bytes(), nil
}

func (c flateCodec) Decompress(src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("flate: read: %w", err)
	}
	return out, nil
}

type snappyCodec struct{}

func (snappyCodec) Name() string { return config.CodecSnappy }

func (snappyCodec) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCodec) Decompress(src []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, fmt.Errorf("snappy: %w", err)
	}
	return out, nil
}
