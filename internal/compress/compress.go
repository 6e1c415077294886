package compress

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies the compression applied to SST blocks. The codec is
// recorded in the SsTableInfo so readers do not depend on the writer's
// configuration.
type Codec int8

const (
	CodecNone Codec = iota
	CodecSnappy
	CodecZlib
	CodecLz4
	CodecZstd
)

var ErrInvalidCodec = errInvalidCodec{}

type errInvalidCodec struct{}

func (errInvalidCodec) Error() string { return "invalid compression codec" }

func Compress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecZlib:
		var buf bytes.Buffer
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecLz4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, ErrInvalidCodec
	}
}

func Decompress(data []byte, codec Codec) ([]byte, error) {
	switch codec {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Decode(nil, data)
	case CodecZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CodecLz4:
		r := lz4.NewReader(bytes.NewReader(data))
		return io.ReadAll(r)
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return nil, ErrInvalidCodec
	}
}
