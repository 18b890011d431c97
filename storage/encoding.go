package storage

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// String encodes a string as a uvarint length followed by its bytes.
type String struct{}

func (String) Encode(dst []byte, v string) error {
	var hdr [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(hdr[:], uint64(len(v)))

	if n+len(v) > len(dst) {
		return EncodingError("encode string", errors.Errorf("needs %d bytes, width is %d", n+len(v), len(dst)))
	}

	copy(dst, hdr[:n])
	copy(dst[n:], v)
	clear(dst[n+len(v):])

	return nil
}

func (String) Decode(src []byte) (string, error) {
	length, n := binary.Uvarint(src)
	if n <= 0 {
		return "", DecodingError("decode string", errors.New("invalid length prefix"))
	}

	if length > uint64(len(src)-n) {
		return "", DecodingError("decode string", errors.Errorf("length %d overflows width %d", length, len(src)))
	}

	end := n + int(length)
	if err := checkPadding(src[end:]); err != nil {
		return "", DecodingError("decode string", err)
	}

	return string(src[n:end]), nil
}

type Uint8 struct{}

func (Uint8) Encode(dst []byte, v uint8) error {
	return encodeFixed(dst, []byte{v})
}

func (Uint8) Decode(src []byte) (uint8, error) {
	b, err := decodeFixed(src, 1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

type Uint16 struct{}

func (Uint16) Encode(dst []byte, v uint16) error {
	return encodeFixed(dst, binary.BigEndian.AppendUint16(nil, v))
}

func (Uint16) Decode(src []byte) (uint16, error) {
	b, err := decodeFixed(src, 2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

type Uint32 struct{}

func (Uint32) Encode(dst []byte, v uint32) error {
	return encodeFixed(dst, binary.BigEndian.AppendUint32(nil, v))
}

func (Uint32) Decode(src []byte) (uint32, error) {
	b, err := decodeFixed(src, 4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

type Uint64 struct{}

func (Uint64) Encode(dst []byte, v uint64) error {
	return encodeFixed(dst, binary.BigEndian.AppendUint64(nil, v))
}

func (Uint64) Decode(src []byte) (uint64, error) {
	b, err := decodeFixed(src, 8)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(b), nil
}

type Int64 struct{}

func (Int64) Encode(dst []byte, v int64) error {
	return encodeFixed(dst, binary.BigEndian.AppendUint64(nil, uint64(v)))
}

func (Int64) Decode(src []byte) (int64, error) {
	b, err := decodeFixed(src, 8)
	if err != nil {
		return 0, err
	}

	return int64(binary.BigEndian.Uint64(b)), nil
}

func encodeFixed(dst, natural []byte) error {
	if len(natural) > len(dst) {
		return EncodingError("encode integer", errors.Errorf("needs %d bytes, width is %d", len(natural), len(dst)))
	}

	copy(dst, natural)
	clear(dst[len(natural):])

	return nil
}

func decodeFixed(src []byte, width int) ([]byte, error) {
	if len(src) < width {
		return nil, DecodingError("decode integer", errors.Errorf("truncated input: %d bytes, need %d", len(src), width))
	}

	if err := checkPadding(src[width:]); err != nil {
		return nil, DecodingError("decode integer", err)
	}

	return src[:width], nil
}

func checkPadding(pad []byte) error {
	for i, c := range pad {
		if c != 0 {
			return errors.Errorf("non-zero padding byte at %d", i)
		}
	}

	return nil
}
