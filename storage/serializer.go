package storage

import "github.com/pkg/errors"

// RecordCodec lays a record out as key_size bytes of key followed by
// value_size bytes of value. It is the only place records become bytes.
type RecordCodec[K, V any] struct {
	Keys      Codec[K]
	Values    Codec[V]
	KeySize   int
	ValueSize int
}

func NewRecordCodec[K, V any](keys Codec[K], values Codec[V], keySize, valueSize int) (RecordCodec[K, V], error) {
	if keySize <= 0 || valueSize <= 0 {
		return RecordCodec[K, V]{}, errors.Errorf("record widths must be positive, got key=%d value=%d", keySize, valueSize)
	}

	return RecordCodec[K, V]{
		Keys:      keys,
		Values:    values,
		KeySize:   keySize,
		ValueSize: valueSize,
	}, nil
}

// Width is the size of one encoded record.
func (c RecordCodec[K, V]) Width() int {
	return c.KeySize + c.ValueSize
}

// Encode writes rec into dst, which must be exactly Width bytes long.
func (c RecordCodec[K, V]) Encode(dst []byte, rec Record[K, V]) error {
	if len(dst) != c.Width() {
		return EncodingError("encode record", errors.Errorf("buffer is %d bytes, record width is %d", len(dst), c.Width()))
	}

	if err := c.Keys.Encode(dst[:c.KeySize], rec.Key); err != nil {
		return errors.Wrap(err, "key")
	}

	if err := c.Values.Encode(dst[c.KeySize:], rec.Value); err != nil {
		return errors.Wrap(err, "value")
	}

	return nil
}

func (c RecordCodec[K, V]) Decode(src []byte) (Record[K, V], error) {
	var rec Record[K, V]

	if len(src) != c.Width() {
		return rec, DecodingError("decode record", errors.Errorf("got %d bytes, record width is %d", len(src), c.Width()))
	}

	key, err := c.Keys.Decode(src[:c.KeySize])
	if err != nil {
		return rec, errors.Wrap(err, "key")
	}

	value, err := c.Values.Decode(src[c.KeySize:])
	if err != nil {
		return rec, errors.Wrap(err, "value")
	}

	rec.Key = key
	rec.Value = value

	return rec, nil
}

// DecodeKey decodes only the key half of an encoded record.
func (c RecordCodec[K, V]) DecodeKey(src []byte) (K, error) {
	if len(src) < c.KeySize {
		var zero K
		return zero, DecodingError("decode key", errors.Errorf("got %d bytes, key width is %d", len(src), c.KeySize))
	}

	return c.Keys.Decode(src[:c.KeySize])
}
