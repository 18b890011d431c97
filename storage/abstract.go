package storage

// Record is a single key-value pair as it is stored in the write-ahead log
// and in the on-disk table.
type Record[K, V any] struct {
	Key   K
	Value V
}

// Codec converts a value to and from a fixed-width byte representation.
//
// Encode must fill all of dst, zero padding whatever the natural form of v
// does not use, and must fail with ErrEncoding if that form is wider than dst.
// Decode must reject input that Encode could not have produced.
type Codec[T any] interface {
	Encode(dst []byte, v T) error
	Decode(src []byte) (T, error)
}
