package storage

import "sync"

// BytesPool hands out scratch buffers of one fixed record width.
type BytesPool struct {
	size int
	pool sync.Pool
}

func NewBytesPool(size int) *BytesPool {
	p := &BytesPool{size: size}
	p.pool.New = func() any {
		buf := new([]byte) // Attempt to force allocation on heap.
		*buf = make([]byte, size)
		return buf
	}

	return p
}

func (p *BytesPool) GetBytes() *[]byte {
	return p.pool.Get().(*[]byte)
}

func (p *BytesPool) PutBytes(b *[]byte) {
	if cap(*b) < p.size {
		return
	}

	*b = (*b)[:p.size]

	p.pool.Put(b)
}
