package storage

import (
	"bufio"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const readBufferSize = 64 * 1024

// Segment is a flat file of fixed-width records with no header or framing.
// Its length is always a whole multiple of the record width.
type Segment struct {
	file   *os.File
	path   string
	stride int
	size   int64
	isNew  bool
}

// OpenSegment opens the file at path, creating it when absent.
func OpenSegment(path string, stride int) (*Segment, error) {
	return openSegment(path, stride, os.O_RDWR|os.O_CREATE)
}

// CreateSegment opens the file at path, discarding any previous content.
func CreateSegment(path string, stride int) (*Segment, error) {
	return openSegment(path, stride, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
}

func openSegment(path string, stride int, flag int) (*Segment, error) {
	if stride <= 0 {
		return nil, errors.Errorf("invalid record width %d", stride)
	}

	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return nil, IOError("open", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, IOError("stat", path, err)
	}

	size := stat.Size()
	if size%int64(stride) != 0 {
		f.Close()
		return nil, CorruptionError("open", path, errors.Errorf("file length %d is not a multiple of record width %d", size, stride))
	}

	return &Segment{
		file:   f,
		path:   path,
		stride: stride,
		size:   size,
		isNew:  size == 0,
	}, nil
}

// IsNew reports whether the file was empty when it was opened.
func (s *Segment) IsNew() bool {
	return s.isNew
}

func (s *Segment) Count() int64 {
	return s.size / int64(s.stride)
}

func (s *Segment) Stride() int {
	return s.stride
}

func (s *Segment) Path() string {
	return s.path
}

// Append writes one record at the end of the file. A failed write is rolled
// back so the file never ends in a partial record.
func (s *Segment) Append(rec []byte) error {
	if s.file == nil {
		return ClosedError("append", s.path)
	}

	if len(rec) != s.stride {
		return errors.Errorf("record is %d bytes, segment stride is %d", len(rec), s.stride)
	}

	n, err := s.file.WriteAt(rec, s.size)
	if err == nil && n != len(rec) {
		err = io.ErrShortWrite
	}

	if err != nil {
		if n > 0 {
			if terr := s.file.Truncate(s.size); terr != nil {
				return IOError("append", s.path, errors.Wrapf(err, "rollback failed: %v", terr))
			}
		}
		return IOError("append", s.path, err)
	}

	s.size += int64(n)

	return nil
}

func (s *Segment) Sync() error {
	if s.file == nil {
		return ClosedError("sync", s.path)
	}

	if err := s.file.Sync(); err != nil {
		return IOError("sync", s.path, err)
	}

	return nil
}

// ReadAt reads the i-th record into buf.
func (s *Segment) ReadAt(i int64, buf []byte) error {
	if s.file == nil {
		return ClosedError("read", s.path)
	}

	if i < 0 || i >= s.Count() {
		return errors.Errorf("record %d out of range [0, %d)", i, s.Count())
	}

	if _, err := s.file.ReadAt(buf[:s.stride], i*int64(s.stride)); err != nil {
		return IOError("read", s.path, err)
	}

	return nil
}

// Records yields every record in file order. The yielded slice is reused
// between iterations. Each call starts again from the first record and sees
// the records present at the time of the call.
func (s *Segment) Records() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if s.file == nil {
			yield(nil, ClosedError("read", s.path))
			return
		}

		reader := bufio.NewReaderSize(io.NewSectionReader(s.file, 0, s.size), readBufferSize)
		buf := make([]byte, s.stride)

		for i := int64(0); i < s.Count(); i++ {
			if _, err := io.ReadFull(reader, buf); err != nil {
				yield(nil, IOError("read", s.path, errors.Wrapf(err, "record %d", i)))
				return
			}

			if !yield(buf, nil) {
				return
			}
		}
	}
}

// Truncate keeps the first n records, drops the rest and makes the new
// length durable.
func (s *Segment) Truncate(n int64) error {
	if s.file == nil {
		return ClosedError("truncate", s.path)
	}

	if n < 0 || n > s.Count() {
		return errors.Errorf("cannot truncate %d records to %d", s.Count(), n)
	}

	size := n * int64(s.stride)
	if err := s.file.Truncate(size); err != nil {
		return IOError("truncate", s.path, err)
	}

	s.size = size

	return s.Sync()
}

// Rename atomically moves the file over path and syncs the directory.
func (s *Segment) Rename(path string) error {
	if s.file == nil {
		return ClosedError("rename", s.path)
	}

	if err := os.Rename(s.path, path); err != nil {
		return IOError("rename", s.path, err)
	}

	s.path = path

	if err := SyncDir(filepath.Dir(path)); err != nil {
		return IOError("sync dir", path, err)
	}

	return nil
}

func (s *Segment) Close() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	if err != nil {
		return IOError("close", s.path, err)
	}

	return nil
}
