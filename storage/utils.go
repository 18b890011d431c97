package storage

import (
	"os"
	"path/filepath"
)

const (
	walSuffix        = ".wal"
	compactionSuffix = ".new"
)

// WALPath is the write-ahead log that belongs to the table at path.
func WALPath(path string) string {
	return path + walSuffix
}

// CompactionPath is the scratch file a compaction of path is built in.
func CompactionPath(path string) string {
	return path + compactionSuffix
}

// SyncDir flushes directory metadata so a rename or create inside it survives a crash.
func SyncDir(dir string) error {
	d, err := os.Open(filepath.Clean(dir))
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}
