// FILE: lixenwraith/properties/storage.go
package properties

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"github.com/lixenwraith/properties/internal/kvfile"
)

// fileGroup collapses concurrent reads of the same file version by handles in this process
var fileGroup singleflight.Group

// fileSnapshot is the decoded content of a properties file at one point in time.
type fileSnapshot struct {
	pairs       map[string]string
	fingerprint uint64
	exists      bool
}

// fileStore reads and writes one properties file under an advisory lock.
// The lock is held on a sidecar `<file>.lock` because writes replace the file itself.
type fileStore struct {
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
}

func newFileStore(path string, lockTimeout time.Duration) *fileStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &fileStore{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: lockTimeout,
	}
}

// read returns the current content of the file under a shared lock.
// A missing file is not an error.
func (s *fileStore) read(ctx context.Context) (fileSnapshot, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSnapshot{}, nil
	}
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("failed to stat '%s': %w", s.path, err)
	}

	v, err, _ := fileGroup.Do(readKey(s.path, info), func() (any, error) {
		return s.readShared(ctx)
	})
	if err != nil {
		return fileSnapshot{}, err
	}
	return v.(fileSnapshot), nil
}

// readKey identifies one version of a file. A read started after a replacement
// never joins a read of the previous version.
func readKey(path string, info fs.FileInfo) string {
	return fmt.Sprintf("%s@%d:%d", path, info.ModTime().UnixNano(), info.Size())
}

func (s *fileStore) readShared(ctx context.Context) (fileSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryRLockContext(ctx, SpinWaitInterval)
	switch {
	case errors.Is(err, fs.ErrPermission):
		// No lock file can be created next to a file in a read-only location
		return s.readFile()
	case err != nil || !locked:
		return fileSnapshot{}, fmt.Errorf("failed to acquire shared lock on '%s': %w", s.path, lockError(err))
	}
	defer s.lock.Unlock()
	return s.readFile()
}

// readFile parses the file and fingerprints its content. Caller holds the shared lock.
func (s *fileStore) readFile() (fileSnapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileSnapshot{}, nil
		}
		return fileSnapshot{}, fmt.Errorf("failed to open '%s': %w", s.path, err)
	}
	defer f.Close()

	// Hash exactly the bytes that are parsed
	h := xxhash.New()
	pairs, err := kvfile.Parse(io.TeeReader(f, h))
	if err != nil {
		return fileSnapshot{}, fmt.Errorf("failed to parse '%s': %w", s.path, err)
	}
	return fileSnapshot{pairs: pairs, fingerprint: h.Sum64(), exists: true}, nil
}

// write replaces the file with data under an exclusive lock and returns its fingerprint.
func (s *fileStore) write(ctx context.Context, data []byte) (uint64, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, SpinWaitInterval)
	if err != nil || !locked {
		return 0, fmt.Errorf("failed to acquire exclusive lock on '%s': %w", s.path, lockError(err))
	}
	defer s.lock.Unlock()

	if err := atomicWriteFile(s.path, data); err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// close releases the lock file descriptor.
func (s *fileStore) close() error {
	return s.lock.Close()
}

func lockError(err error) error {
	if err == nil {
		return errors.New("lock not acquired")
	}
	return err
}

// atomicWriteFile replaces path with data through a temporary file in the same
// directory. An existing file keeps its permissions.
func atomicWriteFile(path string, data []byte) (err error) {
	mode := fs.FileMode(0644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in '%s': %w", dir, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write '%s': %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("failed to set permissions on '%s': %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync '%s': %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace '%s': %w", path, err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes directory metadata where the platform supports it
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}
