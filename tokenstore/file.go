package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

const (
	fileMode os.FileMode = 0o600
	dirMode  os.FileMode = 0o700

	fileAAD = "authclient/file/v1"
)

// FileStore persists a sealed pair in a single owner-only file.
//
// Writes go to a temp file in the same directory followed by an atomic rename, so a
// crash never leaves a half-written pair behind.
type FileStore struct {
	path   string
	sealer Sealer
	mu     sync.Mutex
}

// NewFileStore returns a store rooted at path. The sealer is mandatory.
func NewFileStore(path string, sealer Sealer) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("token file path required")
	}
	if sealer == nil {
		return nil, ErrSealerRequired
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: abs, sealer: sealer}, nil
}

// Path returns the absolute location of the token file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Save(_ context.Context, pair Pair) error {
	data, err := Encode(pair)
	if err != nil {
		return err
	}
	sealed, err := f.sealer.Seal(data, []byte(fileAAD))
	if err != nil {
		return fmt.Errorf("seal token pair: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(fileMode); err != nil && runtime.GOOS != "windows" {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (f *FileStore) Load(_ context.Context) (Pair, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
		return Pair{}, false, fmt.Errorf("%w: %s has mode %v", ErrInsecurePermissions, f.path, info.Mode().Perm())
	}

	sealed, err := os.ReadFile(f.path)
	if err != nil {
		return Pair{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	data, err := f.sealer.Open(sealed, []byte(fileAAD))
	if err != nil {
		return Pair{}, false, err
	}
	pair, err := Decode(data)
	if err != nil {
		return Pair{}, false, err
	}
	return pair, true, nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
