package yololbl

// Per-file "verified" flags kept in one JSON side file per annotation directory.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sensorable/yololbl/internal/logger"
)

// VerifiedStatusFile is the name of the side file, shared by all annotation files in a directory.
const VerifiedStatusFile = "verified_status.json"

// VerificationStore reads and updates verified_status.json files.
//
// Updates rewrite the whole file. Within a process, access to a directory is serialized; across
// processes the file is replaced atomically, so readers never see a partial write, but two
// processes updating the same directory can still lose one update.
type VerificationStore struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex // By resolved absolute directory.
}

// NewVerificationStore returns an empty store. The zero value is also ready to use.
func NewVerificationStore() *VerificationStore {
	return &VerificationStore{locks: make(map[string]*sync.Mutex)}
}

var defaultVerificationStore = NewVerificationStore()

// DefaultVerificationStore is the store used by readers and writers that do not set their own.
func DefaultVerificationStore() *VerificationStore {
	return defaultVerificationStore
}

// dirLock returns the mutex of dir, keyed by its absolute path with symlinks resolved so that
// all spellings of one directory share a lock.
func (s *VerificationStore) dirLock(dir string) *sync.Mutex {
	key := dir
	if abs, err := filepath.Abs(dir); err == nil {
		key = abs
	}
	if resolved, err := filepath.EvalSymlinks(key); err == nil {
		key = resolved
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Lookup returns the flag stored for fileName in dir. found is false if the side file or the
// entry does not exist; err is set only if the side file exists but cannot be read or parsed.
func (s *VerificationStore) Lookup(dir, fileName string) (verified, found bool, err error) {
	l := s.dirLock(dir)
	l.Lock()
	defer l.Unlock()

	status, err := readVerifiedStatus(filepath.Join(dir, VerifiedStatusFile))
	if err != nil {
		return false, false, err
	}
	verified, found = status[fileName]
	return verified, found, nil
}

// Get returns the flag stored for fileName in dir, or false if there is none. A side file that
// cannot be read counts as missing.
func (s *VerificationStore) Get(dir, fileName string) bool {
	verified, _, err := s.Lookup(dir, fileName)
	if err != nil {
		logger.L().Debug("verified.read_failed", "dir", dir, "file", fileName, "err", err)
		return false
	}
	return verified
}

// Set stores value for fileName in dir, keeping the entries of other files. A corrupt side file
// is replaced.
func (s *VerificationStore) Set(dir, fileName string, value bool) error {
	l := s.dirLock(dir)
	l.Lock()
	defer l.Unlock()

	path := filepath.Join(dir, VerifiedStatusFile)
	status, err := readVerifiedStatus(path)
	if err != nil {
		logger.L().Warn("verified.replacing_corrupt", "path", path, "err", err)
		status = nil
	}
	if status == nil {
		status = make(map[string]bool, 1)
	}
	status[fileName] = value

	return writeVerifiedStatus(path, status)
}

// GetFor returns the flag for the annotation file at annotationPath.
func (s *VerificationStore) GetFor(annotationPath string) bool {
	dir, name := verifiedStatusKey(annotationPath)
	return s.Get(dir, name)
}

// LookupFor is Lookup for the annotation file at annotationPath.
func (s *VerificationStore) LookupFor(annotationPath string) (verified, found bool, err error) {
	dir, name := verifiedStatusKey(annotationPath)
	return s.Lookup(dir, name)
}

// SetFor stores the flag for the annotation file at annotationPath.
func (s *VerificationStore) SetFor(annotationPath string, value bool) error {
	dir, name := verifiedStatusKey(annotationPath)
	return s.Set(dir, name, value)
}

// verifiedStatusKey returns the directory of annotationPath, with symlinks resolved, and its
// base name.
func verifiedStatusKey(annotationPath string) (dir, name string) {
	name = filepath.Base(annotationPath)

	path, err := filepath.Abs(annotationPath)
	if err != nil {
		path = annotationPath
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	} else if realDir, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		path = filepath.Join(realDir, filepath.Base(path))
	}

	return filepath.Dir(path), name
}

// readVerifiedStatus loads the side file at path. A missing file yields a nil map and no error.
// Entries whose value is not a boolean are dropped; the others are kept.
func readVerifiedStatus(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %q: %v", path, err)
	}

	status := make(map[string]bool, len(raw))
	for name, v := range raw {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			logger.L().Debug("verified.dropping_entry", "path", path, "file", name, "value", string(v))
			continue
		}
		status[name] = b
	}
	return status, nil
}

// writeVerifiedStatus replaces the side file at path by writing a temporary file in the same
// directory and renaming it.
func writeVerifiedStatus(path string, status map[string]bool) error {
	enc, err := json.Marshal(status)
	if err != nil {
		return &OpError{Op: "verified.marshal", Kind: KindIO, Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".verified_status-*.tmp")
	if err != nil {
		return &OpError{Op: "verified.create", Kind: KindIO, Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(enc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0o644)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return &OpError{Op: "verified.write", Kind: KindIO, Path: tmpPath, Err: err}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &OpError{Op: "verified.rename", Kind: KindIO, Path: path, Err: err}
	}
	return nil
}
