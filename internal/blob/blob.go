// Package blob is a content-addressed file store for rendered document
// bytes. Refs are sha256 hex digests; identical content stores once.
package blob

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"stencil/internal/errors"
)

// Store writes blobs under baseDir/blobs, sharded by the first two hex
// characters of the digest.
type Store struct {
	dir string
}

// New creates the blob directory under baseDir if needed.
func New(baseDir string) (*Store, error) {
	dir := filepath.Join(baseDir, "blobs")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	_ = os.Chmod(dir, 0700)
	return &Store{dir: dir}, nil
}

// Put stores data and returns its ref. Storing the same bytes twice is a
// no-op returning the same ref; an existing blob is never rewritten.
func (s *Store) Put(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	ref := hex.EncodeToString(sum[:])

	path := s.path(ref)
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", errors.NewInternal(err)
	}

	// Write to a temp file then rename so readers never observe a partial
	// blob.
	tmp := path + ".tmp." + randSuffix()
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", errors.NewInternal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", errors.NewInternal(err)
	}
	return ref, nil
}

// Get returns the bytes for ref.
func (s *Store) Get(ref string) ([]byte, error) {
	if !validRef(ref) {
		return nil, errors.NewInvalidRequest("malformed blob ref")
	}
	data, err := os.ReadFile(s.path(ref))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound(ref)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// Path returns the filesystem path a ref resolves to. The file may or may
// not exist.
func (s *Store) Path(ref string) string {
	return s.path(ref)
}

func (s *Store) path(ref string) string {
	return filepath.Join(s.dir, ref[:2], ref)
}

func validRef(ref string) bool {
	if len(ref) != 64 {
		return false
	}
	_, err := hex.DecodeString(ref)
	return err == nil
}

func randSuffix() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
