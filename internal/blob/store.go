// Package blob stores uploaded applicant documents on local disk and hands
// back stable URLs for them.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes data under a random name that keeps the original extension, and
// returns the public URL. The caller-supplied filename is never used as a
// path component.
func (s *DiskStore) Put(filename string, data []byte) (string, error) {
	ext := filepath.Ext(filepath.Base(filename))
	name := uuid.NewString() + ext

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return s.baseURL + "/" + name, nil
}
