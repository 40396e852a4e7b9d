// Streetcast - Fleet Display Advertising Dispatch
// Copyright 2026 Streetcast Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streetcast/streetcast

// Package assets serves video files from a directory for the chunked
// download endpoints. Reads are stateless and idempotent; any byte range
// may be fetched any number of times.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrAssetNotFound is returned when the named video file does not exist in
// the library directory.
var ErrAssetNotFound = errors.New("asset not found")

// Library reads video assets from a single directory.
type Library struct {
	dir string
}

// NewLibrary creates a Library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir}
}

// Size returns the byte size of the named asset.
func (l *Library) Size(filename string) (int64, error) {
	path, err := l.resolve(filename)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, ErrAssetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stat asset %s: %w", filename, err)
	}
	return info.Size(), nil
}

// ReadRange returns length bytes of the asset starting at offset. Short
// reads at end of file return the remaining bytes without error.
func (l *Library) ReadRange(filename string, offset, length int64) ([]byte, error) {
	path, err := l.resolve(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open asset %s: %w", filename, err)
	}
	defer f.Close()

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read asset %s at %d: %w", filename, offset, err)
	}
	return buf[:n], nil
}

// resolve maps filename to a path inside the library directory, rejecting
// traversal attempts.
func (l *Library) resolve(filename string) (string, error) {
	if filename == "" {
		return "", ErrAssetNotFound
	}
	clean := filepath.Clean(filename)
	if clean != filepath.Base(clean) || strings.HasPrefix(clean, ".") {
		return "", fmt.Errorf("invalid asset name %q: %w", filename, ErrAssetNotFound)
	}
	return filepath.Join(l.dir, clean), nil
}
