// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// VolumeFile is one opened cabinet sibling file. Implementations must
// support independent concurrent ReadAt calls.
type VolumeFile interface {
	io.ReaderAt
	io.Closer
}

// VolumeSource opens cabinet sibling files by bare name, for example
// "data2.cab" or "data1.hdr". A missing sibling is reported with an error
// matching fs.ErrNotExist, which ends volume enumeration.
type VolumeSource interface {
	Open(name string) (VolumeFile, error)
}

// dirSource resolves siblings on the host filesystem next to the base path.
type dirSource struct {
	dir string
}

// Open opens one sibling file from the base directory.
func (s dirSource) Open(name string) (VolumeFile, error) {
	return os.Open(filepath.Join(s.dir, name))
}

// fsSource resolves siblings inside a parent fs.FS, such as an enclosing archive.
type fsSource struct {
	fsys fs.FS
	dir  string
}

// Open opens one sibling from the parent filesystem. Files that do not
// support random access are materialized into memory.
func (s fsSource) Open(name string) (VolumeFile, error) {
	full := name
	if s.dir != "" && s.dir != "." {
		full = path.Join(s.dir, name)
	}

	f, err := s.fsys.Open(full)
	if err != nil {
		return nil, err
	}

	if ra, ok := f.(interface {
		io.ReaderAt
		io.Closer
	}); ok {
		return ra, nil
	}

	data, err := io.ReadAll(f)
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("read volume %s: %w", name, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close volume %s: %w", name, closeErr)
	}

	return memoryVolume{Reader: bytes.NewReader(data)}, nil
}

// memoryVolume wraps a fully materialized volume with a no-op close.
type memoryVolume struct {
	*bytes.Reader
}

// Close closes memoryVolume (no-op).
func (memoryVolume) Close() error {
	return nil
}

// volumeName returns the sibling file name for a 1-based volume index.
func volumeName(base string, volume int) string {
	return fmt.Sprintf("%s%d.cab", base, volume)
}

// headerName returns the sidecar header file name for the family.
func headerName(base string) string {
	return base + "1.hdr"
}
