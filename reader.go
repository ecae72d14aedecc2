// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
)

// Reader provides read-only access to an InstallShield cabinet family.
// The catalog and volume headers are immutable between Open and Close.
// Each member open acquires its own volume handle, so concurrent member
// reads against one Reader are safe; Open and Close are not.
type Reader struct {
	// src resolves sibling volume files by name.
	src VolumeSource
	// base is the family base name with the volume suffix stripped.
	base string
	// catalog maps lowercased member paths to entries.
	catalog map[string]FileEntry
	// headers are parsed volume headers in volume order.
	headers []VolumeHeader
	// version is the cabinet format version adopted from the carrier.
	version int
	// log receives non-fatal diagnostics.
	log *slog.Logger
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// MemberReader is a seekable view of one decoded cabinet member.
// Views over a live volume file own that volume handle; materialized
// members own their buffer. Close releases whichever is held.
type MemberReader struct {
	*io.SectionReader
	closer io.Closer
}

// Close releases the underlying volume handle when one is held.
func (m *MemberReader) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}

	return nil
}

// Open opens a cabinet family on the host filesystem. base names a sibling
// of the family with a single-digit volume index, for example
// "game/data1.cab" or "game/data1.hdr".
func Open(base string) (*Reader, error) {
	return OpenWithOptions(base, ReaderOptions{})
}

// OpenWithOptions opens a cabinet family on the host filesystem using explicit reader options.
func OpenWithOptions(base string, opts ReaderOptions) (*Reader, error) {
	dir, name := filepath.Split(base)
	return openSource(dirSource{dir: dir}, stripCabinetSuffix(name), opts)
}

// OpenFS opens a cabinet family resolved through a parent filesystem,
// typically another archive exposed as fs.FS.
func OpenFS(fsys fs.FS, base string) (*Reader, error) {
	return OpenFSWithOptions(fsys, base, ReaderOptions{})
}

// OpenFSWithOptions opens a cabinet family from a parent filesystem using explicit reader options.
func OpenFSWithOptions(fsys fs.FS, base string, opts ReaderOptions) (*Reader, error) {
	return openSource(fsSource{fsys: fsys, dir: path.Dir(base)}, stripCabinetSuffix(path.Base(base)), opts)
}

// OpenSource opens a cabinet family through a caller-provided volume source.
// base must already be the family base name, without the volume suffix.
func OpenSource(src VolumeSource, base string, opts ReaderOptions) (*Reader, error) {
	return openSource(src, base, opts)
}

// openSource enumerates volumes, selects the carrier and builds the catalog.
// Any fatal step leaves the reader closed.
func openSource(src VolumeSource, base string, opts ReaderOptions) (*Reader, error) {
	opts.applyDefaults()

	r := &Reader{src: src, base: base, log: opts.Logger}
	if err := r.open(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

// open reads all volume headers and parses the catalog from the carrier.
func (r *Reader) open() error {
	for volume := 1; ; volume++ {
		f, err := r.src.Open(volumeName(r.base, volume))
		if err != nil {
			// First missing sibling ends enumeration.
			break
		}

		hdr, err := readVolumeHeader(f)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("volume %d: %w", volume, err)
		}
		if closeErr != nil {
			return fmt.Errorf("volume %d: %w", volume, closeErr)
		}

		r.headers = append(r.headers, hdr)
	}

	// The catalog lives in the .hdr sidecar when present, else in volume 1.
	carrier, err := r.src.Open(headerName(r.base))
	if err != nil {
		carrier, err = r.src.Open(volumeName(r.base, 1))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrVolumeOpen, volumeName(r.base, 1), err)
		}
	}
	defer func() { _ = carrier.Close() }()

	carrierHdr, err := readVolumeHeader(carrier)
	if err != nil {
		return err
	}

	r.version = carrierHdr.Version
	catalog, err := buildCatalog(carrier, carrierHdr, r.headers, r.log)
	if err != nil {
		return err
	}

	r.catalog = catalog
	return nil
}

// Close drops the catalog, volume headers and version, leaving an empty reader.
func (r *Reader) Close() {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.catalog = nil
	r.headers = nil
	r.version = 0
	r.base = ""
}

// Version returns the cabinet format version adopted from the carrier.
func (r *Reader) Version() int {
	if r == nil {
		return 0
	}

	return r.version
}

// HasFile reports whether the member path exists, compared case-insensitively.
func (r *Reader) HasFile(name string) bool {
	if r == nil {
		return false
	}

	_, ok := r.catalog[memberKey(name)]
	return ok
}

// Members returns all member paths in unspecified order.
func (r *Reader) Members() []string {
	if r == nil {
		return nil
	}

	out := make([]string, 0, len(r.catalog))
	for _, entry := range r.catalog {
		out = append(out, entry.Path)
	}

	return out
}

// Entry returns the catalog entry for a member path.
func (r *Reader) Entry(name string) (FileEntry, bool) {
	if r == nil {
		return FileEntry{}, false
	}

	entry, ok := r.catalog[memberKey(name)]
	return entry, ok
}

// OpenEntry opens the named member for reading. The returned stream is
// independently seekable and reports the full decoded size as its length.
// Members stored with the Compressed flag but a zero compressed size
// decode to that many zero bytes.
func (r *Reader) OpenEntry(name string) (*MemberReader, error) {
	if r == nil || r.src == nil {
		return nil, ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	entry, ok := r.catalog[memberKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return r.openEntry(entry)
}

// ReadEntry reads full decoded content of the named member.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	mr, err := r.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = mr.Close() }()

	out := make([]byte, mr.Size())
	if _, err := io.ReadFull(mr, out); err != nil {
		return nil, err
	}

	return out, nil
}

// openEntry materializes or views one resolved catalog entry.
func (r *Reader) openEntry(entry FileEntry) (*MemberReader, error) {
	if entry.IsObfuscated() {
		r.log.Warn("cannot read obfuscated member", "path", entry.Path)
		return nil, fmt.Errorf("%w: %s", ErrObfuscated, entry.Path)
	}

	if entry.UncompressedSize == 0 {
		return memoryMember(nil), nil
	}

	var src []byte
	if entry.IsSplit() {
		assembled, err := r.assembleSplit(entry)
		if err != nil {
			r.log.Warn("failed to assemble split member", "path", entry.Path, "error", err)
			return nil, err
		}

		src = assembled
	}

	if !entry.IsCompressed() {
		if src != nil {
			if int64(entry.UncompressedSize) > int64(len(src)) {
				return nil, fmt.Errorf("%w: split payload of %s", ErrTruncatedRecord, entry.Path)
			}

			return memoryMember(src[:entry.UncompressedSize]), nil
		}

		f, err := r.openVolume(int(entry.Volume))
		if err != nil {
			r.log.Warn("failed to open volume for member", "path", entry.Path, "error", err)
			return nil, err
		}

		return &MemberReader{
			SectionReader: io.NewSectionReader(f, int64(entry.Offset), int64(entry.UncompressedSize)),
			closer:        f,
		}, nil
	}

	if src == nil {
		f, err := r.openVolume(int(entry.Volume))
		if err != nil {
			r.log.Warn("failed to open volume for member", "path", entry.Path, "error", err)
			return nil, err
		}

		src = make([]byte, entry.CompressedSize)
		_, err = f.ReadAt(src, int64(entry.Offset))
		closeErr := f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: payload of %s: %v", ErrTruncatedRecord, entry.Path, err)
		}
		if closeErr != nil {
			return nil, closeErr
		}
	}

	dst := make([]byte, entry.UncompressedSize)

	// Compressed entries with size 0 are valid and decode to zero bytes.
	if entry.CompressedSize != 0 {
		if err := inflateEntry(dst, src); err != nil {
			r.log.Warn("failed to inflate member", "path", entry.Path, "error", err)
			return nil, fmt.Errorf("%s: %w", entry.Path, err)
		}
	}

	return memoryMember(dst), nil
}

// openVolume opens one volume file by 1-based index.
func (r *Reader) openVolume(volume int) (VolumeFile, error) {
	name := volumeName(r.base, volume)
	f, err := r.src.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrVolumeOpen, name, err)
	}

	return f, nil
}

// memoryMember wraps an owned buffer into a seekable member stream.
func memoryMember(buf []byte) *MemberReader {
	return &MemberReader{
		SectionReader: io.NewSectionReader(bytes.NewReader(buf), 0, int64(len(buf))),
	}
}
