// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import "fmt"

// assembleSplit concatenates the compressed payload of a split entry:
// the trailing segment of the starting volume followed by the leading
// segments of successor volumes until CompressedSize bytes are collected.
func (r *Reader) assembleSplit(entry FileEntry) ([]byte, error) {
	buf := make([]byte, entry.CompressedSize)
	volume := int(entry.Volume)

	f, err := r.openVolume(volume)
	if err != nil {
		return nil, err
	}

	segment := int(r.headers[volume-1].LastFileSizeCompressed)
	if segment > len(buf) {
		segment = len(buf)
	}

	_, err = f.ReadAt(buf[:segment], int64(entry.Offset))
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: split segment of %s: %v", ErrTruncatedRecord, entry.Path, err)
	}
	if closeErr != nil {
		return nil, closeErr
	}

	read := segment
	for read < len(buf) {
		volume++
		if volume > len(r.headers) {
			return nil, fmt.Errorf("%w: split payload of %s ends at volume %d", ErrTruncatedRecord, entry.Path, volume-1)
		}

		f, err := r.openVolume(volume)
		if err != nil {
			return nil, err
		}

		hdr := &r.headers[volume-1]
		segment = int(hdr.FirstFileSizeCompressed)
		if segment > len(buf)-read {
			segment = len(buf) - read
		}
		if segment == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("%w: split payload of %s stalls at volume %d", ErrTruncatedRecord, entry.Path, volume)
		}

		_, err = f.ReadAt(buf[read:read+segment], int64(hdr.FirstFileOffset))
		closeErr := f.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: split segment of %s: %v", ErrTruncatedRecord, entry.Path, err)
		}
		if closeErr != nil {
			return nil, closeErr
		}

		read += segment
	}

	return buf, nil
}
