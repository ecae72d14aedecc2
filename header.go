// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"encoding/binary"
	"fmt"
	"io"
)

// readVolumeHeader parses the fixed header at offset 0 of one volume.
func readVolumeHeader(ra io.ReaderAt) (VolumeHeader, error) {
	var hdr VolumeHeader

	buf := make([]byte, headerSizeV6)
	n, err := ra.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return hdr, fmt.Errorf("read volume header: %w", err)
	}
	if n < 8 {
		return hdr, fmt.Errorf("%w: volume header", ErrTruncatedRecord)
	}
	buf = buf[:n]

	signature := binary.LittleEndian.Uint32(buf[0:4])
	if signature != cabSignature {
		return hdr, fmt.Errorf("%w: got %#08x", ErrBadSignature, signature)
	}

	magic := binary.LittleEndian.Uint32(buf[4:8])
	hdr.Version = cabinetVersion(magic)
	if hdr.Version < versionMin || hdr.Version > versionMax {
		return hdr, fmt.Errorf("%w: version %d, magic %#08x", ErrUnsupportedVersion, hdr.Version, magic)
	}

	need := headerSizeV5
	if hdr.Version >= 6 {
		need = headerSizeV6
	}
	if len(buf) < need {
		return hdr, fmt.Errorf("%w: volume header", ErrTruncatedRecord)
	}

	p := 8
	read32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[p:])
		p += 4
		return v
	}
	skip := func(n int) { p += n }

	skip(4) // volume info
	hdr.CabDescriptorOffset = read32()
	skip(4) // descriptor size

	hdr.DataOffset = read32()
	skip(4)
	hdr.FirstFileIndex = read32()
	hdr.LastFileIndex = read32()

	if hdr.Version == versionMin {
		hdr.FirstFileOffset = read32()
		hdr.FirstFileSizeUncompressed = read32()
		hdr.FirstFileSizeCompressed = read32()
		hdr.LastFileOffset = read32()
		hdr.LastFileSizeUncompressed = read32()
		hdr.LastFileSizeCompressed = read32()
		return hdr, nil
	}

	// Version 6+ stores these as 64-bit slots; only the low word is used.
	hdr.FirstFileOffset = read32()
	skip(4)
	hdr.FirstFileSizeUncompressed = read32()
	skip(4)
	hdr.FirstFileSizeCompressed = read32()
	skip(4)
	hdr.LastFileOffset = read32()
	skip(4)
	hdr.LastFileSizeUncompressed = read32()
	skip(4)
	hdr.LastFileSizeCompressed = read32()
	skip(4)

	return hdr, nil
}

// cabinetVersion derives the format version from the header magic word.
// A derived value of 0 means the oldest supported layout, version 5.
func cabinetVersion(magic uint32) int {
	var version int
	if magic>>24 == 1 {
		version = int((magic >> 12) & 0xF)
	} else {
		version = int(magic&0xFFFF) / 100
	}

	if version == 0 {
		version = versionMin
	}

	return version
}
