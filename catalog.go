// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
)

// catalogScanChunkSize is a chunk size used by null-terminated string scanner.
const catalogScanChunkSize = 256

// cabDescriptor is the parsed slice of the cabinet descriptor the reader needs.
type cabDescriptor struct {
	fileTableOffset  uint32
	fileTableOffset2 uint32 // version 6+ only
	directoryCount   uint32
	fileCount        uint32
}

// buildCatalog parses the file table of the carrier stream into a
// case-insensitive member map. headers are the already parsed volume
// headers in volume order; carrierHdr is the carrier's own header.
func buildCatalog(ra io.ReaderAt, carrierHdr VolumeHeader, headers []VolumeHeader, log *slog.Logger) (map[string]FileEntry, error) {
	desc, err := readCabDescriptor(ra, carrierHdr, log)
	if err != nil {
		return nil, err
	}

	if carrierHdr.Version >= 6 {
		return buildCatalogV6(ra, carrierHdr, desc)
	}

	return buildCatalogV5(ra, carrierHdr, desc, headers, log)
}

// readCabDescriptor reads the descriptor fields locating the file table.
func readCabDescriptor(ra io.ReaderAt, hdr VolumeHeader, log *slog.Logger) (cabDescriptor, error) {
	var desc cabDescriptor

	buf := make([]byte, descriptorSize)
	if _, err := ra.ReadAt(buf, int64(hdr.CabDescriptorOffset)+12); err != nil {
		return desc, fmt.Errorf("%w: cabinet descriptor: %v", ErrTruncatedRecord, err)
	}

	desc.fileTableOffset = binary.LittleEndian.Uint32(buf[0:4])
	fileTableSize := binary.LittleEndian.Uint32(buf[8:12])
	fileTableSize2 := binary.LittleEndian.Uint32(buf[12:16])
	desc.directoryCount = binary.LittleEndian.Uint32(buf[16:20])
	desc.fileCount = binary.LittleEndian.Uint32(buf[28:32])
	desc.fileTableOffset2 = binary.LittleEndian.Uint32(buf[32:36])

	if fileTableSize != fileTableSize2 {
		log.Warn("file table sizes do not match",
			"size", fileTableSize, "size2", fileTableSize2)
	}

	return desc, nil
}

// buildCatalogV6 parses the fixed-stride file records of version 6 and later.
// The record stores the owning volume directly.
func buildCatalogV6(ra io.ReaderAt, hdr VolumeHeader, desc cabDescriptor) (map[string]FileEntry, error) {
	catalog := make(map[string]FileEntry, desc.fileCount)
	tableBase := int64(hdr.CabDescriptorOffset) + int64(desc.fileTableOffset)

	rec := make([]byte, fileRecSizeV6)
	for j := uint32(0); j < desc.fileCount; j++ {
		recOff := tableBase + int64(desc.fileTableOffset2) + int64(j)*fileRecSizeV6
		if _, err := ra.ReadAt(rec, recOff); err != nil {
			return nil, fmt.Errorf("%w: file record %d: %v", ErrTruncatedRecord, j, err)
		}

		entry := FileEntry{
			Flags:            binary.LittleEndian.Uint16(rec[0:2]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[2:6]),
			CompressedSize:   binary.LittleEndian.Uint32(rec[10:14]),
			Offset:           binary.LittleEndian.Uint32(rec[18:22]),
			Volume:           binary.LittleEndian.Uint16(rec[85:87]),
		}
		nameOffset := binary.LittleEndian.Uint32(rec[58:62])

		if nameOffset == 0 || entry.Offset == 0 || entry.Flags&FlagInvalid != 0 {
			continue
		}

		name, err := readNullTerminated(ra, tableBase+int64(nameOffset))
		if err != nil {
			return nil, fmt.Errorf("%w: name of file record %d: %v", ErrTruncatedRecord, j, err)
		}
		if name == "" {
			continue
		}

		entry.Path = name
		insertEntry(catalog, entry)
	}

	return catalog, nil
}

// buildCatalogV5 parses the offset-array file records of version 5.
// Volume ownership is resolved through the per-volume index ranges, and
// the last entry of a volume is flagged as split when its compressed size
// differs from that volume's non-zero trailing segment size.
func buildCatalogV5(ra io.ReaderAt, hdr VolumeHeader, desc cabDescriptor, headers []VolumeHeader, log *slog.Logger) (map[string]FileEntry, error) {
	catalog := make(map[string]FileEntry, desc.fileCount)
	tableBase := int64(hdr.CabDescriptorOffset) + int64(desc.fileTableOffset)

	tableCount := desc.directoryCount + desc.fileCount
	offsets := make([]byte, 4*tableCount)
	if _, err := ra.ReadAt(offsets, tableBase); err != nil {
		return nil, fmt.Errorf("%w: file table offsets: %v", ErrTruncatedRecord, err)
	}

	fileIndex := uint32(0)
	rec := make([]byte, fileRecSizeV5)
	for j := desc.directoryCount; j < tableCount; j++ {
		recOff := tableBase + int64(binary.LittleEndian.Uint32(offsets[4*j:]))
		if _, err := ra.ReadAt(rec, recOff); err != nil {
			return nil, fmt.Errorf("%w: file record %d: %v", ErrTruncatedRecord, j, err)
		}

		nameOffset := binary.LittleEndian.Uint32(rec[0:4])
		entry := FileEntry{
			Flags:            binary.LittleEndian.Uint16(rec[8:10]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[10:14]),
			CompressedSize:   binary.LittleEndian.Uint32(rec[14:18]),
			Offset:           binary.LittleEndian.Uint32(rec[38:42]),
		}

		if nameOffset == 0 || entry.Offset == 0 || entry.Flags&FlagInvalid != 0 {
			continue
		}

		for i := range headers {
			vh := &headers[i]
			if fileIndex < vh.FirstFileIndex || fileIndex > vh.LastFileIndex {
				continue
			}

			entry.Volume = uint16(i + 1)
			if fileIndex == vh.LastFileIndex &&
				entry.CompressedSize != vh.LastFileSizeCompressed &&
				vh.LastFileSizeCompressed != 0 {
				entry.Flags |= FlagSplit
			}

			break
		}

		name, err := readNullTerminated(ra, tableBase+int64(nameOffset))
		if err != nil {
			return nil, fmt.Errorf("%w: name of file record %d: %v", ErrTruncatedRecord, j, err)
		}

		if entry.Volume == 0 {
			log.Warn("no volume covers file", "path", name, "index", fileIndex)
			return nil, fmt.Errorf("%w: %s", ErrMissingVolume, name)
		}

		fileIndex++
		if name == "" {
			continue
		}

		entry.Path = name
		insertEntry(catalog, entry)
	}

	return catalog, nil
}

// insertEntry adds one entry to the catalog. Entries can appear in multiple
// volumes (sometimes erroneously); the one with the lowest volume wins.
func insertEntry(catalog map[string]FileEntry, entry FileEntry) {
	key := memberKey(entry.Path)
	if cur, ok := catalog[key]; ok && cur.Volume <= entry.Volume {
		return
	}

	catalog[key] = entry
}

// readNullTerminated reads a zero-terminated string from ReaderAt starting at offset.
func readNullTerminated(ra io.ReaderAt, offset int64) (string, error) {
	var out []byte
	total := 0

	var chunk [catalogScanChunkSize]byte
	for {
		n, err := ra.ReadAt(chunk[:], offset+int64(total))
		if n > 0 {
			part := chunk[:n]
			if idx := bytes.IndexByte(part, 0); idx >= 0 {
				if len(out) == 0 {
					return string(part[:idx]), nil
				}

				return string(append(out, part[:idx]...)), nil
			}

			out = append(out, part...)
			total += n
		}

		if err != nil {
			return "", err
		}

		if n == 0 {
			return "", io.EOF
		}
	}
}
