package iscab

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/flate"
)

// Fixture layout constants shared by the handcrafted cabinet builders.
const (
	fixDescOffset      = 0x100 // cabinet descriptor position inside the volume
	fixFileTableOffset = 0x40  // file table position relative to the descriptor
)

// fixMember describes one member to place into a handcrafted cabinet.
type fixMember struct {
	name    string
	flags   uint16
	size    uint32 // uncompressed size
	csize   uint32 // stored size; 0 means len(payload)
	payload []byte
	volume  uint16 // v6 record volume field
	offset  uint32 // payload position; 0 means auto-place
}

func fixPut16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:], v) }
func fixPut32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:], v) }

// buildV6Volume assembles a single version-6 cabinet volume image.
func buildV6Volume(t *testing.T, members []fixMember) []byte {
	t.Helper()

	tableBase := fixDescOffset + fixFileTableOffset

	// Name region sits at the start of the file table, records after it.
	nameOffsets := make([]uint32, len(members))
	var names []byte
	cur := uint32(8)
	for i, m := range members {
		nameOffsets[i] = cur
		names = append(names, m.name...)
		names = append(names, 0)
		cur += uint32(len(m.name)) + 1
	}

	recOffset := 8 + len(names)
	recBase := tableBase + recOffset
	payBase := recBase + len(members)*fileRecSizeV6

	offsets := make([]uint32, len(members))
	pay := payBase
	for i, m := range members {
		offsets[i] = m.offset
		if offsets[i] == 0 {
			offsets[i] = uint32(pay)
		}

		end := int(offsets[i]) + len(m.payload)
		if end > pay {
			pay = end
		}
	}

	buf := make([]byte, pay)
	fixPut32(buf, 0, cabSignature)
	fixPut32(buf, 4, 600) // (600)/100 = version 6
	fixPut32(buf, 12, fixDescOffset)

	d := fixDescOffset + 12
	tableSize := uint32(recOffset + len(members)*fileRecSizeV6)
	fixPut32(buf, d+0, fixFileTableOffset)
	fixPut32(buf, d+8, tableSize)
	fixPut32(buf, d+12, tableSize)
	fixPut32(buf, d+16, 0) // directory count
	fixPut32(buf, d+28, uint32(len(members)))
	fixPut32(buf, d+32, uint32(recOffset))

	copy(buf[tableBase+8:], names)

	for i, m := range members {
		csize := m.csize
		if csize == 0 {
			csize = uint32(len(m.payload))
		}

		ro := recBase + i*fileRecSizeV6
		fixPut16(buf, ro+0, m.flags)
		fixPut32(buf, ro+2, m.size)
		fixPut32(buf, ro+10, csize)
		fixPut32(buf, ro+18, offsets[i])
		fixPut32(buf, ro+58, nameOffsets[i])
		fixPut16(buf, ro+85, m.volume)

		copy(buf[offsets[i]:], m.payload)
	}

	return buf
}

// fixV5Header holds the version-5 per-volume extent fields.
type fixV5Header struct {
	firstIndex, lastIndex               uint32
	firstOffset, firstSizeU, firstSizeC uint32
	lastOffset, lastSizeU, lastSizeC    uint32
}

// writeV5Header fills the fixed version-5 volume header into buf.
func writeV5Header(buf []byte, hdr fixV5Header) {
	fixPut32(buf, 0, cabSignature)
	fixPut32(buf, 4, 500) // (500)/100 = version 5
	fixPut32(buf, 12, fixDescOffset)
	fixPut32(buf, 28, hdr.firstIndex)
	fixPut32(buf, 32, hdr.lastIndex)
	fixPut32(buf, 36, hdr.firstOffset)
	fixPut32(buf, 40, hdr.firstSizeU)
	fixPut32(buf, 44, hdr.firstSizeC)
	fixPut32(buf, 48, hdr.lastOffset)
	fixPut32(buf, 52, hdr.lastSizeU)
	fixPut32(buf, 56, hdr.lastSizeC)
}

// buildV5Volume assembles one version-5 cabinet volume image. Only the
// first volume of a family carries catalog members; continuation volumes
// pass nil members and place raw segments at explicit offsets.
func buildV5Volume(t *testing.T, hdr fixV5Header, members []fixMember, segments map[uint32][]byte) []byte {
	t.Helper()

	tableBase := fixDescOffset + fixFileTableOffset
	offsetsLen := len(members) * 4

	nameOffsets := make([]uint32, len(members))
	var names []byte
	cur := uint32(offsetsLen)
	for i, m := range members {
		nameOffsets[i] = cur
		names = append(names, m.name...)
		names = append(names, 0)
		cur += uint32(len(m.name)) + 1
	}

	recRegion := offsetsLen + len(names)
	payBase := tableBase + recRegion + len(members)*fileRecSizeV5

	offsets := make([]uint32, len(members))
	pay := payBase
	for i, m := range members {
		offsets[i] = m.offset
		if offsets[i] == 0 {
			offsets[i] = uint32(pay)
		}

		end := int(offsets[i]) + len(m.payload)
		if end > pay {
			pay = end
		}
	}
	for off, seg := range segments {
		if end := int(off) + len(seg); end > pay {
			pay = end
		}
	}

	buf := make([]byte, pay)
	writeV5Header(buf, hdr)

	d := fixDescOffset + 12
	tableSize := uint32(recRegion + len(members)*fileRecSizeV5)
	fixPut32(buf, d+0, fixFileTableOffset)
	fixPut32(buf, d+8, tableSize)
	fixPut32(buf, d+12, tableSize)
	fixPut32(buf, d+16, 0) // directory count
	fixPut32(buf, d+28, uint32(len(members)))

	copy(buf[tableBase+offsetsLen:], names)

	for i, m := range members {
		recOff := uint32(recRegion + i*fileRecSizeV5)
		fixPut32(buf, tableBase+i*4, recOff)

		csize := m.csize
		if csize == 0 {
			csize = uint32(len(m.payload))
		}

		ro := tableBase + int(recOff)
		fixPut32(buf, ro+0, nameOffsets[i])
		fixPut16(buf, ro+8, m.flags)
		fixPut32(buf, ro+10, m.size)
		fixPut32(buf, ro+14, csize)
		fixPut32(buf, ro+38, offsets[i])

		copy(buf[offsets[i]:], m.payload)
	}

	for off, seg := range segments {
		copy(buf[off:], seg)
	}

	return buf
}

// writeCabinetFamily writes volume images as <base><i>.cab siblings and
// returns the path of the first volume.
func writeCabinetFamily(t *testing.T, dir, base string, volumes ...[]byte) string {
	t.Helper()

	var first string
	for i, img := range volumes {
		path := filepath.Join(dir, volumeName(base, i+1))
		if err := os.WriteFile(path, img, 0o600); err != nil {
			t.Fatalf("write volume %d: %v", i+1, err)
		}

		if i == 0 {
			first = path
		}
	}

	return first
}

// deflateClosed compresses data as one complete raw deflate stream.
func deflateClosed(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("flate close: %v", err)
	}

	return buf.Bytes()
}

// deflateSyncFlushed compresses data as a raw deflate stream ending with a
// sync flush, so the payload carries the 00 00 FF FF single-stream marker.
func deflateSyncFlushed(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("flate write: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("flate flush: %v", err)
	}

	return buf.Bytes()
}

// framedPayload builds the chunked (u16 length, deflate chunk) payload for
// data, splitting input into chunkSize pieces. A trailing pad byte keeps
// the payload from accidentally ending in the single-stream marker.
func framedPayload(t *testing.T, data []byte, chunkSize int) []byte {
	t.Helper()

	var out []byte
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}

		chunk := deflateClosed(t, data[:n])
		if len(chunk) > 0xFFFF {
			t.Fatalf("fixture chunk of %d bytes does not fit u16 framing", len(chunk))
		}

		var hdr [2]byte
		binary.LittleEndian.PutUint16(hdr[:], uint16(len(chunk)))
		out = append(out, hdr[:]...)
		out = append(out, chunk...)
		data = data[n:]
	}

	return append(out, 0)
}

// patternBytes produces deterministic non-repeating test content.
func patternBytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i/251)
	}

	return out
}
