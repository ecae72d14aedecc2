// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// singleStreamSentinel marks a payload stored as one raw deflate stream
// instead of the chunked framing. Read big-endian from the last four bytes.
const singleStreamSentinel = 0x0000FFFF

// inflateEntry decodes a compressed payload into dst. The payload is either
// one raw deflate stream, detected by the trailing sentinel, or a sequence
// of (u16 LE chunk length, chunk) records inflated into consecutive output.
func inflateEntry(dst, src []byte) error {
	if len(dst) == 0 || len(src) == 0 {
		return nil
	}

	if len(src) >= 4 && binary.BigEndian.Uint32(src[len(src)-4:]) == singleStreamSentinel {
		produced, err := inflateRaw(dst, src)
		if err != nil {
			return err
		}
		if produced != len(dst) {
			return fmt.Errorf("%w: produced %d of %d bytes", ErrInflate, produced, len(dst))
		}

		return nil
	}

	out, in := 0, 0
	for out < len(dst) && in < len(src) {
		if in+2 > len(src) {
			return fmt.Errorf("%w: chunk length header", ErrInflate)
		}

		chunkSize := int(binary.LittleEndian.Uint16(src[in:]))
		in += 2
		if in+chunkSize > len(src) {
			return fmt.Errorf("%w: chunk of %d bytes exceeds input", ErrInflate, chunkSize)
		}

		produced, err := inflateRaw(dst[out:], src[in:in+chunkSize])
		if err != nil {
			return err
		}

		out += produced
		in += chunkSize
	}

	return nil
}

// inflateRaw decodes one raw deflate stream into dst and reports how many
// output bytes it produced. Chunks end with a sync flush rather than a
// final block, so running out of input at a block boundary is not an error.
func inflateRaw(dst, src []byte) (int, error) {
	fr := flate.NewReader(bytes.NewReader(src))
	defer func() { _ = fr.Close() }()

	total := 0
	for total < len(dst) {
		n, err := fr.Read(dst[total:])
		total += n

		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("%w: %v", ErrInflate, err)
		}
	}

	return total, nil
}
