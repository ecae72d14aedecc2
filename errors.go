// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import "errors"

// Sentinel errors for cabinet operations. Use errors.Is in callers.
var (
	// ErrBadSignature means a volume does not start with the "ISc(" magic.
	ErrBadSignature = errors.New("invalid cabinet volume: bad signature")
	// ErrUnsupportedVersion means the cabinet version is outside 5..13.
	ErrUnsupportedVersion = errors.New("unsupported cabinet version")
	// ErrTruncatedRecord means a read hit end of stream mid-record.
	ErrTruncatedRecord = errors.New("truncated cabinet record")
	// ErrMissingVolume means no volume header covers a file-table index.
	ErrMissingVolume = errors.New("no volume covers file index")
	// ErrVolumeOpen means a required volume file could not be opened.
	ErrVolumeOpen = errors.New("cannot open cabinet volume")
	// ErrObfuscated means the entry is obfuscated and cannot be read.
	ErrObfuscated = errors.New("obfuscated entry is not supported")
	// ErrInflate means the entry payload failed to decompress.
	ErrInflate = errors.New("inflate failed")
	// ErrEntryNotFound means the member path is not in the catalog.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrClosed means the reader is already closed.
	ErrClosed = errors.New("reader already closed")
	// ErrInvalidExtractPath means a member path is invalid as an extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidMemberPattern means one or more member selection rules are invalid.
	ErrInvalidMemberPattern = errors.New("invalid member selection rules")
)
