// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"log/slog"

	"github.com/woozymasta/pathrules"
)

// Internal binary layout and format limits.
const (
	cabSignature = 0x28635349 // "ISc(" little-endian
	versionMin   = 5
	versionMax   = 13

	headerSizeV5   = 60   // fixed header bytes consumed on the version-5 path
	headerSizeV6   = 84   // fixed header bytes consumed on the version-6+ path
	fileRecSizeV5  = 42   // bytes consumed from one version-5 file record
	fileRecSizeV6  = 0x57 // version-6+ file record stride
	descriptorSize = 36   // descriptor bytes read past the 12-byte prefix
)

// Entry flag bits as stored in file-table records; other bits are ignored.
const (
	// FlagSplit marks an entry whose compressed payload spans volumes.
	FlagSplit uint16 = 1 << 0
	// FlagObfuscated marks an entry scrambled by an undocumented transform.
	FlagObfuscated uint16 = 1 << 1
	// FlagCompressed marks an entry stored with framed deflate compression.
	FlagCompressed uint16 = 1 << 2
	// FlagInvalid marks an entry the format itself declares unusable.
	FlagInvalid uint16 = 1 << 3
)

// FileEntry describes a single logical file inside the cabinet.
type FileEntry struct {
	// Path is the logical path as stored in the file table, "\" separated.
	Path string `json:"path" yaml:"path"`
	// UncompressedSize is decoded payload size in bytes.
	UncompressedSize uint32 `json:"uncompressed_size" yaml:"uncompressed_size"`
	// CompressedSize is stored payload size in bytes.
	CompressedSize uint32 `json:"compressed_size" yaml:"compressed_size"`
	// Offset is byte position of the payload inside its starting volume.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Flags stores the entry flag bits.
	Flags uint16 `json:"flags,omitempty" yaml:"flags,omitempty"`
	// Volume is the 1-based index of the starting volume.
	Volume uint16 `json:"volume" yaml:"volume"`
}

// IsCompressed reports whether this entry is stored with framed deflate compression.
func (e *FileEntry) IsCompressed() bool {
	return e.Flags&FlagCompressed != 0
}

// IsSplit reports whether this entry's compressed payload spans volumes.
func (e *FileEntry) IsSplit() bool {
	return e.Flags&FlagSplit != 0
}

// IsObfuscated reports whether this entry is scrambled and unreadable.
func (e *FileEntry) IsObfuscated() bool {
	return e.Flags&FlagObfuscated != 0
}

// VolumeHeader is the parsed fixed header of one cabinet volume.
type VolumeHeader struct {
	// Version is the cabinet format version in 5..13.
	Version int
	// CabDescriptorOffset locates the cabinet descriptor in this volume.
	CabDescriptorOffset uint32
	// DataOffset is the start of payload data in this volume.
	DataOffset uint32
	// FirstFileIndex is the first file-table index whose payload starts here (version 5).
	FirstFileIndex uint32
	// LastFileIndex is the last file-table index whose payload starts here (version 5).
	LastFileIndex uint32
	// FirstFileOffset locates the continuation segment of a file begun in the previous volume.
	FirstFileOffset uint32
	// FirstFileSizeUncompressed is the decoded size of the continuation segment.
	FirstFileSizeUncompressed uint32
	// FirstFileSizeCompressed is the stored size of the continuation segment.
	FirstFileSizeCompressed uint32
	// LastFileOffset locates the trailing partial segment at this volume's end.
	LastFileOffset uint32
	// LastFileSizeUncompressed is the decoded size of the trailing segment.
	LastFileSizeUncompressed uint32
	// LastFileSizeCompressed is the stored size of the trailing segment.
	LastFileSizeCompressed uint32
}

// ReaderOptions configures reader behavior.
type ReaderOptions struct {
	// Logger receives non-fatal diagnostics (size mismatches, skipped
	// obfuscated entries, volume open failures). Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

// applyDefaults fills zero-valued reader options with defaults.
func (opts *ReaderOptions) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one entry is fully written to disk.
	OnEntryDone func(entry FileEntry, written int64, outputPath string) `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// Rules defines ordered path rules selecting members for extraction.
	// Empty rule set means all members.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control member rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// Prefix limits extraction to members under this path prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.MatcherOptions == (pathrules.MatcherOptions{}) {
		opts.MatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}
