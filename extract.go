// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// extractTask is one member scheduled for extraction with its resolved
// output path relative to the destination root.
type extractTask struct {
	relPath string
	entry   FileEntry
}

// Extract writes selected members to dstDir. Members are selected with
// ExtractOptions.Prefix and Rules; obfuscated members are skipped with a
// diagnostic. Work is ordered by starting volume and payload offset so each
// volume file is read front to back, and parallelized by MaxWorkers. On
// failure the first encountered error is returned.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if r == nil || r.src == nil {
		return ErrNilReader
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}

	opts.applyDefaults()

	entries := make([]FileEntry, 0, len(r.catalog))
	for _, entry := range r.catalog {
		entries = append(entries, entry)
	}

	entries, err := selectExtractEntries(entries, opts)
	if err != nil {
		return err
	}

	tasks, err := r.planExtract(entries)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		return nil
	}

	dstRoot, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRoot, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var failOnce sync.Once
	var firstErr error
	fail := func(err error) {
		failOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	taskCh := make(chan extractTask)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for task := range taskCh {
				if err := r.extractMember(ctx, dstRoot, task, opts); err != nil {
					fail(err)
					return
				}
			}
		})
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
		case taskCh <- task:
			continue
		}

		break
	}

	close(taskCh)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	return ctx.Err()
}

// planExtract resolves output paths for the selected members and orders the
// work by starting volume and payload offset. Obfuscated members cannot be
// decoded and are dropped with a diagnostic.
func (r *Reader) planExtract(entries []FileEntry) ([]extractTask, error) {
	tasks := make([]extractTask, 0, len(entries))
	for _, entry := range entries {
		if entry.IsObfuscated() {
			r.log.Warn("skipping obfuscated member", "path", entry.Path)
			continue
		}

		relPath, err := entryExtractPath(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("member path %s: %w", entry.Path, err)
		}

		tasks = append(tasks, extractTask{entry: entry, relPath: relPath})
	}

	sort.Slice(tasks, func(i, j int) bool {
		a, b := &tasks[i].entry, &tasks[j].entry
		if a.Volume != b.Volume {
			return a.Volume < b.Volume
		}

		return a.Offset < b.Offset
	})

	return tasks, nil
}

// extractMember decodes one member through the reader's split/inflate
// pipeline and writes it below dstRoot.
func (r *Reader) extractMember(ctx context.Context, dstRoot string, task extractTask, opts ExtractOptions) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	mr, err := r.openEntry(task.entry)
	if err != nil {
		return err
	}
	defer func() { _ = mr.Close() }()

	outPath := filepath.Join(dstRoot, task.relPath)
	if dir := filepath.Dir(outPath); dir != dstRoot {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory for %s: %w", task.entry.Path, err)
		}
	}

	file, err := opts.FileMode.open(outPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", task.entry.Path, err)
	}

	written, copyErr := io.Copy(file, mr)
	closeErr := file.Close()
	if copyErr != nil {
		return fmt.Errorf("write %s: %w", task.entry.Path, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", task.entry.Path, closeErr)
	}

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(task.entry, written, outPath)
	}

	return nil
}

// open opens an output file according to the extraction policy.
func (m ExtractFileMode) open(path string) (*os.File, error) {
	switch m {
	case ExtractFileModeAuto:
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
		}

		return file, err
	case ExtractFileModeTruncate:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	case ExtractFileModeCreateOnly:
		return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", m)
	}
}

// entryExtractPath maps a member's "\"-separated cabinet path onto a
// relative filesystem path. Member names come from the file table and may
// be hostile; components that would climb out of the destination or name a
// drive are rejected rather than rewritten.
func entryExtractPath(memberPath string) (string, error) {
	norm := NormalizeMemberPath(memberPath)
	if norm == "" {
		return "", ErrInvalidExtractPath
	}

	parts := strings.Split(norm, `\`)
	clean := parts[:0]
	for _, part := range parts {
		switch {
		case part == "" || part == ".":
			continue
		case part == "..":
			return "", fmt.Errorf("%w: parent reference", ErrInvalidExtractPath)
		case strings.ContainsAny(part, ":\x00"):
			// Drive letters and NULs never occur in valid member names.
			return "", fmt.Errorf("%w: component %q", ErrInvalidExtractPath, part)
		default:
			clean = append(clean, part)
		}
	}

	if len(clean) == 0 {
		return "", ErrInvalidExtractPath
	}

	return filepath.Join(clean...), nil
}
