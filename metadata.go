// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import "io/fs"

// ListMembers opens a cabinet family and returns all member paths without
// keeping a reader around.
func ListMembers(base string) ([]string, error) {
	r, err := Open(base)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Members(), nil
}

// ListMembersFS works like ListMembers with the family resolved through a
// parent filesystem.
func ListMembersFS(fsys fs.FS, base string) ([]string, error) {
	r, err := OpenFS(fsys, base)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Members(), nil
}

// ListEntries opens a cabinet family and returns full member metadata.
func ListEntries(base string) ([]FileEntry, error) {
	r, err := Open(base)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entries := make([]FileEntry, 0, len(r.catalog))
	for _, entry := range r.catalog {
		entries = append(entries, entry)
	}

	return entries, nil
}
