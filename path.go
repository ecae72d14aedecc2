// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import "strings"

// NormalizeMemberPath converts a member path to canonical cabinet form:
// "\" separators, no surrounding spaces, no leading separator.
// It accepts both "/" and "\" in the input.
func NormalizeMemberPath(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "/", `\`)
	raw = strings.TrimPrefix(raw, `\`)
	return strings.TrimSuffix(raw, `\`)
}

// memberKey builds the case-insensitive catalog key for a member path.
func memberKey(raw string) string {
	return strings.ToLower(NormalizeMemberPath(raw))
}

// stripCabinetSuffix derives the family base name from one sibling file name.
// A trailing ".cab" or ".hdr" is removed together with the volume digit that
// precedes it, so "data1.cab" and "data1.hdr" both yield "data".
func stripCabinetSuffix(name string) string {
	if len(name) < 5 {
		return name
	}

	if strings.HasSuffix(name, ".cab") || strings.HasSuffix(name, ".hdr") {
		return name[:len(name)-5]
	}

	return name
}
