// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

/*
Package iscab provides read-only access to InstallShield cabinet archives
(.cab/.hdr, format versions 5 through 13). A cabinet family is addressed by
one of its sibling files with a single-digit volume index (the base name is
that file name without its last five characters): given "data1.cab" the
reader enumerates "data1.cab", "data2.cab", ... and reads the catalog from
the "data1.hdr"
sidecar when present, falling back to the first volume. Members are exposed
as a flat, case-insensitive path namespace with "\" separators; payloads
split across volumes are reassembled and framed-deflate payloads are
decompressed transparently.

Obfuscated members are listed but cannot be read or extracted; requesting
one fails with ErrObfuscated.

# Reading

Open a cabinet and list or read members:

	r, err := iscab.Open("game/data1.cab")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, name := range r.Members() {
	    data, _ := r.ReadEntry(name)
	    // use data
	}

OpenEntry returns a seekable stream sized to the decoded member:

	mr, err := r.OpenEntry(`setup\config.ini`)
	if err != nil {
	    return err
	}
	defer mr.Close()
	_ = mr.Size()

For metadata-only scans, use fast helpers without keeping a reader:

	names, err := iscab.ListMembers("game/data1.cab")
	if err != nil {
	    return err
	}
	_ = names

Cabinets nested inside another archive open through any fs.FS:

	zr, _ := zip.OpenReader("installer.zip")
	r, err := iscab.OpenFS(zr, "disk1/data1.cab")

# Extracting

Extract members to a directory (parallel workers), optionally selected by
path rules from github.com/woozymasta/pathrules:

	err := r.Extract(ctx, "out/", iscab.ExtractOptions{
	    MaxWorkers: 4,
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.dll"},
	        {Action: pathrules.ActionInclude, Pattern: "scripts/**"},
	    },
	})

# Diagnostics

Non-fatal conditions (mismatched table sizes, skipped obfuscated members,
volume open failures) are reported through ReaderOptions.Logger, a standard
log/slog logger. See the package example for wiring a handler.
*/
package iscab
