// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/iscab

package iscab

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// memberMatcher holds compiled selection rules for extraction.
type memberMatcher struct {
	matcher *pathrules.Matcher
}

// newMemberMatcher compiles member selection rules. A nil matcher means
// no rule filtering.
func newMemberMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*memberMatcher, error) {
	rules = normalizeMemberRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidMemberPattern, err)
	}

	return &memberMatcher{matcher: matcher}, nil
}

// normalizeMemberRules converts rule patterns to slash form and drops empty patterns.
func normalizeMemberRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := strings.ReplaceAll(strings.TrimSpace(rule.Pattern), `\`, "/")
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Match reports whether a member path is included by the selection rules.
func (m *memberMatcher) Match(memberPath string) bool {
	if m == nil || m.matcher == nil {
		return true
	}

	candidate := strings.ReplaceAll(NormalizeMemberPath(memberPath), `\`, "/")
	if candidate == "" {
		return false
	}

	return m.matcher.Included(candidate, false)
}

// filterEntriesByPrefix keeps entries under prefix (or an exact match if it
// names a single member). Comparison is case-insensitive like lookups.
func filterEntriesByPrefix(entries []FileEntry, prefix string) []FileEntry {
	key := memberKey(prefix)
	if key == "" {
		return entries
	}

	keyWithSep := key + `\`
	out := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		entryKey := memberKey(entry.Path)
		if entryKey == key || strings.HasPrefix(entryKey, keyWithSep) {
			out = append(out, entry)
		}
	}

	return out
}

// selectExtractEntries applies prefix and rule filters to catalog entries.
func selectExtractEntries(entries []FileEntry, opts ExtractOptions) ([]FileEntry, error) {
	entries = filterEntriesByPrefix(entries, opts.Prefix)

	matcher, err := newMemberMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return nil, err
	}
	if matcher == nil {
		return entries, nil
	}

	out := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if matcher.Match(entry.Path) {
			out = append(out, entry)
		}
	}

	return out, nil
}
