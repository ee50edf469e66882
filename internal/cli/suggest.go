// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// suggest.go - Command suggestion for typo correction.
package cli

import (
	"strings"
)

// knownCommands lists every command and alias Parse accepts, used for
// "did you mean" hints on unknown commands.
var knownCommands = []string{
	"list", "ls",
	"add",
	"done",
	"remove", "rm",
	"ask",
	"chat",
	"status", "s",
	"config",
	"setup",
	"version",
	"help",
}

// SuggestCommand returns the closest known command when the input looks
// like a typo, or "" when nothing is close enough.
func SuggestCommand(input string) string {
	input = strings.ToLower(input)

	// A single letter is as likely a stray key as a typo.
	if len(input) < 2 {
		return ""
	}

	// Short inputs tolerate one edit, longer ones two: "lst" finds
	// "list", "confg" finds "config", unrelated words find nothing.
	maxDistance := 1
	if len(input) >= 4 {
		maxDistance = 2
	}

	best := ""
	bestDistance := -1

	for _, cmd := range knownCommands {
		d := editDistance(input, cmd)
		if d == 0 {
			return ""
		}
		if d <= maxDistance && (bestDistance == -1 || d < bestDistance) {
			bestDistance = d
			best = cmd
		}
	}

	return best
}

// editDistance is the Levenshtein distance between two strings, kept to
// two rows instead of a full matrix.
func editDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
