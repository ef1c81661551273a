// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"strings"
	"unicode"
)

// Shorthand prefixes and the verbs they expand to.
const (
	SayPrefix   = '"'
	EmotePrefix = ':'
	SayVerb     = "say"
	EmoteVerb   = "emote"
)

// ParsedCommand is a typed line split into a verb and its argument string.
type ParsedCommand struct {
	Verb   string // first whitespace-delimited token
	Argstr string // remainder, trimmed; internal whitespace preserved
	Raw    string // original input
}

// HasDobj reports whether the command carries a direct-object token.
func (p *ParsedCommand) HasDobj() bool { return p.Argstr != "" }

// Parse expands the say and emote shorthands and splits input into verb and
// argument string. A blank line is not a command: Parse returns false and
// the caller should do nothing.
func Parse(input string) (*ParsedCommand, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, false
	}

	switch trimmed[0] {
	case SayPrefix:
		trimmed = SayVerb + " " + trimmed[1:]
	case EmotePrefix:
		trimmed = EmoteVerb + " " + trimmed[1:]
	}

	idx := strings.IndexFunc(trimmed, unicode.IsSpace)
	if idx == -1 {
		return &ParsedCommand{Verb: trimmed, Raw: input}, true
	}
	return &ParsedCommand{
		Verb:   trimmed[:idx],
		Argstr: strings.TrimSpace(trimmed[idx:]),
		Raw:    input,
	}, true
}
