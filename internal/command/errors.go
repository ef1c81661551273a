// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"errors"

	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

// Error codes for command dispatch failures.
const (
	CodeUnknownCommand = "UNKNOWN_COMMAND"
	CodeRateLimited    = "RATE_LIMITED"
	CodeNoPlayer       = "NO_PLAYER"
	CodeScriptError    = "SCRIPT_ERROR"
)

// Sentinel errors for constructor validation.
var (
	ErrNilShared  = errors.New("shared database must not be nil")
	ErrNilRuntime = errors.New("runtime must not be nil")
)

// ErrUnknownCommand reports that no verb matched the command.
func ErrUnknownCommand(verb string) error {
	return oops.Code(CodeUnknownCommand).
		With("verb", verb).
		Errorf("no verb matches %q", verb)
}

// ErrRateLimited reports a command refused by the rate limiter.
func ErrRateLimited(cooldownMs int64) error {
	return oops.Code(CodeRateLimited).
		With("cooldown_ms", cooldownMs).
		Errorf("Too many commands. Please slow down.")
}

// ErrNoPlayer reports a dispatch without a task in the context.
func ErrNoPlayer() error {
	return oops.Code(CodeNoPlayer).Errorf("no player associated with this command")
}

// ScriptError wraps a runtime failure that carries no world error code.
func ScriptError(verb string, cause error) error {
	return oops.Code(CodeScriptError).
		With("verb", verb).
		With("message", cause.Error()).
		Wrapf(cause, "verb %s failed", verb)
}

var phrases = map[string]string{
	world.CodePermissionDenied:   "Permission denied.",
	world.CodeInvalidArgument:    "Invalid argument.",
	world.CodeInvalidIndirection: "That object does not exist.",
	world.CodePropertyNotFound:   "Property not found.",
	world.CodeVerbNotFound:       "Verb not found.",
	world.CodeRecursiveMove:      "You can't put something inside itself.",
	world.CodeTypeMismatch:       "Type mismatch.",
	world.CodeRange:              "Index out of range.",
	world.CodeQuota:              "You own too many objects already.",
	world.CodeNotAccepted:        "It won't go in there.",
	world.CodeNotImplemented:     "That isn't available here.",
	world.CodeObjectNotFound:     "That object does not exist.",
	CodeUnknownCommand:           "I couldn't understand that.",
	CodeRateLimited:              "Too many commands. Please slow down.",
	CodeNoPlayer:                 "You are not connected as a player.",
}

// PlayerMessage maps an error to the short phrase sent back to the player.
func PlayerMessage(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "Something went wrong. Try again."
	}
	code, _ := any(oopsErr.Code()).(string)
	if code == CodeScriptError {
		if msg, ok := oopsErr.Context()["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if phrase, ok := phrases[code]; ok {
		return phrase
	}
	return "Something went wrong. Try again."
}
