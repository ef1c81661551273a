// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/roomoo/roo/internal/world"
	"github.com/roomoo/roo/pkg/errutil"
)

func TestPlayerMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), "Something went wrong. Try again."},
		{"unknown command", ErrUnknownCommand("xyzzy"), "I couldn't understand that."},
		{"rate limited", ErrRateLimited(500), "Too many commands. Please slow down."},
		{"no player", ErrNoPlayer(), "You are not connected as a player."},
		{"world permission", oops.Code(world.CodePermissionDenied).Errorf("nope"), "Permission denied."},
		{"wrapped world code", oops.Wrapf(oops.Code(world.CodePropertyNotFound).Errorf("x"), "outer"), "Property not found."},
		{"script error", ScriptError("look", errors.New("attempt to index a nil value")), "attempt to index a nil value"},
		{"unknown code", oops.Code("SOMETHING_ELSE").Errorf("x"), "Something went wrong. Try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlayerMessage(tt.err))
		})
	}
}

func TestErrorCodes(t *testing.T) {
	errutil.AssertErrorCode(t, ErrUnknownCommand("x"), CodeUnknownCommand)
	errutil.AssertErrorContext(t, ErrUnknownCommand("x"), "verb", "x")
	errutil.AssertErrorCode(t, ErrRateLimited(10), CodeRateLimited)
	errutil.AssertErrorContext(t, ErrRateLimited(10), "cooldown_ms", int64(10))
	errutil.AssertErrorCode(t, ErrNoPlayer(), CodeNoPlayer)
	errutil.AssertErrorCode(t, ScriptError("look", errors.New("x")), CodeScriptError)
}
