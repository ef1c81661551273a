// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/world"
	"github.com/roomoo/roo/pkg/errutil"
)

func mustVerb(t *testing.T, args world.ArgSpec, names ...string) *world.Verb {
	t.Helper()
	v, err := world.NewVerb(names, world.NewID(), world.VerbPerms{Read: true, Exec: true}, args, "")
	require.NoError(t, err)
	return v
}

func TestParseVerbPerms(t *testing.T) {
	p, err := world.ParseVerbPerms("rxd")
	require.NoError(t, err)
	assert.Equal(t, world.VerbPerms{Read: true, Exec: true, Debug: true}, p)
	assert.Equal(t, "rxd", p.String())

	_, err = world.ParseVerbPerms("rq")
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
}

func TestParsePropertyPerms(t *testing.T) {
	p, err := world.ParsePropertyPerms("RC")
	require.NoError(t, err)
	assert.Equal(t, world.PropertyPerms{Read: true, Chown: true}, p)
	assert.Equal(t, "rc", p.String())

	_, err = world.ParsePropertyPerms("x")
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
}

func TestParseArgSpec(t *testing.T) {
	for _, s := range []string{"none", "any", "this"} {
		a, err := world.ParseArgSpec(s)
		require.NoError(t, err)
		assert.Equal(t, s, a.String())
	}
	_, err := world.ParseArgSpec("iobj")
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
}

func TestVerb_NameMatches(t *testing.T) {
	v := mustVerb(t, world.ArgsNone, "look", "l*", "exam?ne")

	tests := []struct {
		needle string
		want   bool
	}{
		{"look", true},
		{"l", true},
		{"lo", true},
		{"examine", true},
		{"examne", false},
		{"Look", false},
		{"get", false},
	}
	for _, tt := range tests {
		t.Run(tt.needle, func(t *testing.T) {
			assert.Equal(t, tt.want, v.NameMatches(tt.needle))
		})
	}
	assert.Equal(t, "look", v.Name())
}

func TestVerb_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"same name", []string{"look"}, []string{"look"}, true},
		{"pattern covers literal", []string{"l*"}, []string{"look"}, true},
		{"literal covered by pattern", []string{"get", "take"}, []string{"t*"}, true},
		{"disjoint", []string{"look"}, []string{"get", "take"}, false},
		{"disjoint patterns", []string{"a*"}, []string{"b*"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustVerb(t, world.ArgsNone, tt.a...)
			b := mustVerb(t, world.ArgsNone, tt.b...)
			assert.Equal(t, tt.want, a.Overlaps(b))
			assert.Equal(t, tt.want, b.Overlaps(a))
		})
	}
}

func TestVerb_Accepts(t *testing.T) {
	self := world.NewID()
	other := world.NewID()
	bare := world.Command{Verb: "look"}
	withOther := world.Command{Verb: "look", Argstr: "box", Dobjstr: "box", Dobj: other, HasDobj: true}
	withSelf := world.Command{Verb: "look", Argstr: "me", Dobjstr: "me", Dobj: self, HasDobj: true}
	unresolved := world.Command{Verb: "look", Argstr: "ghost", Dobjstr: "ghost", HasDobj: true}

	tests := []struct {
		name string
		args world.ArgSpec
		cmd  world.Command
		want bool
	}{
		{"none takes bare", world.ArgsNone, bare, true},
		{"none rejects dobj", world.ArgsNone, withOther, false},
		{"any takes dobj", world.ArgsAny, withOther, true},
		{"any takes unresolved dobj", world.ArgsAny, unresolved, true},
		{"any rejects bare", world.ArgsAny, bare, false},
		{"this takes self", world.ArgsThis, withSelf, true},
		{"this rejects other", world.ArgsThis, withOther, false},
		{"this rejects unresolved", world.ArgsThis, unresolved, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustVerb(t, tt.args, "look")
			assert.Equal(t, tt.want, v.Accepts(tt.cmd, self))
		})
	}
}

func TestNewVerb_RejectsBadNames(t *testing.T) {
	_, err := world.NewVerb(nil, world.NewID(), world.VerbPerms{}, world.ArgsNone, "")
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)

	_, err = world.NewVerb([]string{"pick up"}, world.NewID(), world.VerbPerms{}, world.ArgsNone, "")
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
}
