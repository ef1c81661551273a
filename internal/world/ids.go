// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// None is the "no object" sentinel. It is never the identity of a live object.
var None = ulid.ULID{}

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewID generates a fresh object identity. Identities are never reused.
func NewID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ParseID parses the string form of an identity as it crosses the script
// boundary. A leading '#' is accepted, and "none" or "" yield None.
func ParseID(s string) (ulid.ULID, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" || strings.EqualFold(s, "none") {
		return None, nil
	}
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return None, errWith(CodeInvalidArgument).
			With("id", s).
			Wrapf(err, "invalid object id %q", s)
	}
	return id, nil
}

// FormatID renders an identity the way ParseID accepts it.
func FormatID(id ulid.ULID) string {
	if id == None {
		return "none"
	}
	return id.String()
}
