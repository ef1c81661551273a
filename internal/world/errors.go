// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Error codes carried by every failing world operation. Scripts branch on
// these values, so they are part of the public contract.
const (
	CodePermissionDenied   = "E_PERM"
	CodeInvalidArgument    = "E_INVARG"
	CodeInvalidIndirection = "E_INVIND"
	CodePropertyNotFound   = "E_PROPNF"
	CodeVerbNotFound       = "E_VERBNF"
	CodeRecursiveMove      = "E_RECMOVE"
	CodeTypeMismatch       = "E_TYPE"
	CodeRange              = "E_RANGE"
	CodeQuota              = "E_QUOTA"
	CodeNotAccepted        = "E_NACC"
	CodeNotImplemented     = "E_NOTIMPL"
	CodeObjectNotFound     = "OBJECT_NOT_FOUND"
)

// Codes lists every error code in a stable order.
var Codes = []string{
	CodePermissionDenied,
	CodeInvalidArgument,
	CodeInvalidIndirection,
	CodePropertyNotFound,
	CodeVerbNotFound,
	CodeRecursiveMove,
	CodeTypeMismatch,
	CodeRange,
	CodeQuota,
	CodeNotAccepted,
	CodeNotImplemented,
	CodeObjectNotFound,
}

// ErrPermissionDenied is the sentinel wrapped by permission failures.
var ErrPermissionDenied = errors.New("permission denied")

func errWith(code string) oops.OopsErrorBuilder {
	return oops.In("world").Code(code)
}

func permissionDenied(op string, actor ulid.ULID) error {
	return errWith(CodePermissionDenied).
		With("operation", op).
		With("actor", actor.String()).
		Wrap(ErrPermissionDenied)
}

func invalidArgument(op, format string, args ...any) error {
	return errWith(CodeInvalidArgument).With("operation", op).Errorf(format, args...)
}

func invalidIndirection(id ulid.ULID) error {
	return errWith(CodeInvalidIndirection).
		With("object", id.String()).
		Errorf("invalid object %s", id)
}

func propertyNotFound(id ulid.ULID, name string) error {
	return errWith(CodePropertyNotFound).
		With("object", id.String()).
		With("property", name).
		Errorf("property %q not found on %s", name, id)
}

func verbNotFound(id ulid.ULID, desc string) error {
	return errWith(CodeVerbNotFound).
		With("object", id.String()).
		With("verb", desc).
		Errorf("verb %q not found on %s", desc, id)
}

func recursiveMove(op string, what, where ulid.ULID) error {
	return errWith(CodeRecursiveMove).
		With("operation", op).
		With("object", what.String()).
		With("destination", where.String()).
		Errorf("%s would create a cycle: %s into %s", op, what, where)
}

func typeMismatch(format string, args ...any) error {
	return errWith(CodeTypeMismatch).Errorf(format, args...)
}

func rangeError(index, length int) error {
	return errWith(CodeRange).
		With("index", index).
		With("length", length).
		Errorf("index %d out of range for list of length %d", index, length)
}

// CodeOf returns the world error code of err, or "" when err carries none.
func CodeOf(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := any(oopsErr.Code()).(string)
	return code
}

// HasCode reports whether err carries the given world error code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
