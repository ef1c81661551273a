// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/roomoo/roo/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("E_INVARG").Errorf("bad argument")
	errutil.AssertErrorCode(t, err, "E_INVARG")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("property", "description").Errorf("not found")
	errutil.AssertErrorContext(t, err, "property", "description")
}
