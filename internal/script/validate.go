// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/roomoo/roo/internal/core"
)

// ValidateCode compiles verb code without running it.
func ValidateCode(code string) error {
	chunk, err := parse.Parse(strings.NewReader(code), "<verb>")
	if err != nil {
		return oops.In("script").Code(CodeCompileError).Wrapf(err, "parse verb code")
	}
	if _, err := lua.Compile(chunk, "<verb>"); err != nil {
		return oops.In("script").Code(CodeCompileError).Wrapf(err, "compile verb code")
	}
	return nil
}

// Validator checks verb code for core.WithCodeValidator.
var Validator core.CodeValidator = core.CodeValidatorFunc(ValidateCode)
