// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package seed

import (
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

// refPrefix marks a string value as an object reference by key.
const refPrefix = "$"

// decodeValue turns a YAML value into a property value. known reports
// whether a key exists; resolve, when given to buildValue, maps it to an
// identity.
func decodeValue(v any, known func(key string) bool) (world.Value, error) {
	return buildValue(v, func(key string) (ulid.ULID, bool) {
		if !known(key) {
			return world.None, false
		}
		return world.None, true
	})
}

// valueError reports a malformed property value in a seed.
func valueError(format string, args ...any) error {
	return oops.In("seed").Code(world.CodeInvalidArgument).Errorf(format, args...)
}

func buildValue(v any, resolve func(key string) (ulid.ULID, bool)) (world.Value, error) {
	ref := func(s string) (ulid.ULID, error) {
		key := strings.TrimPrefix(s, refPrefix)
		if key == "none" {
			return world.None, nil
		}
		id, ok := resolve(key)
		if !ok {
			return world.None, valueError("unknown object %q", key)
		}
		return id, nil
	}

	switch x := v.(type) {
	case bool:
		return world.Bool(x), nil
	case int:
		return world.Int(int64(x)), nil
	case int64:
		return world.Int(x), nil
	case string:
		if !strings.HasPrefix(x, refPrefix) {
			return world.Str(x), nil
		}
		id, err := ref(x)
		if err != nil {
			return world.Value{}, err
		}
		if id == world.None {
			return world.OptObj(world.None), nil
		}
		return world.Obj(id), nil
	case []any:
		items := make([]world.Value, 0, len(x))
		for _, item := range x {
			iv, err := buildValue(item, resolve)
			if err != nil {
				return world.Value{}, err
			}
			items = append(items, iv)
		}
		return world.List(items...), nil
	case map[string]any:
		if len(x) != 1 {
			return world.Value{}, valueError("a typed value needs exactly one of objset, code or optobj")
		}
		for kind, inner := range x {
			switch kind {
			case "code":
				src, ok := inner.(string)
				if !ok {
					return world.Value{}, valueError("code must be a string")
				}
				return world.Code(src), nil
			case "optobj":
				s, ok := inner.(string)
				if !ok {
					return world.Value{}, valueError("optobj must be a reference")
				}
				id, err := ref(s)
				if err != nil {
					return world.Value{}, err
				}
				return world.OptObj(id), nil
			case "objset":
				list, ok := inner.([]any)
				if !ok {
					return world.Value{}, valueError("objset must be a list of references")
				}
				ids := make([]ulid.ULID, 0, len(list))
				for _, item := range list {
					s, ok := item.(string)
					if !ok {
						return world.Value{}, valueError("objset must be a list of references")
					}
					id, err := ref(s)
					if err != nil {
						return world.Value{}, err
					}
					ids = append(ids, id)
				}
				return world.ObjSet(ids...), nil
			}
			return world.Value{}, valueError("unknown value kind %q", kind)
		}
	case nil:
		return world.Value{}, valueError("value is required")
	}
	return world.Value{}, valueError("unsupported value %v (%T)", v, v)
}
