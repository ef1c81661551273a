// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package seed

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the generated seed schema.
const SchemaID = "https://roomoo.dev/schemas/seed.schema.json"

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// GenerateSchema returns the JSON Schema describing seed files.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Seed{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Roo world seed"
	schema.Description = "Schema for world seed YAML files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("seed").Wrapf(err, "marshal seed schema")
	}
	return data, nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			schemaErr = oops.In("seed").Wrapf(err, "parse seed schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("seed.schema.json", doc); err != nil {
			schemaErr = oops.In("seed").Wrapf(err, "add seed schema resource")
			return
		}
		schemaCompiled, schemaErr = c.Compile("seed.schema.json")
	})
	return schemaCompiled, schemaErr
}

// ValidateSchema checks YAML seed data against the seed schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return invalid("seed data is empty")
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return invalid("invalid YAML: %s", err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.In("seed").Code(CodeInvalidSeed).
			With("cause", err.Error()).
			Errorf("seed does not match schema: %s", FormatSchemaError(err))
	}
	return nil
}

// toJSONTypes converts YAML-decoded data to the types the validator
// expects: map[string]any, []any and JSON scalars.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = toJSONTypes(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = toJSONTypes(item)
		}
		return out
	case string, bool, int, int64, float64, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}

// FormatSchemaError trims a validation error to its meaningful part.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, "\n"); i >= 0 {
		msg = strings.TrimSpace(msg[i+1:])
	}
	return msg
}
