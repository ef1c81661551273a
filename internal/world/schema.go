// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
)

// SnapshotSchemaID is the $id of the generated snapshot schema.
const SnapshotSchemaID = "https://roomoo.dev/schemas/snapshot.schema.json"

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// GenerateSnapshotSchema returns the JSON Schema describing Snapshot.
func GenerateSnapshotSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Snapshot{})
	schema.ID = jsonschema.ID(SnapshotSchemaID)
	schema.Title = "Roo world snapshot"
	schema.Description = "Serialised object database"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "marshal snapshot schema")
	}
	return data, nil
}

func compiledSnapshotSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := GenerateSnapshotSchema()
		if err != nil {
			schemaErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			schemaErr = oops.Wrapf(err, "parse snapshot schema")
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("snapshot.schema.json", doc); err != nil {
			schemaErr = oops.Wrapf(err, "add snapshot schema resource")
			return
		}
		schemaCompiled, schemaErr = c.Compile("snapshot.schema.json")
	})
	return schemaCompiled, schemaErr
}

// ValidateSnapshotJSON checks encoded snapshot data against the schema.
// Failures carry SNAPSHOT_CORRUPT.
func ValidateSnapshotJSON(data []byte) error {
	if len(data) == 0 {
		return corrupt("snapshot data is empty")
	}
	sch, err := compiledSnapshotSchema()
	if err != nil {
		return oops.Wrapf(err, "compile snapshot schema")
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return corruptCause(err, "snapshot is not valid JSON")
	}
	if err := sch.Validate(inst); err != nil {
		return corruptCause(err, "snapshot does not match schema")
	}
	return nil
}

// DecodeSnapshot validates and decodes encoded snapshot data.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	if err := ValidateSnapshotJSON(data); err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, corruptCause(err, "decode snapshot")
	}
	if err := CheckFormat(snap.Format); err != nil {
		return nil, err
	}
	return &snap, nil
}

// EncodeSnapshot encodes snap as indented JSON.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, oops.Wrapf(err, "encode snapshot")
	}
	return data, nil
}
