// Package codec encodes and decodes the documents kept in the local store.
//
// Every value is written inside a versioned envelope:
//
//	{"schemaVersion":1,"data":<document>}
//
// A value without the envelope is a legacy document (version 0) and is read
// as if its whole body were the data. Either way the data must validate
// against the JSON schema of its Kind before it is unmarshaled; anything
// else fails with ErrMalformed or ErrUnsupportedVersion and never produces
// a partially populated value.
package codec

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaVersion is the envelope version written by Encode.
const SchemaVersion = 1

var (
	ErrMalformed          = errors.New("malformed document")
	ErrUnsupportedVersion = errors.New("unsupported schema version")
)

// Kind names the schema a document is validated against.
type Kind string

const (
	KindUsers    Kind = "users"
	KindIdentity Kind = "identity"
	KindProjects Kind = "projects"
	KindTasks    Kind = "tasks"
)

var kinds = []Kind{KindUsers, KindIdentity, KindProjects, KindTasks}

//go:embed schemas/*.json
var schemaFS embed.FS

type envelope struct {
	SchemaVersion int `json:"schemaVersion"`
	Data          any `json:"data"`
}

var loadSchemas = sync.OnceValues(func() (map[Kind]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true

	for _, k := range kinds {
		b, err := schemaFS.ReadFile("schemas/" + string(k) + ".json")
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(string(k)+".json", bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", k, err)
		}
	}

	out := make(map[Kind]*jsonschema.Schema, len(kinds))
	for _, k := range kinds {
		s, err := c.Compile(string(k) + ".json")
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
})

// Encode wraps v in a current-version envelope.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(envelope{SchemaVersion: SchemaVersion, Data: v})
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return b, nil
}

// Decode validates raw against the schema of kind and unmarshals its data
// into a T.
func Decode[T any](kind Kind, raw []byte) (T, error) {
	var zero T

	schemas, err := loadSchemas()
	if err != nil {
		return zero, err
	}
	schema, ok := schemas[kind]
	if !ok {
		return zero, fmt.Errorf("%w: unknown kind %q", ErrMalformed, kind)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	data, err := unwrap(doc)
	if err != nil {
		return zero, err
	}

	if err := schema.Validate(data); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
	}

	b, err := json.Marshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
	}
	return out, nil
}

// unwrap strips the envelope off doc, or returns doc itself for a legacy
// value.
func unwrap(doc any) (any, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return doc, nil
	}
	rawVersion, ok := m["schemaVersion"]
	if !ok {
		return doc, nil
	}

	v, ok := rawVersion.(float64)
	if !ok {
		return nil, fmt.Errorf("%w: schemaVersion is %T", ErrMalformed, rawVersion)
	}
	if v != SchemaVersion {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedVersion, v)
	}

	data, ok := m["data"]
	if !ok {
		return nil, fmt.Errorf("%w: envelope without data", ErrMalformed)
	}
	return data, nil
}
