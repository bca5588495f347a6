package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/clipmarket/internal/common"
)

const maxBodyBytes = 1 << 20

//go:embed schemas/*.json
var schemaFS embed.FS

// requestSchemas holds the compiled body schema of each endpoint, keyed by
// file name without extension.
var requestSchemas = mustLoadSchemas()

func mustLoadSchemas() map[string]*jsonschema.Schema {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		panic(fmt.Sprintf("read request schemas: %v", err))
	}

	out := make(map[string]*jsonschema.Schema, len(entries))
	for _, e := range entries {
		b, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", e.Name(), err))
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			panic(fmt.Sprintf("parse schema %s: %v", e.Name(), err))
		}
		out[strings.TrimSuffix(e.Name(), path.Ext(e.Name()))] = rs
	}
	return out
}

// decodeBody checks the request body against the named schema and decodes it
// into dst. Schema failures come back as *common.ValidationError.
func decodeBody(r *http.Request, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return common.NewValidationError("body", "could not be read")
	}
	if len(body) > maxBodyBytes {
		return common.NewValidationError("body", "is too large")
	}
	if !json.Valid(body) {
		return common.NewValidationError("body", "must be valid JSON")
	}

	rs, ok := requestSchemas[schema]
	if !ok {
		return fmt.Errorf("unknown request schema %q", schema)
	}

	keyErrs, err := rs.ValidateBytes(r.Context(), body)
	if err != nil {
		return fmt.Errorf("validate %s body: %w", schema, err)
	}
	if len(keyErrs) > 0 {
		verr := &common.ValidationError{Fields: make(map[string]string, len(keyErrs))}
		for _, ke := range keyErrs {
			field := strings.TrimPrefix(ke.PropertyPath, "/")
			if field == "" {
				field = "body"
			}
			field = strings.ReplaceAll(field, "/", ".")
			if _, seen := verr.Fields[field]; !seen {
				verr.Fields[field] = ke.Message
			}
		}
		return verr
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return common.NewValidationError("body", "does not match the expected shape")
	}
	return nil
}
