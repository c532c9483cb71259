// internal/schema/validator.go
// Package schema provides JSON schema validation for upstream catalog payloads.
// The metadata gateway validates every successful response body against the
// documented upstream schema before decoding, so malformed payloads are
// rejected with a dedicated error instead of propagating zero-valued fields.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Payload names accepted by Validate. Each corresponds to one documented
// upstream response shape.
const (
	MovieList   = "catalog.movie.list"   // results[] wrapper (popular, trending, search, discover)
	MovieDetail = "catalog.movie.detail" // single movie, optionally with credits appended
	GenreList   = "catalog.genre.list"   // genres[] wrapper
)

// schemaDocuments holds the JSON schema source for each supported payload.
// The catalog's schema is a fixed published contract, so the documents ship
// with the client rather than being resolved remotely.
var schemaDocuments = map[string]string{
	MovieList: `{
		"type": "object",
		"required": ["results"],
		"properties": {
			"results": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id"],
					"properties": {
						"id": {"type": "integer"},
						"title": {"type": "string"},
						"release_date": {"type": "string"},
						"overview": {"type": "string"},
						"poster_path": {"type": ["string", "null"]},
						"genre_ids": {"type": "array", "items": {"type": "integer"}},
						"vote_average": {"type": "number"}
					}
				}
			}
		}
	}`,
	MovieDetail: `{
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "integer"},
			"title": {"type": "string"},
			"release_date": {"type": "string"},
			"overview": {"type": "string"},
			"poster_path": {"type": ["string", "null"]},
			"vote_average": {"type": "number"},
			"genres": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id"],
					"properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
				}
			},
			"credits": {
				"type": "object",
				"properties": {
					"crew": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {"name": {"type": "string"}, "job": {"type": "string"}}
						}
					}
				}
			}
		}
	}`,
	GenreList: `{
		"type": "object",
		"required": ["genres"],
		"properties": {
			"genres": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "name"],
					"properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
				}
			}
		}
	}`,
}

// Validator validates catalog payloads against their JSON schemas.
type Validator struct {
	schemas map[string]*gojsonschema.Schema // Map of payload names to compiled schemas
}

// NewValidator creates a new schema validator with all supported catalog
// schemas compiled and ready for validation.
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema)}

	for name, doc := range schemaDocuments {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for %s: %w", name, err)
		}
		v.schemas[name] = schema
	}

	return v, nil
}

// Validate validates a raw payload against the named schema.
// Returns nil when the payload conforms, an error describing every violation
// otherwise.
func (v *Validator) Validate(name string, payload []byte) error {
	schema, exists := v.schemas[name]
	if !exists {
		return fmt.Errorf("unsupported payload: %s", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
