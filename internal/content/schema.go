package content

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed canonical.schema.json
var canonicalSchemaJSON string

// ErrNotCanonical is returned by CheckCanonical for documents that Encode
// would never produce.
var ErrNotCanonical = errors.New("content is not in canonical form")

var (
	canonicalSchema     *gojsonschema.Schema
	canonicalSchemaErr  error
	canonicalSchemaOnce sync.Once
)

func loadCanonicalSchema() (*gojsonschema.Schema, error) {
	canonicalSchemaOnce.Do(func() {
		canonicalSchema, canonicalSchemaErr = gojsonschema.NewSchema(
			gojsonschema.NewStringLoader(canonicalSchemaJSON),
		)
	})
	return canonicalSchema, canonicalSchemaErr
}

// CheckCanonical verifies that s is a canonical encoding: one of the four
// tagged shapes with repaired questions. It does not check that a correct
// index is below the option count.
func CheckCanonical(s string) error {
	schema, err := loadCanonicalSchema()
	if err != nil {
		return fmt.Errorf("load canonical schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(s))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotCanonical, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrNotCanonical, strings.Join(msgs, "; "))
}
