package openapi

import (
	"context"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/blackcoderx/reqtree/pkg/apperr"
)

// Validate loads document text with kin-openapi and checks it against the
// OpenAPI 3.0 rules, examples included.
func Validate(ctx context.Context, text string) error {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(text))
	if err != nil {
		return apperr.Parse("validate", err, "cannot load document")
	}
	if err := doc.Validate(ctx); err != nil {
		return apperr.Validation("validate", err, "invalid document")
	}
	return nil
}
