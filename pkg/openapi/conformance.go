package openapi

import (
	"log/slog"

	"github.com/xeipuuv/gojsonschema"
)

// conformance checks an author-supplied example against its schema and
// returns one line per violation. A schema the validator cannot compile is
// skipped rather than reported.
func (r resolver) conformance(schema, example any) []string {
	inlined := r.inline(schema, 0)
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(inlined),
		gojsonschema.NewGoLoader(example),
	)
	if err != nil {
		slog.Debug("schema not checkable", "error", err)
		return nil
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return problems
}
