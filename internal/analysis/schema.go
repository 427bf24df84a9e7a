package analysis

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/analysis_result.schema.json
var resultSchemaRaw string

var resultSchema = mustLoadSchema(resultSchemaRaw)

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

func mustLoadSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("analysis: loading result schema: %v", err))
	}
	return s
}

// CheckSchema reports how a decoded reply deviates from the documented result
// schema. Results are advisory: a reply with violations is still served.
// A document that cannot be read at all yields a single "(root)" error.
func CheckSchema(doc string) []FieldError {
	res, err := resultSchema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return []FieldError{{Field: "(root)", Message: err.Error()}}
	}
	if res.Valid() {
		return nil
	}

	out := make([]FieldError, 0, len(res.Errors()))
	for _, desc := range res.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		out = append(out, FieldError{Field: field, Message: desc.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
