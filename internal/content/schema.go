package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema/briefing.schema.json
var documentSchema []byte

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

// ValidateDocument checks that a document from a remote generator has the
// minimal structure of a briefing before it is accepted. Only the outer
// shape is enforced; everything below it is left to Normalize.
func ValidateDocument(raw []byte) error {
	compileOnce.Do(func() {
		compiledSchema, compileErr = jsonschema.NewCompiler().Compile(documentSchema)
	})
	if compileErr != nil {
		return fmt.Errorf("failed to compile briefing schema: %w", compileErr)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}

	result := compiledSchema.Validate(doc)
	if result.IsValid() {
		return nil
	}

	var messages []string
	for field, evalErr := range result.Errors {
		messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
	}
	sort.Strings(messages)
	return fmt.Errorf("document validation failed: %s", strings.Join(messages, "; "))
}
