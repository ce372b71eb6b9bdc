package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/idilsaglam/todolist/internal/model"
)

//go:embed todos.schema.json
var todosSchema string

// CheckResult reports what document validation found.
type CheckResult struct {
	Valid      bool
	Errors     []error
	Warnings   []string
	UsedSchema bool // true when the JSON Schema pass ran
}

var (
	schemaOnce    sync.Once
	compiledOnce  *jsonschema.Schema
	compileFailed error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("todos.schema.json", strings.NewReader(todosSchema)); err != nil {
			compileFailed = err
			return
		}
		compiledOnce, compileFailed = compiler.Compile("todos.schema.json")
	})
	return compiledOnce, compileFailed
}

// Check validates a raw serialized collection: shape against the embedded
// JSON Schema, then the collection invariants the schema cannot express.
func Check(raw string) *CheckResult {
	result := &CheckResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Errorf("parse todos: %w", err))
		return result
	}

	schema, err := compiledSchema()
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("schema unavailable, using minimal checks: %v", err))
	} else {
		result.UsedSchema = true
		if err := schema.Validate(doc); err != nil {
			result.Valid = false
			appendSchemaErrors(result, err)
			return result
		}
	}

	todos, err := decode(raw)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err)
		return result
	}
	for _, p := range checkInvariants(todos) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Errorf("%s", p))
	}
	for i, t := range todos {
		if t.Title != strings.TrimSpace(t.Title) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("todos[%d]: title has surrounding whitespace", i))
		}
	}
	return result
}

// checkInvariants verifies what the schema cannot: id uniqueness and the
// single-open-entry rule.
func checkInvariants(todos []model.Todo) []string {
	var problems []string
	seen := make(map[int]bool, len(todos))
	open := 0
	for i, t := range todos {
		if t.ID < 1 {
			problems = append(problems, fmt.Sprintf("todos[%d]: id %d is not positive", i, t.ID))
		}
		if seen[t.ID] {
			problems = append(problems, fmt.Sprintf("todos[%d]: duplicate id %d", i, t.ID))
		}
		seen[t.ID] = true
		if t.IsOpen() {
			open++
		}
	}
	if open > 1 {
		problems = append(problems, fmt.Sprintf("%d open (empty-title) entries, at most one allowed", open))
	}
	return problems
}

func appendSchemaErrors(result *CheckResult, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *CheckResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		result.Errors = append(result.Errors, fmt.Errorf("%s: %s", loc, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}
