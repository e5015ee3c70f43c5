package gate

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v6"
)

// validator compiles each schema once and validates arguments. Compiled
// schemas are keyed by the declared schema, not the operation name, so two
// operations sharing a name never share a stale schema.
type validator struct {
	mu       sync.Mutex
	compiled map[*jsonschema.Schema]*santhosh.Schema
}

func newValidator() *validator {
	return &validator{compiled: map[*jsonschema.Schema]*santhosh.Schema{}}
}

func (v *validator) schemaFor(name string, s *jsonschema.Schema) (*santhosh.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if sch, ok := v.compiled[s]; ok {
		return sch, nil
	}
	sch, err := compileSchema(name, s)
	if err != nil {
		return nil, err
	}
	v.compiled[s] = sch
	return sch, nil
}

// Validate checks args against the operation schema. A nil schema accepts
// anything.
func (v *validator) Validate(name string, s *jsonschema.Schema, args map[string]any) error {
	if s == nil {
		return nil
	}
	sch, err := v.schemaFor(name, s)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, err)
	}
	// validate a JSON-normalised copy; the handler still gets the original
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	inst, err := santhosh.UnmarshalJSON(strings.NewReader(string(b)))
	if err != nil {
		return err
	}
	if args == nil {
		inst = map[string]any{}
	}
	return sch.Validate(inst)
}

// CompileSchema reports whether s is a valid JSON schema.
func CompileSchema(name string, s *jsonschema.Schema) error {
	_, err := compileSchema(name, s)
	return err
}

func compileSchema(name string, s *jsonschema.Schema) (*santhosh.Schema, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc, err := santhosh.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}
	url := "mem://" + name + ".json"
	c := santhosh.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}
