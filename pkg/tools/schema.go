package tools

import "github.com/google/jsonschema-go/jsonschema"

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

// ident is a non-empty string such as a tweet, user or list id.
func ident(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc, MinLength: ptr(1)}
}

func integer(desc string, min float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc, Minimum: ptr(min)}
}

func boolean(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func strList(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: &jsonschema.Schema{Type: "string"}}
}

func countProp() *jsonschema.Schema {
	return integer("Number of results (max 100)", 1)
}

func cursorProp() *jsonschema.Schema {
	return str("Pagination cursor from a previous next_cursor")
}

// paged builds the schema of a paginated read keyed by idKey.
func paged(idKey, idDesc string) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{"count": countProp(), "cursor": cursorProp()}
	if idKey == "" {
		return object(nil, props)
	}
	props[idKey] = ident(idDesc)
	return object([]string{idKey}, props)
}

// single builds the schema of an operation taking one id.
func single(idKey, idDesc string) *jsonschema.Schema {
	return object([]string{idKey}, map[string]*jsonschema.Schema{idKey: ident(idDesc)})
}

func ptr[T any](v T) *T { return &v }
