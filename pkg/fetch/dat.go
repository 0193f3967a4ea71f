package fetch

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/oblinger/alienbio/pkg/specyaml"
)

// DatSpec is the parsed minimum schema of a DAT folder's `_spec_.yaml`
// (spec §6): dat.kind identifies what the folder represents, dat.path is
// an optional path template, build maps a generated filename to the
// generator specifier that produces it, and run lists the subcommands
// executed to materialize the DAT.
type DatSpec struct {
	Kind  string
	Path  string
	Base  string
	Build map[string]string
	Run   []string
}

// datSpecSchemaJSON is the JSON Schema _spec_.yaml must satisfy. Kept as a
// literal so validation has no dependency on a file shipped alongside the
// binary.
const datSpecSchemaJSON = `{
  "type": "object",
  "properties": {
    "dat": {
      "type": "object",
      "properties": {
        "kind": {"type": "string"},
        "path": {"type": "string"},
        "base": {"type": "string"}
      },
      "required": ["kind"]
    },
    "build": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "run": {
      "type": "array",
      "items": {"type": "string"}
    }
  },
  "required": ["dat"]
}`

var (
	datSchemaOnce    sync.Once
	datSchema        *jsonschema.Schema
	datSchemaCompErr error
)

// compiledDatSchema compiles datSpecSchemaJSON once, the same
// NewCompiler/AddResource/Compile sequence goadesign-goa-ai's tool-call
// payload validation uses.
func compiledDatSchema() (*jsonschema.Schema, error) {
	datSchemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal([]byte(datSpecSchemaJSON), &doc); err != nil {
			datSchemaCompErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("dat-spec.json", doc); err != nil {
			datSchemaCompErr = err
			return
		}
		datSchema, datSchemaCompErr = c.Compile("dat-spec.json")
	})
	return datSchema, datSchemaCompErr
}

// validateSpecFile loads, schema-validates, and parses a _spec_.yaml file.
func validateSpecFile(path string) (*DatSpec, error) {
	raw, err := specyaml.Load(path)
	if err != nil {
		return nil, err
	}
	return validateSpecNode(raw)
}

func validateSpecNode(raw *specyaml.Node) (*DatSpec, error) {
	schema, err := compiledDatSchema()
	if err != nil {
		return nil, fmt.Errorf("compile _spec_.yaml schema: %w", err)
	}
	doc := raw.ToGo()
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}

	datNode := raw.Get("dat")
	spec := &DatSpec{
		Kind:  scalarString(datNode.Get("kind")),
		Path:  scalarString(datNode.Get("path")),
		Base:  scalarString(datNode.Get("base")),
		Build: make(map[string]string),
	}
	if buildNode := raw.Get("build"); buildNode != nil && buildNode.Kind == specyaml.KindMapping {
		for _, e := range buildNode.Mapping {
			spec.Build[e.Key] = scalarString(e.Value)
		}
	}
	if runNode := raw.Get("run"); runNode != nil && runNode.Kind == specyaml.KindSequence {
		for _, item := range runNode.Sequence {
			spec.Run = append(spec.Run, scalarString(item))
		}
	}
	return spec, nil
}

func scalarString(n *specyaml.Node) string {
	if n == nil {
		return ""
	}
	s, _ := n.ScalarValue().(string)
	return s
}
