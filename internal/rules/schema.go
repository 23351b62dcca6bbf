package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/solatis/ruleblocks/internal/blocks"
	"github.com/solatis/ruleblocks/internal/reply"
	"github.com/solatis/ruleblocks/internal/types"
)

// schemaResource is the resource id the user schema is compiled under.
const schemaResource = "rule-schema.json"

// compiledSchema is the property form of a compiled JSON schema. It renders
// as its source text so structurally equal rules describe identically.
type compiledSchema struct {
	source string
	schema *jsonschema.Schema
}

func (c compiledSchema) String() string { return c.source }

// MatchesSchema validates its input against a JSON Schema document. Failures
// report MATCHES_SCHEMA with one "location: message" param per leaf cause.
func MatchesSchema(schemaJSON string) (*Leaf, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w: %w", types.ErrInvalidRule, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w: %w", types.ErrInvalidRule, err)
	}
	schema, err := c.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w: %w", types.ErrInvalidRule, err)
	}

	return NewLeaf(executeMatchesSchema, blocks.Properties{
		PropSchema: compiledSchema{source: schemaJSON, schema: schema},
	}), nil
}

func executeMatchesSchema(input any, ctx blocks.Context, _ any) reply.Reply {
	compiled, _ := ctx.Property(PropSchema).(compiledSchema)

	doc, err := toJSONValue(input)
	if err != nil {
		return reply.Error(ctx, input, types.CodeMatchesSchema, types.MsgMatchesSchema, err.Error())
	}

	err = compiled.schema.Validate(doc)
	if err == nil {
		return reply.Success(input)
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return reply.Error(ctx, input, types.CodeMatchesSchema, types.MsgMatchesSchema, err.Error())
	}
	return reply.Error(ctx, input, types.CodeMatchesSchema, types.MsgMatchesSchema, schemaCauses(ve)...)
}

// toJSONValue round-trips v through encoding/json into the representation
// the schema validator expects (json.Number for numbers).
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}

// schemaCauses flattens leaf validation errors into "location: message" strings.
func schemaCauses(ve *jsonschema.ValidationError) []any {
	if len(ve.Causes) == 0 {
		location := "/" + strings.Join(ve.InstanceLocation, "/")
		return []any{location + ": " + ve.Error()}
	}

	var out []any
	for _, cause := range ve.Causes {
		out = append(out, schemaCauses(cause)...)
	}
	return out
}
