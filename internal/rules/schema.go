package rules

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/estate-archive/constants"
	"github.com/joseph-ayodele/estate-archive/internal/core/validate"
)

// BuildRulesJSONSchema returns the JSON-Schema (draft 2020-12 subset) of a
// rule document as a generic map. Enumerations come from the registered
// document types, fields, validators and transforms.
func BuildRulesJSONSchema() map[string]any {
	fieldName := map[string]any{"type": "string", "enum": constants.FieldNamesAsStrings()}
	ranked := rankedTypes()
	anyType := map[string]any{"type": "string", "enum": constants.DocumentTypesAsStrings()}

	pattern := object(map[string]any{
		"regex": nonEmpty(),
		"group": map[string]any{"type": "integer", "minimum": 0},
	}, "regex")

	fieldRule := object(map[string]any{
		"name":       nonEmpty(),
		"field":      fieldName,
		"confidence": unit(),
		"validator":  map[string]any{"type": "string", "enum": validate.Names()},
		"transforms": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "enum": validate.TransformNames()},
		},
		"patterns": arrayOf(pattern),
	}, "name", "field", "confidence", "patterns")

	signal := object(map[string]any{
		"keyword": nonEmpty(),
		"regex":   nonEmpty(),
		"field":   fieldName,
		"weight":  map[string]any{"type": "number", "exclusiveMinimum": 0},
	}, "weight")
	signal["oneOf"] = []any{
		map[string]any{"required": []string{"keyword"}},
		map[string]any{"required": []string{"regex"}},
		map[string]any{"required": []string{"field"}},
	}

	classifier := object(map[string]any{
		"min_score":  unit(),
		"tie_margin": unit(),
		"types": arrayOf(object(map[string]any{
			"type":    ranked,
			"signals": arrayOf(signal),
		}, "type", "signals")),
	}, "min_score", "tie_margin", "types")

	matchField := object(map[string]any{
		"column":   nonEmpty(),
		"source":   fieldName,
		"method":   map[string]any{"type": "string", "enum": []string{string(constants.MethodExact), string(constants.MethodFuzzy)}},
		"weight":   map[string]any{"type": "number", "exclusiveMinimum": 0},
		"required": map[string]any{"type": "boolean"},
	}, "column", "source", "method", "weight")

	matching := object(map[string]any{
		"match_threshold":  unit(),
		"margin_threshold": unit(),
		"retry_threshold":  unit(),
		"max_candidates":   map[string]any{"type": "integer", "minimum": 1},
		"field_sets": arrayOf(object(map[string]any{
			"type":   anyType,
			"fields": arrayOf(matchField),
		}, "type", "fields")),
	}, "match_threshold", "margin_threshold", "retry_threshold", "max_candidates", "field_sets")

	routing := object(map[string]any{
		"min_classification_confidence": unit(),
		"min_field_confidence":          unit(),
		"required_fields": map[string]any{
			"type": "array",
			"items": object(map[string]any{
				"type":   ranked,
				"fields": arrayOf(fieldName),
			}, "type", "fields"),
		},
	}, "min_classification_confidence", "min_field_confidence")

	return object(map[string]any{
		"version":    map[string]any{"type": "integer", "const": 1},
		"labels":     map[string]any{"type": "array", "items": nonEmpty()},
		"fields":     arrayOf(fieldRule),
		"classifier": classifier,
		"matching":   matching,
		"routing":    routing,
	}, "version", "fields", "classifier", "matching", "routing")
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "minItems": 1, "items": items}
}

func nonEmpty() map[string]any {
	return map[string]any{"type": "string", "minLength": 1}
}

func unit() map[string]any {
	return map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0}
}

func rankedTypes() map[string]any {
	names := make([]string, 0, len(constants.DocumentTypePriority))
	for _, t := range constants.DocumentTypePriority {
		names = append(names, string(t))
	}
	return map[string]any{"type": "string", "enum": names}
}

// validateJSONAgainstSchema validates "data" against "schemaMap".
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rules do not match schema: %w", err)
	}
	return nil
}
