package llm

import (
	"encoding/json"
	"fmt"
)

// validateAgainstSchema structurally validates payload against a JSON-schema
// fragment (object-shaped: {type, properties, required, items, enum}).
//
// No JSON-schema library appears anywhere in the retrieval pack, so this is
// a deliberately small, hand-rolled recursive validator rather than a full
// draft-2020-12 implementation: it covers exactly the shapes §4.C12's
// output_format produces (object/array/string/number/integer/boolean,
// required, items, enum) and nothing more.
func validateAgainstSchema(payload interface{}, schema map[string]interface{}) error {
	return validateNode(payload, schema, "$")
}

func validateNode(value interface{}, schema map[string]interface{}, path string) error {
	if schema == nil {
		return nil
	}

	if enumVals, ok := schema["enum"].([]interface{}); ok {
		if !containsValue(enumVals, value) {
			return fmt.Errorf("%s: value %v is not one of the allowed enum values", path, value)
		}
	}

	schemaType, _ := schema["type"].(string)
	switch schemaType {
	case "object", "":
		obj, ok := value.(map[string]interface{})
		if !ok {
			if schemaType == "object" {
				return fmt.Errorf("%s: expected an object, got %T", path, value)
			}
			return nil
		}
		required, _ := schema["required"].([]interface{})
		for _, r := range required {
			name, _ := r.(string)
			if _, present := obj[name]; !present {
				return fmt.Errorf("%s: missing required property %q", path, name)
			}
		}
		if props, ok := schema["properties"].(map[string]interface{}); ok {
			for name, propSchemaRaw := range props {
				propSchema, _ := propSchemaRaw.(map[string]interface{})
				if v, present := obj[name]; present {
					if err := validateNode(v, propSchema, path+"."+name); err != nil {
						return err
					}
				}
			}
		}
	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return fmt.Errorf("%s: expected an array, got %T", path, value)
		}
		if itemSchema, ok := schema["items"].(map[string]interface{}); ok {
			for i, item := range arr {
				if err := validateNode(item, itemSchema, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%s: expected a string, got %T", path, value)
		}
	case "number", "integer":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("%s: expected a number, got %T", path, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected a boolean, got %T", path, value)
		}
	}
	return nil
}

func containsValue(haystack []interface{}, needle interface{}) bool {
	needleJSON, _ := json.Marshal(needle)
	for _, h := range haystack {
		hJSON, _ := json.Marshal(h)
		if string(hJSON) == string(needleJSON) {
			return true
		}
	}
	return false
}

// wrapListSchema builds the internal {items: [...]} transport schema for
// OutputList, per spec §4.C12 ("a list of one mapping → a schema for each
// item; internally wrap as {items: [...]}, dispatch, then unwrap").
func wrapListSchema(itemSchema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"items": map[string]interface{}{
				"type":  "array",
				"items": itemSchema,
			},
		},
		"required": []interface{}{"items"},
	}
}

// parseStructuredJSON decodes raw model output as JSON and, for OutputList,
// unwraps the {items: [...]} transport wrapper back to a plain list.
func parseStructuredJSON(raw string, ot OutputType) (interface{}, error) {
	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("decoding structured output: %w", err)
	}

	switch ot.Kind {
	case OutputObject:
		if err := validateAgainstSchema(decoded, ot.Schema); err != nil {
			return nil, &LLMSchemaError{Payload: decoded, Schema: ot.Schema, Cause: err}
		}
		return decoded, nil
	case OutputList:
		wrapped := wrapListSchema(ot.Schema)
		if err := validateAgainstSchema(decoded, wrapped); err != nil {
			return nil, &LLMSchemaError{Payload: decoded, Schema: wrapped, Cause: err}
		}
		obj, _ := decoded.(map[string]interface{})
		items, _ := obj["items"].([]interface{})
		return items, nil
	case OutputFiles:
		wrapped := map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"files": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"path", "content"},
						"properties": map[string]interface{}{
							"path":    map[string]interface{}{"type": "string"},
							"content": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
			"required": []interface{}{"files"},
		}
		if err := validateAgainstSchema(decoded, wrapped); err != nil {
			return nil, &LLMSchemaError{Payload: decoded, Schema: wrapped, Cause: err}
		}
		obj, _ := decoded.(map[string]interface{})
		rawFiles, _ := obj["files"].([]interface{})
		files := make([]FileSpec, 0, len(rawFiles))
		for _, rf := range rawFiles {
			m, _ := rf.(map[string]interface{})
			path, _ := m["path"].(string)
			content, _ := m["content"].(string)
			files = append(files, FileSpec{Path: path, Content: content})
		}
		return files, nil
	}
	return decoded, nil
}

// jsonSchemaForOutput builds the wire-level JSON-schema object sent to a
// provider's structured-output API for a given OutputType.
func jsonSchemaForOutput(ot OutputType) map[string]interface{} {
	switch ot.Kind {
	case OutputObject:
		return ot.Schema
	case OutputList:
		return wrapListSchema(ot.Schema)
	case OutputFiles:
		return map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"files": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"path", "content"},
						"properties": map[string]interface{}{
							"path":    map[string]interface{}{"type": "string"},
							"content": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
			"required": []interface{}{"files"},
		}
	}
	return nil
}
