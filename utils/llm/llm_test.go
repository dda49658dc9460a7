package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModelID(t *testing.T) {
	provider, rest, err := ParseModelID("openai/gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "openai", provider)
	assert.Equal(t, "gpt-4o", rest)

	_, _, err = ParseModelID("no-slash-here")
	require.Error(t, err)
}

func TestGenerateRejectsUnknownProvider(t *testing.T) {
	c := NewClient(ProviderConfig{})
	_, err := c.Generate(context.Background(), "hi", GenerateOptions{ModelID: "bogus/model"})
	require.Error(t, err)
}

func TestGenerateRejectsBuiltinToolsForNonResponsesProvider(t *testing.T) {
	c := NewClient(ProviderConfig{OpenAIAPIKey: "sk-test"})
	_, err := c.Generate(context.Background(), "hi", GenerateOptions{
		ModelID:      "openai/gpt-4o",
		BuiltinTools: []BuiltinTool{{Type: "web_search_preview"}},
	})
	require.Error(t, err)
	var tv *ToolValidationError
	require.ErrorAs(t, err, &tv)
}

func TestGenerateRejectsUnsupportedBuiltinToolType(t *testing.T) {
	c := NewClient(ProviderConfig{OpenAIAPIKey: "sk-test"})
	_, err := c.Generate(context.Background(), "hi", GenerateOptions{
		ModelID:      "openai_responses/gpt-4o",
		BuiltinTools: []BuiltinTool{{Type: "browse_the_web"}},
	})
	require.Error(t, err)
	var tv *ToolValidationError
	require.ErrorAs(t, err, &tv)
}

func TestValidateAgainstSchemaObject(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"name"},
		"properties": map[string]interface{}{
			"name": map[string]interface{}{"type": "string"},
			"age":  map[string]interface{}{"type": "number"},
		},
	}
	err := validateAgainstSchema(map[string]interface{}{"name": "Alice", "age": float64(30)}, schema)
	assert.NoError(t, err)

	err = validateAgainstSchema(map[string]interface{}{"age": float64(30)}, schema)
	assert.Error(t, err)

	err = validateAgainstSchema(map[string]interface{}{"name": 5}, schema)
	assert.Error(t, err)
}

func TestParseStructuredJSONUnwrapsListOutput(t *testing.T) {
	ot := OutputType{Kind: OutputList, Schema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "string"},
		},
	}}
	raw := `{"items":[{"id":"a"},{"id":"b"}]}`
	val, err := parseStructuredJSON(raw, ot)
	require.NoError(t, err)
	items, ok := val.([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 2)
}

func TestParseStructuredJSONFilesOutput(t *testing.T) {
	ot := OutputType{Kind: OutputFiles}
	raw := `{"files":[{"path":"a.txt","content":"hi"}]}`
	val, err := parseStructuredJSON(raw, ot)
	require.NoError(t, err)
	files, ok := val.([]FileSpec)
	require.True(t, ok)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Path)
}

func TestParseStructuredJSONObjectSchemaFailureIsLLMSchemaError(t *testing.T) {
	ot := OutputType{Kind: OutputObject, Schema: map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"must_have"},
	}}
	_, err := parseStructuredJSON(`{"other":"value"}`, ot)
	require.Error(t, err)
	var se *LLMSchemaError
	require.ErrorAs(t, err, &se)
}
