package steps

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kris-hansen/recipeforge/utils/llm"
	"github.com/kris-hansen/recipeforge/utils/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMGenerateRequiresPromptAndOutputKey(t *testing.T) {
	_, err := newLLMGenerateStep(nil, []byte(`{"output_key": "out"}`))
	require.Error(t, err)

	_, err = newLLMGenerateStep(nil, []byte(`{"prompt": "hi"}`))
	require.Error(t, err)
}

// The provider/built-in-tool check in llm.Client.Generate runs before any
// network call, so it doubles as a cheap probe into model_id resolution
// without a live provider.
func TestLLMGenerateDefaultsModelFromConfigThenHardcodedFallback(t *testing.T) {
	s, err := newLLMGenerateStep(nil, []byte(`{
		"prompt": "hi",
		"output_key": "out",
		"openai_builtin_tools": [{"type": "web_search_preview"}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
	var tv *llm.ToolValidationError
	require.ErrorAs(t, err, &tv)
	assert.Equal(t, "openai", tv.Provider)

	st2 := state.New(nil, map[string]interface{}{"default_model": "anthropic/claude-3-opus"})
	err = s.Run(context.Background(), st2)
	require.Error(t, err)
	var tv2 *llm.ToolValidationError
	require.ErrorAs(t, err, &tv2)
	assert.Equal(t, "anthropic", tv2.Provider)
}

func TestLLMGenerateRejectsBuiltinToolsAgainstNonResponsesProvider(t *testing.T) {
	s, err := newLLMGenerateStep(nil, []byte(`{
		"prompt": "hi",
		"model": "anthropic/claude-3-opus",
		"output_key": "out",
		"openai_builtin_tools": [{"type": "web_search_preview"}]
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
	var tv *llm.ToolValidationError
	require.ErrorAs(t, err, &tv)
	assert.Equal(t, "anthropic", tv.Provider)
}

func TestLLMGenerateRejectsMaxTokensNotNumeric(t *testing.T) {
	s, err := newLLMGenerateStep(nil, []byte(`{
		"prompt": "hi",
		"output_key": "out",
		"max_tokens": "not-a-number"
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
}

func TestLLMGenerateRejectsUnrecognizedModelProvider(t *testing.T) {
	s, err := newLLMGenerateStep(nil, []byte(`{
		"prompt": "hi",
		"model": "not-a-real-provider/some-model",
		"output_key": "out"
	}`))
	require.NoError(t, err)

	st := state.New(nil, nil)
	err = s.Run(context.Background(), st)
	require.Error(t, err)
}

func TestParseMaxTokens(t *testing.T) {
	n, err := parseMaxTokens(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = parseMaxTokens(float64(512))
	require.NoError(t, err)
	assert.Equal(t, 512, n)

	n, err = parseMaxTokens("256")
	require.NoError(t, err)
	assert.Equal(t, 256, n)

	_, err = parseMaxTokens("nope")
	require.Error(t, err)

	_, err = parseMaxTokens(true)
	require.Error(t, err)
}

func TestBuildOutputTypeTextIsDefault(t *testing.T) {
	ot, err := buildOutputType(nil)
	require.NoError(t, err)
	assert.Equal(t, llm.OutputText, ot.Kind)
}

func TestBuildOutputTypeFiles(t *testing.T) {
	ot, err := buildOutputType(json.RawMessage(`"files"`))
	require.NoError(t, err)
	assert.Equal(t, llm.OutputFiles, ot.Kind)
}

func TestBuildOutputTypeObjectSchema(t *testing.T) {
	ot, err := buildOutputType(json.RawMessage(`{"name": "string", "age": "number"}`))
	require.NoError(t, err)
	assert.Equal(t, llm.OutputObject, ot.Kind)
	assert.Equal(t, "string", ot.Schema["name"])
}

func TestBuildOutputTypeListSchema(t *testing.T) {
	ot, err := buildOutputType(json.RawMessage(`[{"title": "string"}]`))
	require.NoError(t, err)
	assert.Equal(t, llm.OutputList, ot.Kind)
	assert.Equal(t, "string", ot.Schema["title"])
}

func TestBuildOutputTypeRejectsMultiElementList(t *testing.T) {
	_, err := buildOutputType(json.RawMessage(`[{"a": "string"}, {"b": "string"}]`))
	require.Error(t, err)
}

func TestBuildOutputTypeRejectsUnknownString(t *testing.T) {
	_, err := buildOutputType(json.RawMessage(`"csv"`))
	require.Error(t, err)
}
