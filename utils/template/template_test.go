package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotenceOnLiteralInput(t *testing.T) {
	out, err := Render("just plain text, no markers here", nil)
	require.NoError(t, err)
	assert.Equal(t, "just plain text, no markers here", out)
}

func TestSimpleSubstitution(t *testing.T) {
	out, err := Render("hello {{ name }}!", map[string]interface{}{"name": "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "hello Alice!", out)
}

func TestDottedAndBracketedNavigation(t *testing.T) {
	vars := map[string]interface{}{
		"a": map[string]interface{}{
			"b": []interface{}{
				map[string]interface{}{"c": "deep"},
			},
		},
	}
	out, err := Render("{{ a.b[0].c }}", vars)
	require.NoError(t, err)
	assert.Equal(t, "deep", out)
}

func TestUnresolvedNavigationErrorsWithoutDefault(t *testing.T) {
	_, err := Render("{{ missing.path }}", nil)
	require.Error(t, err)
	var tErr *Error
	require.ErrorAs(t, err, &tErr)
}

func TestDefaultFilterForgivesUnresolved(t *testing.T) {
	out, err := Render("{{ missing | default: 'fallback' }}", nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestFilters(t *testing.T) {
	cases := []struct {
		name string
		tmpl string
		vars map[string]interface{}
		want string
	}{
		{"snakecase", "{{ s | snakecase }}", map[string]interface{}{"s": "Hello World"}, "hello_world"},
		{"upcase", "{{ s | upcase }}", map[string]interface{}{"s": "shout"}, "SHOUT"},
		{"titlecase", "{{ s | titlecase }}", map[string]interface{}{"s": "hello world"}, "Hello World"},
		{"replace", "{{ s | replace: 'a', 'o' }}", map[string]interface{}{"s": "banana"}, "bonono"},
		{"split+last", "{{ s | split: ',' | last }}", map[string]interface{}{"s": "a,b,c"}, "c"},
		{"split+first", "{{ s | split: ',' | first }}", map[string]interface{}{"s": "a,b,c"}, "a"},
		{"join", "{{ items | join: '-' }}", map[string]interface{}{"items": []interface{}{"x", "y", "z"}}, "x-y-z"},
		{"size", "{{ items | size }}", map[string]interface{}{"items": []interface{}{"x", "y", "z"}}, "3"},
		{"plus", "{{ n | plus: 2 }}", map[string]interface{}{"n": float64(3)}, "5"},
		{"minus", "{{ n | minus: 2 }}", map[string]interface{}{"n": float64(3)}, "1"},
		{"map+join", "{{ items | map: 'name' | join: ',' }}", map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"name": "a"},
			map[string]interface{}{"name": "b"},
		}}, "a,b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Render(tc.tmpl, tc.vars)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestJSONFilter(t *testing.T) {
	out, err := Render("{{ data | json }}", map[string]interface{}{"data": map[string]interface{}{"a": float64(1)}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)
}

func TestIfElsifElse(t *testing.T) {
	tmpl := "{% if flag == 'a' %}A{% elsif flag == 'b' %}B{% else %}C{% endif %}"
	out, err := Render(tmpl, map[string]interface{}{"flag": "b"})
	require.NoError(t, err)
	assert.Equal(t, "B", out)

	out, err = Render(tmpl, map[string]interface{}{"flag": "z"})
	require.NoError(t, err)
	assert.Equal(t, "C", out)
}

func TestUnless(t *testing.T) {
	out, err := Render("{% unless ready %}not ready{% endunless %}", map[string]interface{}{"ready": false})
	require.NoError(t, err)
	assert.Equal(t, "not ready", out)
}

func TestForLoopWithForloopLast(t *testing.T) {
	tmpl := "{% for x in items %}{{ x }}{% unless forloop.last %},{% endunless %}{% endfor %}"
	out, err := Render(tmpl, map[string]interface{}{"items": []interface{}{"a", "b", "c"}})
	require.NoError(t, err)
	assert.Equal(t, "a,b,c", out)
}

func TestAssignAndCapture(t *testing.T) {
	tmpl := "{% assign x = 'hello' %}{% capture y %}{{ x }} world{% endcapture %}{{ y }}"
	out, err := Render(tmpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestUnclosedTagIsError(t *testing.T) {
	_, err := Render("{% if x %}no end", nil)
	require.Error(t, err)
}

func TestUnknownFilterIsError(t *testing.T) {
	_, err := Render("{{ x | bogus }}", map[string]interface{}{"x": "y"})
	require.Error(t, err)
}

func TestExprExportForConditionalStep(t *testing.T) {
	e, err := ParseExpression("file_exists('a.txt')")
	require.NoError(t, err)

	funcs := map[string]func([]interface{}) (interface{}, error){
		"file_exists": func(args []interface{}) (interface{}, error) {
			return args[0] == "a.txt", nil
		},
	}
	val, err := EvalWithFuncs(e, nil, funcs)
	require.NoError(t, err)
	assert.Equal(t, true, val)
}
