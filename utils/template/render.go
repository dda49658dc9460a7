package template

import "strings"

// Render compiles and executes text against vars in one call. Rendering a
// string with no template markers returns the input unchanged (spec §8,
// "Template idempotence on literal input").
func Render(text string, vars map[string]interface{}) (string, error) {
	tmpl, err := Parse(text)
	if err != nil {
		return "", err
	}
	return tmpl.Render(vars)
}

// RenderValue renders text like Render, except when text is a single
// `{{ expression }}` output with no surrounding literal text: in that case
// the expression's native value (list, map, number, bool, ...) is returned
// instead of its stringified form. Used by the Loop step (spec §4.C9/§9)
// to decide whether a rendered `items` config is a dotted state path
// (still a string) or a collection to use directly (list/map survived
// rendering without being coerced to a display string).
func RenderValue(text string, vars map[string]interface{}) (interface{}, error) {
	tmpl, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if len(tmpl.body) == 1 {
		if out, ok := tmpl.body[0].(outputNode); ok {
			sc := newScope(vars)
			val, err := evalExpr(out.e, sc)
			if err != nil {
				return nil, err
			}
			if u, ok := val.(undefinedType); ok {
				return nil, &Error{Variable: u.path, Message: "unresolved variable reference"}
			}
			return unwrapUndefined(val), nil
		}
	}
	return tmpl.Render(vars)
}

// Render executes the compiled template against vars.
func (t *Template) Render(vars map[string]interface{}) (string, error) {
	sc := newScope(vars)
	var sb strings.Builder
	if err := renderNodes(t.body, sc, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderNodes(nodes []node, sc *scope, out *strings.Builder) error {
	for _, n := range nodes {
		if err := renderNode(n, sc, out); err != nil {
			return err
		}
	}
	return nil
}

func renderNode(n node, sc *scope, out *strings.Builder) error {
	switch v := n.(type) {
	case textNode:
		out.WriteString(v.text)
	case outputNode:
		val, err := evalExpr(v.e, sc)
		if err != nil {
			return err
		}
		if u, ok := val.(undefinedType); ok {
			return &Error{Variable: u.path, Message: "unresolved variable reference"}
		}
		out.WriteString(toDisplayString(val))
	case ifNode:
		for _, branch := range v.branches {
			if branch.cond == nil {
				return renderNodes(branch.body, sc, out)
			}
			cv, err := evalExpr(branch.cond, sc)
			if err != nil {
				return err
			}
			if truthy(cv) {
				return renderNodes(branch.body, sc, out)
			}
		}
	case forNode:
		collVal, err := evalExpr(v.coll, sc)
		if err != nil {
			return err
		}
		return renderFor(v, collVal, sc, out)
	case assignNode:
		val, err := evalExpr(v.e, sc)
		if err != nil {
			return err
		}
		sc.set(v.name, unwrapUndefined(val))
	case captureNode:
		var inner strings.Builder
		if err := renderNodes(v.body, sc, &inner); err != nil {
			return err
		}
		sc.set(v.name, inner.String())
	default:
		return &Error{Message: "unknown node type during render"}
	}
	return nil
}

func renderFor(v forNode, collVal interface{}, sc *scope, out *strings.Builder) error {
	items, err := asIterable(collVal)
	if err != nil {
		return err
	}
	for i, item := range items {
		loopVars := map[string]interface{}{
			v.varName: item,
			"forloop": map[string]interface{}{
				"index":  float64(i + 1),
				"index0": float64(i),
				"first":  i == 0,
				"last":   i == len(items)-1,
				"length": float64(len(items)),
			},
		}
		childScope := sc.push(loopVars)
		if err := renderNodes(v.body, childScope, out); err != nil {
			return err
		}
	}
	return nil
}

func asIterable(v interface{}) ([]interface{}, error) {
	switch t := v.(type) {
	case []interface{}:
		return t, nil
	case map[string]interface{}:
		out := make([]interface{}, 0, len(t))
		for k, val := range t {
			out = append(out, map[string]interface{}{"key": k, "value": val})
		}
		return out, nil
	case undefinedType:
		return nil, nil
	case nil:
		return nil, nil
	}
	return nil, &Error{Message: "for loop: collection is not iterable"}
}
