package template

// Expr is the parsed form of a template expression, exported so other
// engine packages (notably the Conditional step's mini-language, spec
// §4.C8) can reuse this package's tokenizer/parser instead of hand-rolling
// a second one: the only difference is which identifiers resolve as plain
// variables versus callable predicates, which EvalWithFuncs parameterizes.
type Expr = expr

// ParseExpression parses a single expression (no `{{`/`{%` delimiters) —
// comparisons, and/or/not, literals, dotted/bracketed paths, and
// `name(arg, ...)` call forms.
func ParseExpression(src string) (Expr, error) {
	return parseExprString(src)
}

// EvalWithFuncs evaluates e against vars, dispatching any `name(args...)`
// call form found in the expression to funcs[name]. Used by the
// Conditional step to implement file_exists/all_files_exist/file_is_newer
// and the and(...)/or(...)/not(...) logical forms over an already
// template-rendered condition string.
func EvalWithFuncs(e Expr, vars map[string]interface{}, funcs map[string]func([]interface{}) (interface{}, error)) (interface{}, error) {
	sc := newScope(vars)
	sc.funcs = funcs
	val, err := evalExpr(e, sc)
	if err != nil {
		return nil, err
	}
	if u, ok := val.(undefinedType); ok {
		return nil, &Error{Variable: u.path, Message: "unresolved variable reference"}
	}
	return val, nil
}

// Truthy exposes this package's truthiness rule (nil, false, the string
// "false" and unresolved references are falsy; everything else — including
// 0 and "" — is truthy) for callers that
// evaluate a condition to a boolean.
func Truthy(v interface{}) bool {
	return truthy(v)
}

// ToDisplayString exposes this package's scalar/collection stringification,
// used by SetContext's nested_render and by the Conditional step when it
// needs to treat a rendered value as plain text.
func ToDisplayString(v interface{}) string {
	return toDisplayString(v)
}

// LookupDotted navigates a dotted/bracketed path (e.g. "data.users[0].id")
// through vars using this package's own path-navigation rules, reporting
// whether it resolved. Used by the Loop step (spec §4.C9) to reinterpret a
// rendered `items` string as a state path before falling back to treating
// it as a literal value.
func LookupDotted(path string, vars map[string]interface{}) (interface{}, bool) {
	e, err := parseExprString(path)
	if err != nil {
		return nil, false
	}
	p, ok := e.(*pathExpr)
	if !ok {
		return nil, false
	}
	sc := newScope(vars)
	val, err := evalPath(p, sc)
	if err != nil {
		return nil, false
	}
	if _, ok := val.(undefinedType); ok {
		return nil, false
	}
	return val, true
}
