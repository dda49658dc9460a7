package template

import (
	"fmt"
	"strconv"
)

// undefinedType marks a path navigation that did not resolve. It is caught
// by the `default` filter; anywhere else it surfaces as a TemplateError in
// output position, and as a falsy value in condition position (if/unless/
// for/elsif), mirroring how the spec singles out `default` as the one
// forgiving mechanism while leaving comparisons lenient.
type undefinedType struct{ path string }

// scope is a chain of variable frames: the base frame from state plus any
// layers pushed by `for`/`capture`/`assign`. Lookups walk outward.
type scope struct {
	vars   map[string]interface{}
	parent *scope
	funcs  map[string]func([]interface{}) (interface{}, error)
}

func newScope(base map[string]interface{}) *scope {
	if base == nil {
		base = map[string]interface{}{}
	}
	return &scope{vars: base}
}

func (s *scope) push(vars map[string]interface{}) *scope {
	return &scope{vars: vars, parent: s}
}

func (s *scope) lookupFunc(name string) (func([]interface{}) (interface{}, error), bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.funcs != nil {
			if f, ok := cur.funcs[name]; ok {
				return f, true
			}
		}
	}
	return nil, false
}

func (s *scope) lookup(name string) (interface{}, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// set assigns into the topmost frame, matching Liquid's `assign`/`capture`
// semantics of writing into the current (innermost) scope.
func (s *scope) set(name string, value interface{}) {
	s.vars[name] = value
}

func evalExpr(e expr, sc *scope) (interface{}, error) {
	switch v := e.(type) {
	case *litExpr:
		if items, ok := v.value.([]expr); ok {
			out := make([]interface{}, len(items))
			for i, item := range items {
				val, err := evalExpr(item, sc)
				if err != nil {
					return nil, err
				}
				out[i] = val
			}
			return out, nil
		}
		return v.value, nil
	case *pathExpr:
		return evalPath(v, sc)
	case *binExpr:
		return evalBin(v, sc)
	case *notExpr:
		inner, err := evalExpr(v.x, sc)
		if err != nil {
			return nil, err
		}
		return !truthy(inner), nil
	case *filteredExpr:
		return evalFiltered(v, sc)
	}
	return nil, fmt.Errorf("template: unknown expression node %T", e)
}

func evalPath(p *pathExpr, sc *scope) (interface{}, error) {
	if len(p.segs) == 0 {
		return nil, fmt.Errorf("template: empty path")
	}
	first := p.segs[0]
	cur, ok := sc.lookup(first.name)
	fullPath := first.name
	if !ok {
		return undefinedType{path: fullPath}, nil
	}

	for _, seg := range p.segs[1:] {
		if seg.isIndex {
			idxVal, err := evalExpr(seg.index, sc)
			if err != nil {
				return nil, err
			}
			next, ok := indexInto(cur, idxVal)
			fullPath += fmt.Sprintf("[%v]", idxVal)
			if !ok {
				return undefinedType{path: fullPath}, nil
			}
			cur = next
			continue
		}
		next, ok := indexInto(cur, seg.name)
		fullPath += "." + seg.name
		if !ok {
			return undefinedType{path: fullPath}, nil
		}
		cur = next
	}
	return cur, nil
}

func indexInto(container, key interface{}) (interface{}, bool) {
	switch c := container.(type) {
	case map[string]interface{}:
		switch k := key.(type) {
		case string:
			v, ok := c[k]
			return v, ok
		case float64:
			v, ok := c[formatNumber(k)]
			return v, ok
		}
	case []interface{}:
		idx, ok := toInt(key)
		if !ok || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	}
	return nil, false
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func evalBin(b *binExpr, sc *scope) (interface{}, error) {
	switch b.op {
	case "and":
		l, err := evalExpr(b.left, sc)
		if err != nil {
			return nil, err
		}
		if !truthy(l) {
			return false, nil
		}
		r, err := evalExpr(b.right, sc)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	case "or":
		l, err := evalExpr(b.left, sc)
		if err != nil {
			return nil, err
		}
		if truthy(l) {
			return true, nil
		}
		r, err := evalExpr(b.right, sc)
		if err != nil {
			return nil, err
		}
		return truthy(r), nil
	}

	l, err := evalExpr(b.left, sc)
	if err != nil {
		return nil, err
	}
	r, err := evalExpr(b.right, sc)
	if err != nil {
		return nil, err
	}
	return compare(b.op, l, r)
}

func compare(op string, l, r interface{}) (interface{}, error) {
	if lf, ok := asFloat(l); ok {
		if rf, ok := asFloat(r); ok {
			switch op {
			case "==":
				return lf == rf, nil
			case "!=":
				return lf != rf, nil
			case "<":
				return lf < rf, nil
			case "<=":
				return lf <= rf, nil
			case ">":
				return lf > rf, nil
			case ">=":
				return lf >= rf, nil
			}
		}
	}

	ls := toDisplayString(l)
	rs := toDisplayString(r)
	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	case ">":
		return ls > rs, nil
	case ">=":
		return ls >= rs, nil
	}
	return nil, fmt.Errorf("template: unknown comparison operator %q", op)
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

const callFilterPrefix = "__call_"

func evalFiltered(f *filteredExpr, sc *scope) (interface{}, error) {
	val, err := evalExpr(f.base, sc)
	if err != nil {
		return nil, err
	}
	for _, call := range f.filters {
		args := make([]interface{}, len(call.args))
		for i, a := range call.args {
			av, err := evalExpr(a, sc)
			if err != nil {
				return nil, err
			}
			args[i] = av
		}

		if len(call.name) > len(callFilterPrefix) && call.name[:len(callFilterPrefix)] == callFilterPrefix {
			fname := call.name[len(callFilterPrefix):]
			fn, ok := sc.lookupFunc(fname)
			if !ok {
				return nil, &Error{Fragment: fname, Message: "unknown function"}
			}
			val, err = fn(args)
			if err != nil {
				return nil, err
			}
			continue
		}

		val, err = applyFilter(call.name, val, args)
		if err != nil {
			return nil, err
		}
	}
	return val, nil
}

// truthy treats Undefined, nil, false, and "false" as falsy; everything
// else (including 0 and "", per the spec's lenient comparison rule) as
// truthy, matching Liquid's convention that only nil/false are falsy
// except where the spec calls out boolean-string coercion explicitly.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case undefinedType:
		return false
	case nil:
		return false
	case bool:
		return t
	case string:
		if t == "false" {
			return false
		}
		if t == "true" {
			return true
		}
		return true
	}
	return true
}
