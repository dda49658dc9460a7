package template

// expr is the parsed form of everything that can appear inside
// `{{ ... }}` or as a tag condition (`{% if ... %}`, `{% unless ... %}`).
type expr interface{}

type litExpr struct {
	value interface{}
}

// pathSeg is one hop of a dotted/bracketed navigation path: `.name` or
// `[indexExpr]`.
type pathSeg struct {
	name    string
	index   expr
	isIndex bool
}

type pathExpr struct {
	segs []pathSeg
}

type binExpr struct {
	op          string // == != < <= > >= and or
	left, right expr
}

type notExpr struct {
	x expr
}

type filterCall struct {
	name string
	args []expr
}

type filteredExpr struct {
	base    expr
	filters []filterCall
}

// node is the parsed template body: a flat sequence of literal text,
// output substitutions, and control-flow blocks.
type node interface{}

type textNode struct{ text string }

type outputNode struct{ e expr }

type ifBranch struct {
	cond expr // nil for the trailing else branch
	body []node
}

type ifNode struct {
	branches []ifBranch
}

type forNode struct {
	varName string
	coll    expr
	body    []node
}

type assignNode struct {
	name string
	e    expr
}

type captureNode struct {
	name string
	body []node
}
