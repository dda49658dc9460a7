package template

import "strings"

// Template is a parsed, reusable template body. The package-level Render
// parses its input on every call, and the steps render their config strings
// through it at run() time, so they do not keep a parsed Template.
type Template struct {
	body []node
}

// Parse compiles template source into a reusable Template.
func Parse(src string) (*Template, error) {
	chunks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &blockParser{chunks: chunks}
	body, err := p.parseBody(nil)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.chunks) {
		return nil, &Error{Message: "unexpected trailing content after template body"}
	}
	return &Template{body: body}, nil
}

type blockParser struct {
	chunks []chunk
	pos    int
}

func (p *blockParser) peek() (chunk, bool) {
	if p.pos >= len(p.chunks) {
		return chunk{}, false
	}
	return p.chunks[p.pos], true
}

// parseBody parses nodes until it sees one of the terminator tag names
// (e.g. "endif", "elsif", "else", "endfor"), or end of input if terminators
// is nil (top-level parse).
func (p *blockParser) parseBody(terminators []string) ([]node, error) {
	var nodes []node
	for {
		c, ok := p.peek()
		if !ok {
			if terminators != nil {
				return nil, &Error{Message: "unclosed tag: expected one of " + strings.Join(terminators, ", ")}
			}
			return nodes, nil
		}

		switch c.kind {
		case chunkText:
			nodes = append(nodes, textNode{text: c.text})
			p.pos++
		case chunkOutput:
			e, err := parseExprString(c.text)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, outputNode{e: e})
			p.pos++
		case chunkTag:
			name, rest := splitTagWord(c.text)
			if terminators != nil && contains(terminators, name) {
				return nodes, nil
			}
			n, err := p.parseTag(name, rest)
			if err != nil {
				return nil, err
			}
			if n != nil {
				nodes = append(nodes, n)
			}
		}
	}
}

func splitTagWord(content string) (word, rest string) {
	content = strings.TrimSpace(content)
	idx := strings.IndexAny(content, " \t")
	if idx < 0 {
		return content, ""
	}
	return content[:idx], strings.TrimSpace(content[idx+1:])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (p *blockParser) parseTag(name, rest string) (node, error) {
	switch name {
	case "if":
		return p.parseIf(rest, false)
	case "unless":
		return p.parseIf(rest, true)
	case "for":
		return p.parseFor(rest)
	case "assign":
		return p.parseAssign(rest)
	case "capture":
		return p.parseCapture(rest)
	default:
		return nil, &Error{Fragment: name, Message: "unknown tag"}
	}
}

func (p *blockParser) parseIf(cond string, negate bool) (node, error) {
	p.pos++ // consume the opening if/unless tag chunk

	endWord := "endif"
	if negate {
		endWord = "endunless"
	}

	e, err := parseExprString(cond)
	if err != nil {
		return nil, err
	}
	if negate {
		e = &notExpr{x: e}
	}

	branches := []ifBranch{}
	body, err := p.parseBody([]string{"elsif", "else", endWord})
	if err != nil {
		return nil, err
	}
	branches = append(branches, ifBranch{cond: e, body: body})

	for {
		c, ok := p.peek()
		if !ok {
			return nil, &Error{Message: "unclosed if/unless: expected " + endWord}
		}
		name, rest := splitTagWord(c.text)
		switch name {
		case "elsif":
			if negate {
				return nil, &Error{Fragment: c.text, Message: "elsif is not valid inside unless"}
			}
			p.pos++
			e2, err := parseExprString(rest)
			if err != nil {
				return nil, err
			}
			b, err := p.parseBody([]string{"elsif", "else", endWord})
			if err != nil {
				return nil, err
			}
			branches = append(branches, ifBranch{cond: e2, body: b})
		case "else":
			p.pos++
			b, err := p.parseBody([]string{endWord})
			if err != nil {
				return nil, err
			}
			branches = append(branches, ifBranch{cond: nil, body: b})
		case endWord:
			p.pos++
			return ifNode{branches: branches}, nil
		default:
			return nil, &Error{Fragment: c.text, Message: "expected elsif/else/" + endWord}
		}
	}
}

func (p *blockParser) parseFor(spec string) (node, error) {
	p.pos++ // consume the opening for tag chunk

	parts := strings.SplitN(spec, " in ", 2)
	if len(parts) != 2 {
		return nil, &Error{Fragment: spec, Message: "malformed for tag: expected 'x in collection'"}
	}
	varName := strings.TrimSpace(parts[0])
	collExpr, err := parseExprString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}

	body, err := p.parseBody([]string{"endfor"})
	if err != nil {
		return nil, err
	}

	c, ok := p.peek()
	if !ok || c.text != "endfor" {
		return nil, &Error{Message: "unclosed for: expected endfor"}
	}
	p.pos++

	return forNode{varName: varName, coll: collExpr, body: body}, nil
}

func (p *blockParser) parseAssign(spec string) (node, error) {
	p.pos++
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 {
		return nil, &Error{Fragment: spec, Message: "malformed assign tag: expected 'name = expr'"}
	}
	name := strings.TrimSpace(parts[0])
	e, err := parseExprString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return assignNode{name: name, e: e}, nil
}

func (p *blockParser) parseCapture(name string) (node, error) {
	p.pos++
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &Error{Message: "malformed capture tag: expected a variable name"}
	}
	body, err := p.parseBody([]string{"endcapture"})
	if err != nil {
		return nil, err
	}
	c, ok := p.peek()
	if !ok || c.text != "endcapture" {
		return nil, &Error{Message: "unclosed capture: expected endcapture"}
	}
	p.pos++
	return captureNode{name: name, body: body}, nil
}
