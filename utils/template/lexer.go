package template

import "strings"

// chunkKind distinguishes the three raw pieces a template source splits into
// before parsing: literal text, an `{{ output }}`, or an `{% tag %}`.
type chunkKind int

const (
	chunkText chunkKind = iota
	chunkOutput
	chunkTag
)

type chunk struct {
	kind chunkKind
	text string // for chunkText: literal text; otherwise: the trimmed content between delimiters
}

// lex splits raw template source into an ordered list of chunks. It does not
// validate tag/output syntax beyond matching delimiters — that is the
// parser's job, so that unclosed-tag errors can name the offending
// fragment.
func lex(src string) ([]chunk, error) {
	var chunks []chunk
	i := 0
	for i < len(src) {
		nextOutput := strings.Index(src[i:], "{{")
		nextTag := strings.Index(src[i:], "{%")

		if nextOutput < 0 && nextTag < 0 {
			chunks = append(chunks, chunk{kind: chunkText, text: src[i:]})
			break
		}

		var kind chunkKind
		var startDelim, endDelim string
		var rel int
		if nextTag < 0 || (nextOutput >= 0 && nextOutput < nextTag) {
			kind = chunkOutput
			startDelim, endDelim = "{{", "}}"
			rel = nextOutput
		} else {
			kind = chunkTag
			startDelim, endDelim = "{%", "%}"
			rel = nextTag
		}

		if rel > 0 {
			chunks = append(chunks, chunk{kind: chunkText, text: src[i : i+rel]})
		}

		start := i + rel + len(startDelim)
		end := strings.Index(src[start:], endDelim)
		if end < 0 {
			return nil, &Error{Fragment: src[i+rel:], Message: "unclosed " + startDelim + " ... " + endDelim}
		}
		content := strings.TrimSpace(src[start : start+end])
		chunks = append(chunks, chunk{kind: kind, text: content})

		i = start + end + len(endDelim)
	}
	return chunks, nil
}
