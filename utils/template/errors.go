package template

import "fmt"

// Error is the TemplateError kind from spec §7: an unrenderable template
// fragment, carrying the offending source fragment and (when relevant) the
// variable path that failed to resolve.
type Error struct {
	Fragment string
	Variable string
	Message  string
}

func (e *Error) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("template error: %s (variable %q, fragment %q)", e.Message, e.Variable, e.Fragment)
	}
	return fmt.Sprintf("template error: %s (fragment %q)", e.Message, e.Fragment)
}
