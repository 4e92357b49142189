package template

import "regexp"

// tokenPattern captures everything from a '{' up to the next '}', non-greedy.
// The engine does not validate identifier syntax: "{not an id!}" is a token,
// and so is "{a{b}" (the key is "a{b").
var tokenPattern = regexp.MustCompile(`\{.*?\}`)

// Engine performs flat {name}-style placeholder substitution
type Engine struct{}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{}
}

// Render substitutes every {key} token in body from vars. Keys absent from
// vars render as empty string; vars entries without a matching token are
// inert. The body is scanned exactly once, so substituted values are never
// re-scanned: a value containing "{token}" text stays literal, and the result
// does not depend on token position or map iteration order.
func (e *Engine) Render(body string, vars map[string]string) string {
	if body == "" {
		return ""
	}
	return tokenPattern.ReplaceAllStringFunc(body, func(token string) string {
		return vars[token[1:len(token)-1]]
	})
}
