package expr

import (
	"fmt"
	"regexp"
)

// Diagnostic codes reported by Validate.
const (
	DiagUndefinedVariable = "undefined_variable"
	DiagUnbalancedParen   = "unbalanced_paren"
)

// Diagnostic is a single static-validation finding in a condition string.
type Diagnostic struct {
	// Code is a stable machine-readable code.
	Code string `json:"code"`
	// Message describes the defect.
	Message string `json:"message"`
	// Position is the byte offset of the defect within the condition,
	// or -1 when no position applies.
	Position int `json:"position"`
}

var varRefPattern = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*`)

// Validate statically checks a condition against the set of known
// variable names, reporting every undefined $name reference and any
// unbalanced-parenthesis defect. It is meant for strategy-load time, not
// the per-tick path.
func Validate(condition string, known map[string]struct{}) []Diagnostic {
	var diagnostics []Diagnostic

	for _, loc := range varRefPattern.FindAllStringIndex(condition, -1) {
		name := condition[loc[0]+1 : loc[1]]
		if _, ok := known[name]; !ok {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     DiagUndefinedVariable,
				Message:  fmt.Sprintf("undefined variable $%s", name),
				Position: loc[0],
			})
		}
	}

	depth := 0

	for i := 0; i < len(condition); i++ {
		switch condition[i] {
		case '(':
			depth++
		case ')':
			depth--
		}

		if depth < 0 {
			diagnostics = append(diagnostics, Diagnostic{
				Code:     DiagUnbalancedParen,
				Message:  "unmatched closing parenthesis",
				Position: i,
			})

			depth = 0
		}
	}

	if depth > 0 {
		diagnostics = append(diagnostics, Diagnostic{
			Code:     DiagUnbalancedParen,
			Message:  fmt.Sprintf("%d unclosed parenthesis(es)", depth),
			Position: -1,
		})
	}

	return diagnostics
}
