package expr

import (
	"math"
	"strconv"
	"strings"
)

// epsilon is the tolerance used for equality comparisons and numeric
// truthiness. Comparisons never use exact floating equality.
const epsilon = 0.0001

// comparisonOps are tried in this exact order so that "<" never matches
// inside "<=" (and the same for ">" / ">=").
var comparisonOps = []string{"<=", ">=", "!=", "==", "<", ">"}

// Evaluator evaluates boolean condition strings against a VarSet.
//
// Grammar, lowest to highest precedence:
//
//	OR > AND > parenthesized sub-expression > CROSS_ABOVE/CROSS_BELOW >
//	comparison > bare numeric truthiness (|value| > 0.0001).
//
// Operands are $name variable references or numeric literals. Any
// undefined variable or unparsable operand makes the condition false;
// evaluation never fails out of a strategy tick.
type Evaluator struct {
	vars *VarSet
}

// NewEvaluator creates an evaluator over the given variable set.
func NewEvaluator(vars *VarSet) *Evaluator {
	return &Evaluator{vars: vars}
}

// Vars returns the underlying variable set.
func (e *Evaluator) Vars() *VarSet {
	return e.vars
}

// Evaluate evaluates a condition string, reporting false on any defect.
func (e *Evaluator) Evaluate(condition string) bool {
	return e.eval(condition)
}

func (e *Evaluator) eval(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	// OR binds loosest.
	if parts := splitTopLevel(input, "OR"); len(parts) > 1 {
		for _, part := range parts {
			if e.eval(part) {
				return true
			}
		}

		return false
	}

	if parts := splitTopLevel(input, "AND"); len(parts) > 1 {
		for _, part := range parts {
			if !e.eval(part) {
				return false
			}
		}

		return true
	}

	if inner, ok := stripOuterParens(input); ok {
		return e.eval(inner)
	}

	if args, ok := matchCall(input, "CROSS_ABOVE"); ok {
		return e.crossover(args, true)
	}

	if args, ok := matchCall(input, "CROSS_BELOW"); ok {
		return e.crossover(args, false)
	}

	for _, op := range comparisonOps {
		idx := indexTopLevel(input, op)
		if idx < 0 {
			continue
		}

		left, lok := e.operand(input[:idx])
		right, rok := e.operand(input[idx+len(op):])

		if !lok || !rok {
			return false
		}

		return compare(left, right, op)
	}

	value, ok := e.operand(input)

	return ok && math.Abs(value) > epsilon
}

// crossover evaluates CROSS_ABOVE(a,b) / CROSS_BELOW(a,b):
// true iff prev(a) <= prev(b) and a > b (mirrored for below). The
// predicate is false, never an error, when no previous value exists yet.
func (e *Evaluator) crossover(args []string, above bool) bool {
	if len(args) != 2 {
		return false
	}

	aCur, aPrev, aok := e.operandPair(args[0])
	bCur, bPrev, bok := e.operandPair(args[1])

	if !aok || !bok {
		return false
	}

	if above {
		return aPrev <= bPrev && aCur > bCur
	}

	return aPrev >= bPrev && aCur < bCur
}

// operand resolves a $name reference or numeric literal.
func (e *Evaluator) operand(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if inner, ok := stripOuterParens(s); ok {
		return e.operand(inner)
	}

	if strings.HasPrefix(s, "$") {
		return e.vars.Get(s[1:])
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

// operandPair resolves both current and previous values of an operand.
// A numeric literal is its own previous value.
func (e *Evaluator) operandPair(s string) (current, previous float64, ok bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "$") {
		name := s[1:]

		current, curOK := e.vars.Get(name)
		previous, prevOK := e.vars.Previous(name)

		if !curOK || !prevOK {
			return 0, 0, false
		}

		return current, previous, true
	}

	value, valueOK := e.operand(s)
	if !valueOK {
		return 0, 0, false
	}

	return value, value, true
}

func compare(left, right float64, op string) bool {
	switch op {
	case "<=":
		return left <= right
	case ">=":
		return left >= right
	case "==":
		return math.Abs(left-right) < epsilon
	case "!=":
		return math.Abs(left-right) >= epsilon
	case "<":
		return left < right
	case ">":
		return left > right
	default:
		return false
	}
}

// splitTopLevel splits input on word occurrences of op (AND/OR) that sit
// at parenthesis depth zero. An operator inside unbalanced parens is not
// a split point.
func splitTopLevel(input, op string) []string {
	var parts []string

	depth := 0
	start := 0

	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '(':
			depth++
		case ')':
			depth--
		}

		if depth != 0 || !strings.HasPrefix(input[i:], op) {
			continue
		}

		if !isWordBoundary(input, i, len(op)) {
			continue
		}

		parts = append(parts, input[start:i])
		i += len(op) - 1
		start = i + 1
	}

	if start == 0 {
		return []string{input}
	}

	parts = append(parts, input[start:])

	return parts
}

// isWordBoundary reports whether the op occurrence at [i, i+n) is
// delimited by non-identifier characters on both sides.
func isWordBoundary(input string, i, n int) bool {
	if i > 0 && isWordChar(input[i-1]) {
		return false
	}

	if i+n < len(input) && isWordChar(input[i+n]) {
		return false
	}

	return true
}

func isWordChar(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// stripOuterParens unwraps input when one pair of parens encloses the
// whole expression.
func stripOuterParens(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if len(input) < 2 || input[0] != '(' || input[len(input)-1] != ')' {
		return "", false
	}

	depth := 0

	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '(':
			depth++
		case ')':
			depth--
		}

		// The first paren closed before the end: not a full wrap.
		if depth == 0 && i < len(input)-1 {
			return "", false
		}
	}

	if depth != 0 {
		return "", false
	}

	return input[1 : len(input)-1], true
}

// matchCall matches name(arg1,arg2,...) where the opening paren's match
// is the final character, returning the top-level comma-split arguments.
func matchCall(input, name string) ([]string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, name) {
		return nil, false
	}

	rest := strings.TrimSpace(input[len(name):])
	if len(rest) < 2 || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return nil, false
	}

	inner, ok := stripOuterParens(rest)
	if !ok {
		return nil, false
	}

	var args []string

	depth := 0
	start := 0

	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, inner[start:i])
				start = i + 1
			}
		}
	}

	args = append(args, inner[start:])

	return args, true
}

// indexTopLevel returns the first index of op at parenthesis depth zero.
func indexTopLevel(input, op string) int {
	depth := 0

	for i := 0; i < len(input); i++ {
		switch input[i] {
		case '(':
			depth++
		case ')':
			depth--
		}

		if depth == 0 && strings.HasPrefix(input[i:], op) {
			return i
		}
	}

	return -1
}
