package expr

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// EvalTestSuite is a test suite for the condition evaluator.
type EvalTestSuite struct {
	suite.Suite
	vars *VarSet
	eval *Evaluator
}

func (suite *EvalTestSuite) SetupTest() {
	suite.vars = NewVarSet()
	suite.eval = NewEvaluator(suite.vars)
}

func TestEvalSuite(t *testing.T) {
	suite.Run(t, new(EvalTestSuite))
}

func (suite *EvalTestSuite) TestComparisons() {
	suite.vars.Set("rsi", 25)
	suite.vars.Set("price", 100)

	testCases := []struct {
		name      string
		condition string
		expected  bool
	}{
		{"less than true", "$rsi < 30", true},
		{"less than false", "$rsi < 20", false},
		{"greater than", "$price > 99.5", true},
		{"less or equal boundary", "$rsi <= 25", true},
		{"greater or equal boundary", "$rsi >= 25", true},
		{"equality within epsilon", "$rsi == 25.00005", true},
		{"equality outside epsilon", "$rsi == 25.001", false},
		{"inequality outside epsilon", "$rsi != 25.001", true},
		{"inequality within epsilon", "$rsi != 25.00005", false},
		{"literal on both sides", "1 < 2", true},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, suite.eval.Evaluate(tc.condition))
		})
	}
}

func (suite *EvalTestSuite) TestUndefinedVariableIsFalse() {
	suite.False(suite.eval.Evaluate("$missing > 0"))
	suite.False(suite.eval.Evaluate("$missing"))

	// An undefined branch only poisons its own sub-expression.
	suite.vars.Set("rsi", 25)
	suite.True(suite.eval.Evaluate("$missing > 0 OR $rsi < 30"))
}

func (suite *EvalTestSuite) TestBooleanComposition() {
	suite.vars.Set("rsi", 25)
	suite.vars.Set("ma_short", 101)
	suite.vars.Set("ma_long", 100)

	testCases := []struct {
		name      string
		condition string
		expected  bool
	}{
		{"and both true", "$rsi < 30 AND $ma_short > $ma_long", true},
		{"and one false", "$rsi < 20 AND $ma_short > $ma_long", false},
		{"or short circuit", "$rsi < 20 OR $ma_short > $ma_long", true},
		{"or precedence", "$rsi < 20 AND $rsi > 10 OR $ma_short > $ma_long", true},
		{"parens override", "$rsi < 20 AND ($rsi > 10 OR $ma_short > $ma_long)", false},
		{"nested parens", "(($rsi < 30) AND ($ma_short > $ma_long))", true},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, suite.eval.Evaluate(tc.condition))
		})
	}
}

func (suite *EvalTestSuite) TestOperatorInsideParensIsNotASplitPoint() {
	suite.vars.Set("a", 1)
	suite.vars.Set("b", 2)

	// The AND inside the parens belongs to the inner expression.
	suite.True(suite.eval.Evaluate("($a > 0 AND $b > 0)"))
	suite.False(suite.eval.Evaluate("($a > 5 AND $b > 0)"))
}

func (suite *EvalTestSuite) TestNumericTruthiness() {
	suite.vars.Set("flag", 1)
	suite.vars.Set("tiny", 0.00005)
	suite.vars.Set("negative", -0.5)

	suite.True(suite.eval.Evaluate("$flag"))
	suite.True(suite.eval.Evaluate("$negative"))
	suite.False(suite.eval.Evaluate("$tiny"))
	suite.False(suite.eval.Evaluate("0"))
	suite.True(suite.eval.Evaluate("42"))
}

func (suite *EvalTestSuite) TestCrossover() {
	// First tick: no previous values, crossovers are false.
	suite.vars.Set("fast", 9)
	suite.vars.Set("slow", 10)
	suite.False(suite.eval.Evaluate("CROSS_ABOVE($fast, $slow)"))

	// Second tick: fast moves from below to above.
	suite.vars.Set("fast", 11)
	suite.vars.Set("slow", 10)
	suite.True(suite.eval.Evaluate("CROSS_ABOVE($fast, $slow)"))
	suite.False(suite.eval.Evaluate("CROSS_BELOW($fast, $slow)"))

	// Third tick: staying above is not a new cross.
	suite.vars.Set("fast", 12)
	suite.vars.Set("slow", 10)
	suite.False(suite.eval.Evaluate("CROSS_ABOVE($fast, $slow)"))

	// Fourth tick: fast drops back below.
	suite.vars.Set("fast", 8)
	suite.vars.Set("slow", 10)
	suite.True(suite.eval.Evaluate("CROSS_BELOW($fast, $slow)"))
}

func (suite *EvalTestSuite) TestCrossoverAgainstLiteral() {
	suite.vars.Set("rsi", 28)
	suite.vars.Set("rsi", 32)

	// A literal is its own previous value.
	suite.True(suite.eval.Evaluate("CROSS_ABOVE($rsi, 30)"))
}

func (suite *EvalTestSuite) TestCrossoverEqualThenAboveCounts() {
	suite.vars.Set("fast", 10)
	suite.vars.Set("slow", 10)
	suite.vars.Set("fast", 11)
	suite.vars.Set("slow", 10)

	// prev(fast) == prev(slow) satisfies the <= leg.
	suite.True(suite.eval.Evaluate("CROSS_ABOVE($fast, $slow)"))
}

func (suite *EvalTestSuite) TestMalformedInputIsFalse() {
	suite.vars.Set("a", 1)

	testCases := []string{
		"",
		"   ",
		"$a >",
		"> $a",
		"CROSS_ABOVE($a)",
		"CROSS_ABOVE($a, $b, $c)",
		"garbage",
	}

	for _, condition := range testCases {
		suite.False(suite.eval.Evaluate(condition), "condition %q", condition)
	}
}

func (suite *EvalTestSuite) TestVarSetPreviousSemantics() {
	vars := NewVarSet()

	vars.Set("x", 1)

	_, ok := vars.Previous("x")
	suite.False(ok, "first Set leaves no previous value")

	vars.Set("x", 2)

	prev, ok := vars.Previous("x")
	suite.True(ok)
	suite.Equal(1.0, prev)

	current, ok := vars.Get("x")
	suite.True(ok)
	suite.Equal(2.0, current)

	vars.Reset()

	_, ok = vars.Get("x")
	suite.False(ok)
}
