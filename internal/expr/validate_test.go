package expr

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ValidateTestSuite struct {
	suite.Suite
	known map[string]struct{}
}

func (suite *ValidateTestSuite) SetupTest() {
	suite.known = map[string]struct{}{
		"price": {},
		"rsi":   {},
	}
}

func TestValidateSuite(t *testing.T) {
	suite.Run(t, new(ValidateTestSuite))
}

func (suite *ValidateTestSuite) TestCleanCondition() {
	suite.Empty(Validate("$rsi < 30 AND $price > 100", suite.known))
	suite.Empty(Validate("CROSS_ABOVE($rsi, 30)", suite.known))
}

func (suite *ValidateTestSuite) TestUndefinedVariable() {
	diags := Validate("$rsi < 30 AND $momentum > 0", suite.known)

	suite.Require().Len(diags, 1)
	suite.Equal(DiagUndefinedVariable, diags[0].Code)
	suite.Contains(diags[0].Message, "$momentum")
	suite.Equal(14, diags[0].Position)
}

func (suite *ValidateTestSuite) TestEveryUndefinedReferenceIsReported() {
	diags := Validate("$a > $b", suite.known)
	suite.Len(diags, 2)
}

func (suite *ValidateTestSuite) TestUnclosedParenthesis() {
	diags := Validate("($rsi < 30", suite.known)

	suite.Require().Len(diags, 1)
	suite.Equal(DiagUnbalancedParen, diags[0].Code)
	suite.Equal(-1, diags[0].Position)
}

func (suite *ValidateTestSuite) TestUnmatchedClosingParenthesis() {
	diags := Validate("$rsi < 30)", suite.known)

	suite.Require().Len(diags, 1)
	suite.Equal(DiagUnbalancedParen, diags[0].Code)
	suite.Equal(9, diags[0].Position)
}
