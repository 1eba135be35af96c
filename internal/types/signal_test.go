package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func (suite *SignalTestSuite) TestIsActionable() {
	suite.False(SignalNone.IsActionable())
	suite.True(SignalBuy.IsActionable())
	suite.True(SignalSell.IsActionable())
	suite.True(SignalCloseLong.IsActionable())
	suite.True(SignalCloseShort.IsActionable())
	suite.False(SignalType("bogus").IsActionable())
}

func (suite *SignalTestSuite) TestSignalFromValue() {
	testCases := []struct {
		name     string
		value    any
		expected SignalType
	}{
		{"int buy", 1, SignalBuy},
		{"int sell", -1, SignalSell},
		{"int zero", 0, SignalNone},
		{"int out of range", 2, SignalNone},
		{"int64 buy", int64(1), SignalBuy},
		{"whole float buy", float64(1), SignalBuy},
		{"whole float sell", float64(-1), SignalSell},
		{"fractional float", 0.5, SignalNone},
		{"string buy", "buy", SignalBuy},
		{"string upper", "SELL", SignalSell},
		{"string padded", "  close_long ", SignalCloseLong},
		{"string close short", "CLOSE_SHORT", SignalCloseShort},
		{"string unknown", "hold", SignalNone},
		{"signal passthrough", SignalBuy, SignalBuy},
		{"signal none passthrough", SignalNone, SignalNone},
		{"nil", nil, SignalNone},
		{"bool", true, SignalNone},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, SignalFromValue(tc.value))
		})
	}
}
