package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 102
	ErrCodeInvalidType          ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105
	ErrCodeInvalidVersion       ErrorCode = 106

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound   ErrorCode = 200
	ErrCodeQueryFailed    ErrorCode = 201
	ErrCodeDataLoadFailed ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301

	// Expression errors (400-499)
	ErrCodeExpressionUnparsable   ErrorCode = 400
	ErrCodeExpressionUndefinedVar ErrorCode = 401
	ErrCodeExpressionUnbalanced   ErrorCode = 402

	// Strategy/script errors (500-599)
	ErrCodeStrategyNotLoaded    ErrorCode = 500
	ErrCodeStrategyConfigError  ErrorCode = 501
	ErrCodeStrategyRuntimeError ErrorCode = 502
	ErrCodeScriptLoadFailed     ErrorCode = 503
	ErrCodeScriptValidation     ErrorCode = 504
	ErrCodeScriptNotReady       ErrorCode = 505
	ErrCodeScriptEntryMissing   ErrorCode = 506

	// Aggregator errors (600-699)
	ErrCodeAggregatorCapacity ErrorCode = 600
	ErrCodeStrategyNotFound   ErrorCode = 601
	ErrCodeInvalidAggregation ErrorCode = 602

	// Replay errors (700-799)
	ErrCodeReplayNoData      ErrorCode = 700
	ErrCodeReplayOutOfRange  ErrorCode = 701
	ErrCodeReplayAlreadyBusy ErrorCode = 702
	ErrCodeTradeStoreFailed  ErrorCode = 703
)

// Category returns the subsystem a code belongs to, derived from its
// numeric range. Used to tag API error responses and log fields.
func (c ErrorCode) Category() string {
	switch {
	case c >= 100 && c < 200:
		return "validation"
	case c >= 200 && c < 300:
		return "data"
	case c >= 300 && c < 400:
		return "indicator"
	case c >= 400 && c < 500:
		return "expression"
	case c >= 500 && c < 600:
		return "strategy"
	case c >= 600 && c < 700:
		return "aggregator"
	case c >= 700 && c < 800:
		return "replay"
	default:
		return "general"
	}
}
