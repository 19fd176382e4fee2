package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199). These are fatal and surface at
	// construction time, before any bar is processed.
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidMultiplier    ErrorCode = 103
	ErrCodeInvalidRiskFraction  ErrorCode = 104
	ErrCodeInvalidThreshold     ErrorCode = 105
	ErrCodeUnknownStrategyKind  ErrorCode = 106

	// Data quality errors (200-299). These are per-bar and recoverable:
	// the offending bar is rejected and the run continues.
	ErrCodeInvalidBar     ErrorCode = 200
	ErrCodeOutOfOrderBar  ErrorCode = 201
	ErrCodeDuplicateBar   ErrorCode = 202
	ErrCodeDataNotFound   ErrorCode = 203
	ErrCodeQueryFailed    ErrorCode = 204
	ErrCodeSeriesEmpty    ErrorCode = 205

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeInvalidTransition ErrorCode = 400
	ErrCodeEvaluationFailed  ErrorCode = 401

	// Trading errors (500-599)
	ErrCodeOrderFailed      ErrorCode = 500
	ErrCodePositionNotFound ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeTradeLogFailed   ErrorCode = 600
	ErrCodeStatsWriteFailed ErrorCode = 601
	ErrCodeRunAborted       ErrorCode = 602

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 701
	ErrCodeStreamClosed          ErrorCode = 702
)
