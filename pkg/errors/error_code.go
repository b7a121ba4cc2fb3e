package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidInterval      ErrorCode = 102
	ErrCodeInvalidDateRange     ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104

	// Data errors (200-299)
	ErrCodeNoDataFound           ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeCacheFailed           ErrorCode = 203

	// Strategy errors (300-399)
	ErrCodeSignalGenerationFailed ErrorCode = 300
	ErrCodeSignalMisaligned       ErrorCode = 301

	// Backtest errors (400-499)
	ErrCodeBacktestConfigError ErrorCode = 400
	ErrCodeBacktestRunFailed   ErrorCode = 401
	ErrCodeNoStrategy          ErrorCode = 402
	ErrCodeNoDatasource        ErrorCode = 403

	// Market data errors (500-599)
	ErrCodeMarketDataFetchFailed ErrorCode = 500
	ErrCodeMarketDataWriteFailed ErrorCode = 501
	ErrCodeMarketDataParseFailed ErrorCode = 502
	ErrCodeInvalidProvider       ErrorCode = 503
)
