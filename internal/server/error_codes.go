package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument   = 1000
	ErrCodeInvalidJSON       = 1001
	ErrCodeRequestTooLarge   = 1002
	ErrCodeInvalidCodename   = 1003
	ErrCodeInvalidTTL        = 1004
	ErrCodeInvalidBitDepth   = 1005
	ErrCodePasswordTooShort  = 1006
	ErrCodeMissingRequired   = 1007
	ErrCodeCapacityExceeded  = 1008
	ErrCodeUnsupportedFormat = 1009

	// Domain state (2xxx)
	ErrCodeDropNotFound   = 2001
	ErrCodeDropExpired    = 2002
	ErrCodeDropBurned     = 2003
	ErrCodeRetrievalLimit = 2004
	ErrCodeCodenameExists = 2101

	// Auth & limits (3xxx)
	ErrCodeInvalidPassword   = 3001
	ErrCodeUnauthorized      = 3002
	ErrCodeForbidden         = 3003
	ErrCodeResourceExhausted = 3004
	ErrCodeAttemptsThrottled = 3005

	// Internal/system (4xxx)
	ErrCodeInternal     = 4001
	ErrCodeStoreFailure = 4002
	ErrCodeStegoFailure = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeInvalidPassword
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodeDropNotFound
	case 410:
		return ErrCodeDropExpired
	case 415:
		return ErrCodeUnsupportedFormat
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
