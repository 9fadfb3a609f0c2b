package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are grouped by module prefix: COMMON_xxx, CHEM_xxx, DOC_xxx.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeMessageQueue       ErrorCode = "COMMON_017"
	ErrCodeStorage            ErrorCode = "COMMON_018"
)

// Chemistry error codes.
const (
	ErrCodeFormulaNotFound   ErrorCode = "CHEM_001"
	ErrCodeFormulaAmbiguous  ErrorCode = "CHEM_002"
	ErrCodeFormulaInvalid    ErrorCode = "CHEM_003"
	ErrCodeBalanceFailed     ErrorCode = "CHEM_004"
	ErrCodeNoReactionFound   ErrorCode = "CHEM_005"
	ErrCodeNameUnresolved    ErrorCode = "CHEM_006"
	ErrCodeParserExhausted   ErrorCode = "CHEM_007"
	ErrCodeDatasetInvalid    ErrorCode = "CHEM_008"
	ErrCodeNoEntitiesInInput ErrorCode = "CHEM_009"
)

// Short aliases used at call sites.
const (
	CodeOK                 = ErrorCode("OK")
	CodeUnknown            = ErrorCode("UNKNOWN")
	CodeInternal           = ErrCodeInternal
	CodeInvalidParam       = ErrCodeBadRequest
	CodeNotFound           = ErrCodeNotFound
	CodeConflict           = ErrCodeConflict
	CodeRateLimit          = ErrCodeTooManyRequests
	CodeServiceUnavailable = ErrCodeServiceUnavailable
	CodeDatabaseError      = ErrCodeDatabaseError
	CodeCacheError         = ErrCodeCacheError
	CodeExternalService    = ErrCodeExternalService
	CodeMessageQueueError  = ErrCodeMessageQueue
	CodeStorageError       = ErrCodeStorage

	CodeFormulaNotFound  = ErrCodeFormulaNotFound
	CodeFormulaAmbiguous = ErrCodeFormulaAmbiguous
	CodeFormulaInvalid   = ErrCodeFormulaInvalid
	CodeBalanceFailed    = ErrCodeBalanceFailed
	CodeNoReactionFound  = ErrCodeNoReactionFound
	CodeNameUnresolved   = ErrCodeNameUnresolved
	CodeParserExhausted  = ErrCodeParserExhausted
	CodeDatasetInvalid   = ErrCodeDatasetInvalid
	CodeNoEntities       = ErrCodeNoEntitiesInInput
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeMessageQueue:       http.StatusInternalServerError,
	ErrCodeStorage:            http.StatusInternalServerError,

	ErrCodeFormulaNotFound:   http.StatusNotFound,
	ErrCodeFormulaAmbiguous:  http.StatusConflict,
	ErrCodeFormulaInvalid:    http.StatusBadRequest,
	ErrCodeBalanceFailed:     http.StatusUnprocessableEntity,
	ErrCodeNoReactionFound:   http.StatusUnprocessableEntity,
	ErrCodeNameUnresolved:    http.StatusNotFound,
	ErrCodeParserExhausted:   http.StatusBadGateway,
	ErrCodeDatasetInvalid:    http.StatusInternalServerError,
	ErrCodeNoEntitiesInInput: http.StatusUnprocessableEntity,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeMessageQueue:       "message queue error",
	ErrCodeStorage:            "object storage error",

	ErrCodeFormulaNotFound:   "formula not found in thermodynamic table",
	ErrCodeFormulaAmbiguous:  "formula matches more than one table row",
	ErrCodeFormulaInvalid:    "invalid chemical formula",
	ErrCodeBalanceFailed:     "reaction cannot be balanced",
	ErrCodeNoReactionFound:   "no balanced reaction found",
	ErrCodeNameUnresolved:    "chemical name could not be resolved",
	ErrCodeParserExhausted:   "document parser retries exhausted",
	ErrCodeDatasetInvalid:    "dataset is invalid",
	ErrCodeNoEntitiesInInput: "no chemical entities found in input",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the code maps to a 4xx status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the code maps to a 5xx status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
