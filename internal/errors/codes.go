// Package errors provides structured error handling for orderdesk.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, store)
//   - 4XX: Validation errors
//   - 5XX: Internal errors (index, worker)
package errors

// Category classifies an error by the layer it comes from.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity tells callers whether they can carry on.
type Severity string

const (
	// SeverityFatal means the current command must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the operation may succeed when retried.
	SeverityWarning Severity = "WARNING"
)

const (
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeCatalogRead  = "ERR_202_CATALOG_READ"
	ErrCodeExportWrite  = "ERR_203_EXPORT_WRITE"
	ErrCodeStoreFailed  = "ERR_204_STORE_FAILED"
	ErrCodeStoreLocked  = "ERR_205_STORE_LOCKED"
	ErrCodeStoreCorrupt = "ERR_206_STORE_CORRUPT"

	ErrCodeInvalidInput       = "ERR_401_INVALID_INPUT"
	ErrCodeUnknownTransformer = "ERR_402_UNKNOWN_TRANSFORMER"
	ErrCodeInvalidQuery       = "ERR_403_INVALID_QUERY"
	ErrCodePositionOutOfRange = "ERR_404_POSITION_OUT_OF_RANGE"
	ErrCodeMissingColumns     = "ERR_405_MISSING_COLUMNS"

	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeSearchFailed   = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed    = "ERR_505_INDEX_FAILED"
	ErrCodeNotInitialized = "ERR_507_NOT_INITIALIZED"
	ErrCodeWorkerClosed   = "ERR_508_WORKER_CLOSED"
)

type codeInfo struct {
	category  Category
	severity  Severity
	retryable bool
}

// codes maps every known code to its classification. A locked store clears
// once the other process exits; a failed index build can be re-attempted
// with another Init.
var codes = map[string]codeInfo{
	ErrCodeConfigNotFound: {CategoryConfig, SeverityError, false},
	ErrCodeConfigInvalid:  {CategoryConfig, SeverityError, false},

	ErrCodeFileNotFound: {CategoryIO, SeverityError, false},
	ErrCodeCatalogRead:  {CategoryIO, SeverityError, false},
	ErrCodeExportWrite:  {CategoryIO, SeverityError, false},
	ErrCodeStoreFailed:  {CategoryIO, SeverityError, false},
	ErrCodeStoreLocked:  {CategoryIO, SeverityWarning, true},
	ErrCodeStoreCorrupt: {CategoryIO, SeverityFatal, false},

	ErrCodeInvalidInput:       {CategoryValidation, SeverityError, false},
	ErrCodeUnknownTransformer: {CategoryValidation, SeverityError, false},
	ErrCodeInvalidQuery:       {CategoryValidation, SeverityError, false},
	ErrCodePositionOutOfRange: {CategoryValidation, SeverityError, false},
	ErrCodeMissingColumns:     {CategoryValidation, SeverityError, false},

	ErrCodeInternal:       {CategoryInternal, SeverityError, false},
	ErrCodeSearchFailed:   {CategoryInternal, SeverityError, false},
	ErrCodeIndexFailed:    {CategoryInternal, SeverityWarning, true},
	ErrCodeNotInitialized: {CategoryInternal, SeverityFatal, false},
	ErrCodeWorkerClosed:   {CategoryInternal, SeverityError, false},
}

// lookup classifies code. Unknown codes are internal errors.
func lookup(code string) codeInfo {
	if info, ok := codes[code]; ok {
		return info
	}
	return codeInfo{CategoryInternal, SeverityError, false}
}
