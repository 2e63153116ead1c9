package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidUpload     = errors.New("invalid upload")
	ErrMalformedWorkbook = errors.New("malformed workbook")
	ErrNoActiveSnapshot  = errors.New("no container file has been uploaded")
	ErrNoAuditResult     = errors.New("no audit results available")
)
