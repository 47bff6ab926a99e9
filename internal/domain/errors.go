package domain

import "errors"

var (
	ErrNotFound             = errors.New("resource not found")
	ErrContractNotFound     = errors.New("contract not found")
	ErrContractNotCompleted = errors.New("contract extraction has not completed")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrEmptyFile            = errors.New("file is empty")
	ErrUploadFailed         = errors.New("file upload to storage failed")
	ErrInsufficientText     = errors.New("could not extract meaningful text from the file")
	ErrInvalidExportFormat  = errors.New("export format must be one of json, csv, xlsx")
	ErrNotSupported         = errors.New("operation not supported by this backend")
)
