package core

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorMissingCredential    = "BUILDHOOK_MISSING_CREDENTIAL"
	ErrorInvalidCredential    = "BUILDHOOK_INVALID_CREDENTIAL"
	ErrorStaleOrFutureRequest = "BUILDHOOK_STALE_OR_FUTURE_REQUEST"
	ErrorChecksumMismatch     = "BUILDHOOK_CHECKSUM_MISMATCH"
	ErrorMalformedSource      = "BUILDHOOK_MALFORMED_SOURCE"
	ErrorSchemaViolation      = "BUILDHOOK_SCHEMA_VIOLATION"
	ErrorPublishFailed        = "BUILDHOOK_PUBLISH_FAILED"
	ErrorInternal             = "BUILDHOOK_INTERNAL_ERROR"
)

// MetadataViolations carries the []Violation of a schema rejection.
const MetadataViolations = "violations"

func MissingCredentialError(header string) error {
	return goerrors.New("authentication failed: request credential is missing", goerrors.CategoryAuth).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorMissingCredential).
		WithMetadata(map[string]any{"header": strings.TrimSpace(header)})
}

// InvalidCredentialError never wraps the decryption cause; callers log it.
func InvalidCredentialError() error {
	return goerrors.New("authentication failed: request credential is invalid", goerrors.CategoryAuth).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorInvalidCredential)
}

func StaleOrFutureRequestError(skew time.Duration, window time.Duration) error {
	return goerrors.New("authentication failed: request timestamp outside freshness window", goerrors.CategoryAuth).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorStaleOrFutureRequest).
		WithMetadata(map[string]any{
			"skew_ms":   skew.Milliseconds(),
			"window_ms": window.Milliseconds(),
		})
}

// ChecksumMismatchError keeps both digests in metadata for diagnostics only.
func ChecksumMismatchError(segment string, computed string, received string) error {
	return goerrors.New("integrity check failed: payload checksum mismatch", goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorChecksumMismatch).
		WithMetadata(map[string]any{
			"segment":         segment,
			"computed_digest": computed,
			"received_digest": received,
		})
}

func MalformedSourceError(message string, metadata map[string]any) error {
	err := goerrors.New(fmt.Sprintf("normalization failed: %s", strings.TrimSpace(message)), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorMalformedSource)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func SchemaViolationError(violations []Violation) error {
	copied := append([]Violation(nil), violations...)
	return goerrors.New(
		fmt.Sprintf("validation failed: %d schema violation(s)", len(copied)),
		goerrors.CategoryValidation,
	).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorSchemaViolation).
		WithMetadata(map[string]any{MetadataViolations: copied})
}

func PublishError(cause error, metadata map[string]any) error {
	var err *goerrors.Error
	if cause == nil {
		err = goerrors.New("publish failed", goerrors.CategoryExternal)
	} else {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, "publish failed")
	}
	err = err.WithCode(http.StatusBadGateway).WithTextCode(ErrorPublishFailed)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func InternalError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal)
}

func WrapInternal(cause error, message string) error {
	if cause == nil {
		return InternalError(message)
	}
	return goerrors.Wrap(cause, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorInternal)
}

// ErrorEnvelope maps any error to a go-errors envelope with an HTTP code and
// text code. Errors produced outside this package become internal errors.
func ErrorEnvelope(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return ensureErrorEnvelope(rich)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	if mapped == nil {
		mapped = goerrors.New(err.Error(), goerrors.CategoryInternal)
	}
	return ensureErrorEnvelope(mapped)
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, textCode string) bool {
	rich := ErrorEnvelope(err)
	if rich == nil {
		return false
	}
	return rich.TextCode == textCode
}

// ViolationsFromError extracts the schema violations of a rejection.
func ViolationsFromError(err error) []Violation {
	rich := ErrorEnvelope(err)
	if rich == nil || rich.Metadata == nil {
		return nil
	}
	violations, _ := rich.Metadata[MetadataViolations].([]Violation)
	return violations
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = errorHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorInvalidCredential
	case goerrors.CategoryBadInput:
		return ErrorMalformedSource
	case goerrors.CategoryValidation:
		return ErrorSchemaViolation
	case goerrors.CategoryExternal:
		return ErrorPublishFailed
	default:
		return ErrorInternal
	}
}

func errorHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
