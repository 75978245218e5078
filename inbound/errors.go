package inbound

import (
	"net/http"

	"github.com/goliatone/go-buildhook/core"
	goerrors "github.com/goliatone/go-errors"
)

const ErrorBodyTooLarge = "BUILDHOOK_BODY_TOO_LARGE"

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func inboundWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return inboundError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

func bodyTooLargeError(limit int64) error {
	return inboundError(
		"inbound: request body too large",
		goerrors.CategoryBadInput,
		http.StatusRequestEntityTooLarge,
		ErrorBodyTooLarge,
		map[string]any{"max_body_bytes": limit},
	)
}

func bodyReadError(source error) error {
	return inboundWrapError(
		source,
		goerrors.CategoryBadInput,
		"inbound: unable to read request body",
		http.StatusBadRequest,
		core.ErrorMalformedSource,
		nil,
	)
}
