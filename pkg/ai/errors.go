// Package ai holds the transcription, summarization and whiteboard analysis
// providers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrNetwork           = errors.New("network error")
	ErrTimeout           = errors.New("request timed out")
	ErrUnsupportedFormat = errors.New("unsupported media format")
	ErrEmptyInput        = errors.New("empty input")
)

// Retryable reports whether a failed provider call may succeed if repeated.
func Retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// classify maps a provider error onto the package sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var timeout interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeout) && timeout.Timeout()) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusBadRequest && mentionsFormat(apiErr.Message) {
			return fmt.Errorf("%s: %w: %s", op, ErrUnsupportedFormat, apiErr.Message)
		}
		if apiErr.HTTPStatusCode == http.StatusGatewayTimeout || apiErr.HTTPStatusCode == http.StatusRequestTimeout {
			return fmt.Errorf("%s: %w: %s", op, ErrTimeout, apiErr.Message)
		}
		return fmt.Errorf("%s: %w: HTTP %d: %s", op, ErrNetwork, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
}

func mentionsFormat(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "file format") || strings.Contains(msg, "unsupported")
}
