package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTaskInProgress indicates a pipeline task is already running.
	// Tasks are single-flight; callers must wait or cancel the running task.
	ErrTaskInProgress = errors.New("task in progress")

	// ErrTaskCancelled indicates the running task was cancelled cooperatively.
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrIndexCorrupt indicates the persisted master index could not be read.
	// Callers decide whether to abort or recreate; the engine never guesses
	// a repaired state.
	ErrIndexCorrupt = errors.New("master index corrupt")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrVaultUnavailable indicates no vault store is configured.
	ErrVaultUnavailable = errors.New("vault store unavailable")

	// ErrMissingCredentials indicates a provider is configured without an API key.
	// This is a configuration error: fatal to the current task, never retried.
	ErrMissingCredentials = errors.New("missing provider credentials")
)

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind string

// Provider error classifications.
const (
	// ErrorKindConfig is a configuration problem (bad credentials, bad model).
	// Fatal to the task, not recorded for retry.
	ErrorKindConfig ErrorKind = "config"

	// ErrorKindTransient is a temporary failure (network, rate limit, 5xx).
	// Recorded in the failure log and eligible for smart retry.
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindContent means a single item's content could not be processed.
	// The item is skipped with a warning; the batch continues.
	ErrorKindContent ErrorKind = "content"
)

// ProviderError is a typed failure returned by embedding and LLM adapters.
// The failure log stores its message, kind and status code for later retry.
type ProviderError struct {
	// Provider names the failing service ("openai-embedding", "openai-llm").
	Provider string

	// Message is the human-readable error detail.
	Message string

	// StatusCode is the HTTP status, or 0 when the call never reached the API.
	StatusCode int

	// Kind classifies the failure for retry decisions.
	Kind ErrorKind
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Transient returns true if the failure is worth retrying on a later run.
func (e *ProviderError) Transient() bool {
	return e.Kind == ErrorKindTransient
}

// ClassifyStatus maps an HTTP status code to an error kind.
// 401/403 are credential problems; 408/429 and 5xx are transient;
// other 4xx indicate a content problem with the request itself.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorKindConfig
	case status == 408 || status == 429 || status >= 500:
		return ErrorKindTransient
	default:
		return ErrorKindContent
	}
}
