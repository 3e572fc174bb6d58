// Package apperr defines the error taxonomy shared across the meme
// pipeline. Handlers classify failures with errors.As and map each kind
// to a status and user-facing message.
package apperr

import "fmt"

// InputError means the caller-supplied request was invalid.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// FetchError is a transport-level failure reaching an external source.
type FetchError struct {
	URL    string
	Status int // 0 when the request never completed
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetching %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError means fetched content matched none of the known
// structural patterns.
type ExtractionError struct {
	URL string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("no extractable article content at %s", e.URL)
}

// PolicyViolationCode is the provider code signalling a content-policy
// rejection.
const PolicyViolationCode = "content_policy_violation"

// GenerationError means an LLM or image provider rejected or failed the
// request. Status and Code carry the provider-supplied classification.
type GenerationError struct {
	Provider string
	Status   int
	Code     string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: HTTP %d (%s)", e.Provider, e.Status, e.Code)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PolicyViolation reports whether the provider rejected the request on
// content-policy grounds.
func (e *GenerationError) PolicyViolation() bool {
	return e.Code == PolicyViolationCode
}

// PersistenceError is a store read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
