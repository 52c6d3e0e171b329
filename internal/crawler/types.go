package crawler

import (
	"errors"

	"github.com/JakeFAU/experience-hoarder/internal/code"
)

// Status is the probe state of a single code within the active window.
type Status string

// Status values reported to sinks.
const (
	StatusPending  Status = "pending"
	StatusFound    Status = "found"
	StatusNotFound Status = "not_found"
)

// Resolved reports whether the probe for this code has completed.
func (s Status) Resolved() bool {
	return s == StatusFound || s == StatusNotFound
}

// NotFound reports whether the code did not resolve to a resource.
func (s Status) NotFound() bool {
	return s == StatusNotFound
}

// Entry pairs a code with its current status.
type Entry struct {
	Code   code.Code `json:"code"`
	Status Status    `json:"status"`
}

// ErrUnexpectedResponse is returned by a Prober when the lookup service answers
// with neither an error indicator nor the resource field.
var ErrUnexpectedResponse = errors.New("unexpected lookup response")
