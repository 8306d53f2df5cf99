// Package vision wraps the AI model that names, categorizes, tags, and
// describes images. The model is an external capability: the rest of the
// system only sees the Client interface and the structured Result.
package vision

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResult is returned when the model responds but yields no usable
// structured result. Callers treat it like any other model failure.
var ErrEmptyResult = errors.New("vision model returned no usable result")

// Result is the structured output of an analysis call.
//
// NewCategory is set when the model proposes a category that may not exist
// yet; the catalog auto-creates it before applying the result.
type Result struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Description string   `json:"description"`
	NewCategory string   `json:"newCategory,omitempty"`
}

// Client is the vision model capability.
//
// Analyze receives one or more frames of the same image (several for
// animated inputs) and returns the structured analysis. Classify answers
// which of the accepted content types the image belongs to, for the optional
// pre-ingest filter.
//
// Implementations own their network timeouts; there is no additional
// per-task deadline above this interface.
type Client interface {
	Analyze(ctx context.Context, frames [][]byte) (*Result, error)
	Classify(ctx context.Context, frames [][]byte, accepted []string) (string, error)
}

// TypeAccepted reports whether a classified type is in the accepted list.
// Comparison is case-insensitive; an empty accepted list accepts everything.
func TypeAccepted(imageType string, accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	for _, a := range accepted {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(imageType)) {
			return true
		}
	}
	return false
}
