package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")

	// ErrDimensionMismatch signals an embedding provider contract violation.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrCandidateContract marks search results missing fields ranking needs.
	ErrCandidateContract = errors.New("candidate contract violation")
	// ErrScoringUnavailable and ErrMalformedScoreResponse are recovered inside
	// the reranker and never reach callers of the pipeline.
	ErrScoringUnavailable     = errors.New("relevance scoring unavailable")
	ErrMalformedScoreResponse = errors.New("malformed relevance score response")

	ErrRetrievalEmpty  = errors.New("retrieval returned no candidates")
	ErrRetrievalFailed = errors.New("retrieval failed")
	ErrPacketNotFound  = errors.New("context packet not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
