package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSummaryNotFound     = errors.New("summary not found")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrStateConflict       = errors.New("session state changed concurrently")
	ErrChunkRejected       = errors.New("chunk rejected")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrWriteFailed         = errors.New("chunk write failed")
	ErrNoChunksToAggregate = errors.New("no chunks to aggregate")
	ErrAggregationFailed   = errors.New("aggregation failed")
	ErrNoChunksFound       = errors.New("no chunks found")
	ErrFileNotReady        = errors.New("file not ready")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrSummarizationFailed = errors.New("summarization failed")
)

// InvalidTransitionError names the rejected edge of the session graph.
type InvalidTransitionError struct {
	Current   SessionState
	Requested SessionState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Requested)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
