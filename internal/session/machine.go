// Package session owns the legal lifecycle of a recording session.
package session

import "github.com/Jasonwill2004/ScribeAI/internal/models"

var transitions = map[models.SessionState][]models.SessionState{
	models.SessionRecording:  {models.SessionPaused, models.SessionProcessing},
	models.SessionPaused:     {models.SessionRecording, models.SessionProcessing},
	models.SessionProcessing: {models.SessionCompleted},
	models.SessionCompleted:  nil,
}

// Transition validates current -> requested and returns the new state.
// Callers must not apply side effects when an error is returned.
func Transition(current, requested models.SessionState) (models.SessionState, error) {
	for _, next := range transitions[current] {
		if next == requested {
			return requested, nil
		}
	}
	return current, &models.InvalidTransitionError{Current: current, Requested: requested}
}

// CanAcceptChunks reports whether audio uploads are legal in state.
func CanAcceptChunks(state models.SessionState) bool {
	return state == models.SessionRecording
}

// IsTerminal reports whether state has no outgoing transitions.
func IsTerminal(state models.SessionState) bool {
	return len(transitions[state]) == 0
}
