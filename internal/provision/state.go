// Package provision waits for a newly created droplet to become usable.
package provision

import (
	"encoding/json"
	"math"
	"time"

	"github.com/soyeahso/mcp-digitalocean/internal/domain"
)

// State is a provisioning lifecycle state.
type State string

const (
	StateRequested State = "requested"
	StatePolling   State = "polling"
	StateActive    State = "active"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	switch s {
	case StateActive, StateFailed, StateTimedOut:
		return true
	}
	return false
}

// Outcome is the result of one wait.
type Outcome struct {
	State        State
	Droplet      *domain.DropletState // last observed; the create result if nothing was observed
	Elapsed      time.Duration
	Observations int
	PollErrors   int
	Reason       string
	LastError    error // most recent poll error, if any
}

type outcomeJSON struct {
	State          State                `json:"state"`
	Droplet        *domain.DropletState `json:"droplet,omitempty"`
	ElapsedSeconds float64              `json:"elapsed_seconds"`
	Observations   int                  `json:"observations"`
	PollErrors     int                  `json:"poll_errors"`
	Reason         string               `json:"reason,omitempty"`
	LastError      string               `json:"last_error,omitempty"`
}

// MarshalJSON renders elapsed time in seconds and the last error as text.
func (o Outcome) MarshalJSON() ([]byte, error) {
	w := outcomeJSON{
		State:          o.State,
		Droplet:        o.Droplet,
		ElapsedSeconds: math.Round(o.Elapsed.Seconds()*1000) / 1000,
		Observations:   o.Observations,
		PollErrors:     o.PollErrors,
		Reason:         o.Reason,
	}
	if o.LastError != nil {
		w.LastError = o.LastError.Error()
	}
	return json.Marshal(w)
}
