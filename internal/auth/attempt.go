package auth

import (
	"log/slog"

	"sso-broker/internal/auth/providers"
	"sso-broker/internal/shared/errors"

	"github.com/google/uuid"
)

// Phase is a step of a single authentication attempt.
type Phase string

const (
	PhaseStarted          Phase = "started"
	PhaseAwaitingCallback Phase = "awaiting_callback"
	PhaseValidated        Phase = "validated"
	PhaseExchanged        Phase = "exchanged"
	PhaseIssued           Phase = "issued"
	PhaseDelivered        Phase = "delivered"
	PhaseFailed           Phase = "failed"
)

var nextPhase = map[Phase]Phase{
	PhaseStarted:          PhaseAwaitingCallback,
	PhaseAwaitingCallback: PhaseValidated,
	PhaseValidated:        PhaseExchanged,
	PhaseExchanged:        PhaseIssued,
	PhaseIssued:           PhaseDelivered,
}

// attempt tracks one request's walk through the phases. The two halves of a
// flow (initiate, complete) run in different requests and each get their own
// attempt; the id correlates log lines within a request.
type attempt struct {
	id     string
	phase  Phase
	logger *slog.Logger
}

func newAttempt(provider providers.Name, phase Phase) *attempt {
	id := uuid.NewString()
	return &attempt{
		id:    id,
		phase: phase,
		logger: slog.With(
			"component", "broker",
			"provider", provider,
			"attempt_id", id,
		),
	}
}

// advance moves to the next phase. Out-of-order transitions are programming
// errors and are logged rather than applied.
func (a *attempt) advance(to Phase) {
	if nextPhase[a.phase] != to {
		a.logger.Error("Invalid authentication attempt transition", "from", a.phase, "to", to)
		return
	}
	a.logger.Debug("Authentication attempt advanced", "from", a.phase, "to", to)
	a.phase = to
}

func (a *attempt) fail(err error) error {
	a.logger.Warn("Authentication attempt failed",
		"phase", a.phase,
		"reason", errors.GetType(err))
	a.phase = PhaseFailed
	return err
}
