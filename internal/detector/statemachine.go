package detector

import (
	"time"

	"signalcore/internal/model"
)

// thresholds holds the hysteresis parameters of the per-board state machine.
// exit must be below enter; the gap prevents flapping near a single cutoff.
type thresholds struct {
	enter    float64
	exit     float64
	confirm  int
	fade     int
	cooldown int
}

// advance moves one board's state machine by a single poll. It mutates sig
// in place and returns the transition, if any. A board can never jump
// straight from Idle to Confirmed or from Confirmed to Idle: confirmation
// always passes through Watching, and expiry through Faded.
func advance(sig *model.MomentumSignal, score float64, now time.Time, th thresholds) *model.Transition {
	from := sig.State
	sig.Score = score
	sig.LastUpdatedAt = now

	switch sig.State {
	case model.StateIdle:
		if score >= th.enter {
			sig.State = model.StateWatching
			sig.ConsecutiveAbove = 1
		}

	case model.StateWatching:
		if score >= th.enter {
			sig.ConsecutiveAbove++
			if sig.ConsecutiveAbove >= th.confirm {
				sig.State = model.StateConfirmed
				sig.ConsecutiveBelow = 0
				sig.TriggeredAt = now
			}
		} else {
			sig.State = model.StateIdle
			sig.ConsecutiveAbove = 0
		}

	case model.StateConfirmed:
		if score < th.exit {
			sig.ConsecutiveBelow++
			if sig.ConsecutiveBelow >= th.fade {
				sig.State = model.StateFaded
				sig.CooldownLeft = th.cooldown
			}
		} else {
			sig.ConsecutiveBelow = 0
		}

	case model.StateFaded:
		sig.CooldownLeft--
		if sig.CooldownLeft <= 0 {
			sig.State = model.StateIdle
			sig.ConsecutiveAbove = 0
			sig.ConsecutiveBelow = 0
		}
	}

	if sig.State == from {
		return nil
	}
	return &model.Transition{
		Board: sig.Board,
		From:  from,
		To:    sig.State,
		Score: score,
		At:    now,
	}
}
