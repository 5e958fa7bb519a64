package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
)

// ProgressUpdate represents a progress event during an aggregate search.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Coordinator phase
	Step    int    // Sources reported so far
	Total   int    // Sources dispatched
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Coordinator phase enumeration
type Phase int

const (
	Dispatched Phase = iota
	Racing
	SourceDone
	FastPathElapsed
	Settled
)

func (p Phase) String() string {
	switch p {
	case Dispatched:
		return "dispatched"
	case Racing:
		return "racing"
	case SourceDone:
		return "source_done"
	case FastPathElapsed:
		return "fast_path_elapsed"
	case Settled:
		return "settled"
	default:
		return ""
	}
}

func dispatchedUpdate(handles []models.SourceHandle) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Dispatched,
		Total:   len(handles),
		Message: fmt.Sprintf("Querying %d sources...", len(handles)),
		Data:    handles,
	}
}

func racingUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Racing,
		Total:   total,
		Message: "Waiting for results...",
	}
}

func sourceDoneUpdate(step, total int, out models.SourceOutcome) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: %s", step, total, out.Source.ID, shared.ErrorKind(out.Err))
	if out.Found {
		msg = fmt.Sprintf("[%d/%d] %s: %s (score %d)", step, total, out.Source.ID, out.Candidate.Label(), out.Candidate.Score)
	}
	return ProgressUpdate{
		Phase:   SourceDone,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    out,
	}
}

func fastPathUpdate(step, total int, window time.Duration) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FastPathElapsed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("No strong match after %s, collecting stragglers...", window),
	}
}

func settledUpdate(step, total int, best models.CandidateResult, found bool) ProgressUpdate {
	if !found {
		return ProgressUpdate{
			Phase:   Settled,
			Step:    step,
			Total:   total,
			Message: "No match found",
		}
	}
	return ProgressUpdate{
		Phase:   Settled,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Found: %s via %s (score %d)", best.Label(), best.SourceID, best.Score),
		Data:    best,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
