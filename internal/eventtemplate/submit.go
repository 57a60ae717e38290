package eventtemplate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SubmitLease is how long a stored dialog in the Submitting state blocks
// further actions. A dialog restored after the lease has run out is treated
// as an interrupted submit and becomes Failed.
const SubmitLease = 2 * time.Minute

// ErrStaleSubmission is returned by Complete when the dialog has since been
// submitted again.
var ErrStaleSubmission = errors.New("submission was superseded")

// Submission is one create call prepared by a dialog. Prepare moves the
// dialog to Submitting; Run makes the gateway call; Complete records the
// outcome on the dialog, or on a copy restored from a snapshot.
type Submission struct {
	ID      string
	Started time.Time

	run func(ctx context.Context) (string, error)
}

func newSubmission(run func(ctx context.Context) (string, error)) *Submission {
	return &Submission{ID: uuid.NewString(), Started: time.Now(), run: run}
}

// Run makes the create call.
func (s *Submission) Run(ctx context.Context) (string, error) {
	return s.run(ctx)
}

// restoredState maps a stored state to the state a restored dialog starts in.
func restoredState(s State, submitStarted time.Time, empty State) State {
	switch {
	case s == "":
		return empty
	case s == StateSubmitting && time.Since(submitStarted) >= SubmitLease:
		return StateFailed
	}
	return s
}
