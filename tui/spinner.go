package tui

import (
	"context"

	"github.com/charmbracelet/huh/spinner"
)

// ShowSpinner displays a spinner while action runs and returns its error.
// Without a terminal the action simply runs. Cancelling ctx stops the
// spinner; the action sees the same context.
func ShowSpinner(ctx context.Context, title string, action func(ctx context.Context) error) error {
	if !HasTTY {
		return action(ctx)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var err error
	done := make(chan struct{})
	runErr := spinner.New().
		Context(ctx).
		Title(title).
		Action(func() {
			defer close(done)
			err = action(ctx)
		}).
		Run()
	if runErr != nil {
		// the spinner gave up early, so wait for the action to finish
		cancel()
	}
	<-done
	return err
}
