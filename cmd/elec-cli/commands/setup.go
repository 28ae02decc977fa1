package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"elecharvest/internal/scrapers/elecweb"
)

// terminalSetup asks whoever runs the command to complete the first-use setup in a
// browser sharing the gateway session.
type terminalSetup struct {
	in  io.Reader
	out io.Writer
}

func (t terminalSetup) CompleteSetup(ctx context.Context, prompt elecweb.SetupPrompt) error {
	fmt.Fprintf(
		t.out,
		"Room %s needs its first-use setup before usage can be queried.\n"+
			"Open the following url in a browser logged into the gateway, save the form, then press enter.\n\n  %s\n\n",
		prompt.Selection.Room,
		prompt.Url,
	)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(t.in).ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		return nil
	}
}
