package notify

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Console writes notifications to an io.Writer, stdout by default. Mostly
// useful when trying the reminder flow from a terminal.
type Console struct {
	out io.Writer
}

func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter is like NewConsole with an explicit destination.
func NewConsoleWriter(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Notify(ctx context.Context, target, message string) error {
	_, err := fmt.Fprintf(c.out, "---------\ntarget: %s\npayload: %s\n---------\n", target, message)
	return err
}
