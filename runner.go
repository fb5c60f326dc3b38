package conduit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Runner drives one node turn by turn from line based IO, reusing a single session.
// It backs the interactive CLI and is easy to test with buffers.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer transforms output text before it is written, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// Run reads one line per turn and executes req with the line as user text until EOF,
// "exit" or "quit". Node failures are printed and the loop continues.
func (r *Runner) Run(ctx context.Context, host *Host, req Request) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)

	if !r.Headless {
		fmt.Fprintf(r.Output, "--- conduit %s/%s ---\n", req.Extension, req.Node)
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("input error: %w", err)
		}
		eof := errors.Is(err, io.EOF)
		input := strings.TrimSpace(text)

		if input == "exit" || input == "quit" {
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		}
		if input == "" {
			if eof {
				return nil
			}
			continue
		}

		turn := req
		turn.Text = input
		res, execErr := host.Execute(ctx, turn)
		var nodeErr *NodeError
		if execErr != nil && !errors.As(execErr, &nodeErr) {
			return execErr
		}
		req.SessionID = res.SessionID

		if nodeErr != nil {
			fmt.Fprintf(r.Output, "error: %s\n", res.Error)
		}
		for _, out := range res.Outputs {
			r.print(out.Text)
		}
		if len(res.Outputs) == 0 && nodeErr == nil {
			data, _ := json.MarshalIndent(res.Input, "", "  ")
			fmt.Fprintln(r.Output, string(data))
		}
		if res.SelectedChild != "" && !r.Headless {
			fmt.Fprintf(r.Output, "-> %s\n", res.SelectedChild)
		}
		if eof {
			return nil
		}
	}
}

func (r *Runner) print(msg string) {
	if r.Renderer != nil {
		if rendered, err := r.Renderer(msg); err == nil {
			msg = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(msg))
}
