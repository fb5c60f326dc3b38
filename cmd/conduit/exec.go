package main

import (
	"errors"
	"os"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <extension> <node>",
	Short: "Execute a node",
	Long: `Runs one node with the given configuration and prints the execution result as JSON.
With --interactive the node runs once per line read from stdin, in a single session.

Configuration is a JSON object, given inline or as @file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		text, _ := cmd.Flags().GetString("text")
		interactive, _ := cmd.Flags().GetBool("interactive")
		headless, _ := cmd.Flags().GetBool("headless")

		req := conduit.Request{SessionID: sessionID, Extension: args[0], Node: args[1], Text: text}
		if err := jsonFlag(cmd, "config", &req.Config); err != nil {
			return err
		}
		if err := jsonFlag(cmd, "data", &req.Data); err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		stack, _, _, err := buildStack(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		if interactive {
			r := &conduit.Runner{Input: os.Stdin, Output: cmd.OutOrStdout(), Headless: headless}
			if !headless && cli.IsTerminal(os.Stdout) {
				r.Renderer = tui.NewRenderer()
			}
			return r.Run(sigCtx, stack.Host, req)
		}

		res, err := stack.Host.Execute(sigCtx, req)
		var nodeErr *conduit.NodeError
		if err != nil && !(errors.As(err, &nodeErr) && res != nil) {
			return err
		}
		if perr := cli.PrintJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().String("config", "", "Node configuration as JSON or @file")
	execCmd.Flags().String("data", "", "Structured input for the turn as JSON or @file")
	execCmd.Flags().String("text", "", "User text for the turn")
	execCmd.Flags().String("session", "", "Session ID to run in (generated when empty)")
	execCmd.Flags().BoolP("interactive", "i", false, "Read one turn per line from stdin")
	execCmd.Flags().Bool("headless", false, "Disable prompts and rendering (with --interactive)")
}
