package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/internal/presentation/graph"
	"github.com/aretw0/conduit/internal/presentation/tui"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/spf13/cobra"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions [name...]",
	Short: "List the registered extensions",
	Long: `Prints the extension catalogue: nodes, fields, children, connection schemas and
knowledge connectors. On a terminal the markdown is rendered; use --json for the raw
descriptors or --mermaid for a flowchart of nodes and their children.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		asMermaid, _ := cmd.Flags().GetBool("mermaid")
		sessionID, _ := cmd.Flags().GetString("session")

		stack, _, _, err := buildStack(context.Background(), cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		exts, err := selectExtensions(stack.Host.Catalogue(), args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		switch {
		case asJSON:
			return cli.PrintJSON(out, exts)
		case asMermaid:
			var overlay *graph.GraphOverlay
			if sessionID != "" {
				session, err := stack.Host.Session(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				overlay = &graph.GraphOverlay{VisitedNodes: session.History}
			}
			fmt.Fprint(out, graph.GenerateMermaid(exts, overlay))
			return nil
		}

		md := tui.CatalogueMarkdown(exts)
		if cli.IsTerminal(os.Stdout) {
			rendered, err := tui.NewRenderer()(md)
			if err == nil {
				md = rendered
			}
		}
		fmt.Fprint(out, md)
		return nil
	},
}

func selectExtensions(all []domain.Extension, names []string) ([]domain.Extension, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]domain.Extension, len(all))
	for _, e := range all {
		byName[e.Name] = e
	}
	out := make([]domain.Extension, 0, len(names))
	for _, n := range names {
		e, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrExtensionNotFound, n)
		}
		out = append(out, e)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(extensionsCmd)
	extensionsCmd.Flags().Bool("json", false, "Print the descriptors as JSON")
	extensionsCmd.Flags().Bool("mermaid", false, "Print a Mermaid flowchart")
	extensionsCmd.Flags().String("session", "", "Highlight the nodes a session ran (with --mermaid)")
}
