package main

import (
	"context"
	"fmt"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/spf13/cobra"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Run knowledge connectors and inspect the knowledge sink",
}

var knowledgeRunCmd = &cobra.Command{
	Use:   "run <extension> <connector>",
	Short: "Run a knowledge connector into the configured sink",
	Long: `Imports documents with a knowledge connector (web pages, S3, SharePoint, ...) and
writes their chunks to the sink selected by CONDUIT_KNOWLEDGE_SINK. Prints the run summary.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := conduit.ConnectorRequest{Extension: args[0], Connector: args[1]}
		if err := jsonFlag(cmd, "config", &req.Config); err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		stack, _, _, err := buildStack(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		summary, err := stack.Host.RunConnector(sigCtx, req)
		if summary != nil {
			if perr := cli.PrintJSON(cmd.OutOrStdout(), summary); perr != nil {
				return perr
			}
		}
		return err
	},
}

// sourceLister is implemented by sinks that can enumerate their sources.
type sourceLister interface {
	Sources(ctx context.Context) ([]domain.KnowledgeSource, error)
}

var knowledgeSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources stored in the knowledge sink",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, cfg, _, err := buildStack(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		lister, ok := stack.Host.Sink().(sourceLister)
		if !ok {
			return fmt.Errorf("knowledge sink %q cannot list sources", cfg.KnowledgeSink)
		}
		sources, err := lister.Sources(cmd.Context())
		if err != nil {
			return err
		}
		return cli.PrintJSON(cmd.OutOrStdout(), sources)
	},
}

func init() {
	rootCmd.AddCommand(knowledgeCmd)
	knowledgeCmd.AddCommand(knowledgeRunCmd, knowledgeSourcesCmd)
	knowledgeRunCmd.Flags().String("config", "", "Connector configuration as JSON or @file")
}
