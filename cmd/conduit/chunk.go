package main

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/conduit"
	"github.com/aretw0/conduit/internal/cli"
	"github.com/aretw0/conduit/internal/knowledge"
	"github.com/spf13/cobra"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Clean and split a document into chunks",
	Long:  `Reads a file (or stdin) and prints the chunks the knowledge pipeline would store, as a JSON array.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentType, _ := cmd.Flags().GetString("content-type")
		size, _ := cmd.Flags().GetInt("size")
		overlap, _ := cmd.Flags().GetInt("overlap")

		var (
			data []byte
			err  error
			name = "stdin"
		)
		if len(args) == 1 {
			name = args[0]
			data, err = os.ReadFile(name)
		} else {
			data, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if contentType == "" {
			contentType = knowledge.DetectContentType(name, data)
		}

		stack, _, _, err := buildStack(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		chunks, err := stack.Host.Chunk(cmd.Context(), conduit.ChunkRequest{
			Text:         string(data),
			ContentType:  contentType,
			ChunkSize:    size,
			ChunkOverlap: overlap,
		})
		if err != nil {
			return err
		}
		return cli.PrintJSON(cmd.OutOrStdout(), chunks)
	},
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().String("content-type", "", "MIME type (detected from the file name and content when empty)")
	chunkCmd.Flags().Int("size", 0, "Chunk size in tokens (defaults to CONDUIT_CHUNK_SIZE)")
	chunkCmd.Flags().Int("overlap", 0, "Overlap in tokens (used with --size)")
}
