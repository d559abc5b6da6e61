package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"prositor/internal/api"
	"prositor/internal/document"
	"prositor/internal/logging"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Extract text or a document export from a file",
		Long: `Extract plain text from a .docx, .md, .txt, or .json file. When the
extracted text leads with a JSON object it is parsed into a document export
suitable for generate --from-file injection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			res, err := api.ImportFile(cmd.Context(), api.ImportFileRequest{
				Config: cfg,
				Logger: logging.NewNop(),
				Path:   args[0],
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.ImportResponse{
					Text:     res.Text,
					JSONLike: res.JSONLike,
					Document: res.Document,
				})
			}
			out := cmd.OutOrStdout()
			if res.JSONLike && res.Document != nil {
				fmt.Fprintf(out, "Document export detected (topic: %s)\n",
					document.StringField(res.Document, "topic"))
				return writeJSON(cmd, res.Document)
			}
			fmt.Fprintln(out, res.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output extraction as JSON")
	return cmd
}
