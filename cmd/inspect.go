package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Rana718/bde/internal/codemodel"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the compiled code model",
	Long: `
Compile the queries and print the resulting model: every entity with its
typed fields and every query with its parameters, result columns and the
entity it returns. Useful for checking what nullability bde inferred.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		p, err := loadProject()
		if err != nil {
			return err
		}
		model, err := p.compile(cmd.Context())
		if err != nil {
			return reportErrors(err)
		}
		return writeModel(cmd.OutOrStdout(), model, format)
	},
}

func init() {
	inspectCmd.Flags().String("format", "yaml", "Output format: yaml or json")
	rootCmd.AddCommand(inspectCmd)
}

func writeModel(w io.Writer, model *codemodel.CodeModel, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(model); err != nil {
			return fmt.Errorf("failed to encode model: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	default:
		return fmt.Errorf("unsupported format %q (use yaml or json)", format)
	}
}
