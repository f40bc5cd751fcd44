package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/bde/internal/codemodel"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compile the queries and report errors without writing files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}

		model, err := p.compile(cmd.Context())
		if err != nil {
			return reportErrors(err)
		}

		if verbose {
			for _, q := range model.Queries {
				color.White("  %s", describeQuery(q))
			}
		}
		for _, w := range entityWarnings(model) {
			color.Yellow("⚠️  %s", w)
		}
		color.Green("✅ %d queries and %d entities compiled", len(model.Queries), len(model.Entities))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// entityWarnings lists queries whose "-- entity:" name was not used because
// an earlier query already produced an entity with the same columns.
func entityWarnings(model *codemodel.CodeModel) []string {
	var out []string
	for _, q := range model.Queries {
		if q.RequestedEntity != "" {
			out = append(out, fmt.Sprintf("%s (%s:%d): requested entity %s has the same columns as %s, so %s is used",
				q.Name, q.File, q.Line, q.RequestedEntity, q.EntityName, q.EntityName))
		}
	}
	return out
}

// describeQuery renders a one-line signature, e.g.
// "GetUser(id int!) :one -> Users".
func describeQuery(q *codemodel.Query) string {
	params := make([]string, len(q.Params))
	for i, p := range q.Params {
		params[i] = p.Name + " " + p.Type.String()
	}
	line := fmt.Sprintf("%s(%s) :%s", q.Name, strings.Join(params, ", "), q.Cardinality)
	if q.Entity != nil {
		line += " -> " + q.Entity.Name
	}
	return line
}
