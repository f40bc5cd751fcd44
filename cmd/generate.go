package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/bde/internal/gencommon"
	"github.com/Rana718/bde/internal/render"
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen"},
	Short:   "Generate PHP classes from the schema and queries",
	Long: `
Compile every annotated query against the schema and write one PHP class per
entity plus one class holding a method per query.

Only files whose content changed are rewritten. When nothing that affects the
output changed since the last run, generation is skipped entirely; use --force
to regenerate anyway.`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolP("force", "f", false, "Regenerate and rewrite every file")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	p, err := loadProject()
	if err != nil {
		return err
	}
	cfg := p.cfg

	cache := gencommon.NewGenerationCache(cfg.Output.Dir)
	schemaHash, configHash, queryHashes, err := p.checksums()
	if err != nil {
		return err
	}
	if !force && cache.UpToDate(schemaHash, configHash, queryHashes) {
		color.Green("✅ Generated code is up to date")
		return nil
	}
	if verbose {
		for _, f := range p.queryFiles {
			if cache.ShouldRegenerateQuery(f, queryHashes[f]) {
				color.Cyan("  changed %s", f)
			}
		}
	}

	color.Cyan("🔨 Compiling %d query file(s)...", len(p.queryFiles))
	model, err := p.compile(cmd.Context())
	if err != nil {
		return reportErrors(err)
	}

	r, err := render.New(render.Options{
		TemplateDir:  cfg.Templates,
		Namespace:    cfg.Output.Namespace,
		QueriesClass: cfg.Output.Class,
		Placeholders: cfg.PlaceholderStyle(),
	})
	if err != nil {
		return err
	}
	files, err := r.Render(model)
	if err != nil {
		return err
	}

	w := gencommon.NewWriter(cfg.Output.Dir, cache)
	w.Force = force
	res, err := w.Write(files)
	if err != nil {
		return err
	}

	cache.UpdateInputs(schemaHash, configHash, queryHashes)
	cache.MarkGeneration()
	if err := cache.Save(); err != nil {
		color.Yellow("⚠️  Failed to save generation cache: %v", err)
	}

	for _, w := range entityWarnings(model) {
		color.Yellow("⚠️  %s", w)
	}
	for _, f := range res.Overwritten {
		color.Yellow("⚠️  Overwrote hand edits in %s", f)
	}
	if verbose {
		for _, f := range res.Written {
			color.White("  wrote   %s", f)
		}
		for _, f := range res.Removed {
			color.White("  removed %s", f)
		}
	}

	color.Green("✅ Generated %d entities and %d queries in %s", len(model.Entities), len(model.Queries), cfg.Output.Dir)
	fmt.Printf("   %d written, %d unchanged", len(res.Written), len(res.Skipped))
	if len(res.Removed) > 0 {
		fmt.Printf(", %d removed", len(res.Removed))
	}
	fmt.Println()
	return nil
}
