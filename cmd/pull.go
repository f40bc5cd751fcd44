package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/bde/internal/config"
	"github.com/Rana718/bde/internal/database"
	"github.com/Rana718/bde/internal/pull"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Write the schema of a live database to a schema file",
	Long: `
Introspect the database named by the configured URL environment variable and
write its tables as CREATE TABLE statements. The result is read back before
it is written, so generate can always load it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}

		backup, _ := cmd.Flags().GetBool("backup")
		outputPath, _ := cmd.Flags().GetString("output")

		dbURL, err := cfg.GetDatabaseURL()
		if err != nil {
			return fmt.Errorf("failed to get database URL: %w", err)
		}
		introspector, err := database.NewIntrospector(cfg.Provider())
		if err != nil {
			return err
		}
		if err := introspector.Connect(cmd.Context(), dbURL); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		svc := pull.NewService(introspector, cfg.Provider(), cfg.SchemaDir)
		defer svc.Close()

		color.Cyan("🔍 Introspecting database schema...")
		res, err := svc.Pull(cmd.Context(), pull.Options{Backup: backup, OutputPath: outputPath})
		if err != nil {
			return err
		}

		switch {
		case res.Tables == 0:
			color.Yellow("📄 No tables found in database")
		case res.Unchanged:
			color.Green("✅ %s is up to date", res.Path)
		default:
			if res.Backup != "" {
				fmt.Printf("💾 Backed up previous schema to %s\n", res.Backup)
			}
			color.Green("✅ Schema written to %s", res.Path)
			fmt.Printf("📊 %d tables\n", res.Tables)
		}
		return nil
	},
}

func init() {
	pullCmd.Flags().BoolP("backup", "b", false, "Back up the existing schema file before overwriting it")
	pullCmd.Flags().StringP("output", "o", "", "Schema file to write (default <schema_dir>/schema.sql)")
	rootCmd.AddCommand(pullCmd)
}
