package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Rana718/bde/internal/config"
	"github.com/Rana718/bde/template"
)

var (
	sqliteFlag     bool
	postgresqlFlag bool
	mysqlFlag      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new bde project",
	Long:  `Initialize a new bde project with a config file, a starter schema and starter queries.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbType := template.PostgreSQL
		flagCount := 0

		if sqliteFlag {
			dbType = template.SQLite
			flagCount++
		}
		if postgresqlFlag {
			dbType = template.PostgreSQL
			flagCount++
		}
		if mysqlFlag {
			dbType = template.MySQL
			flagCount++
		}

		if flagCount > 1 {
			return fmt.Errorf("please specify only one database type (--sqlite, --postgresql, or --mysql)")
		}

		return initializeProject(dbType)
	},
}

func init() {
	initCmd.Flags().BoolVar(&sqliteFlag, "sqlite", false, "Initialize project for SQLite database")
	initCmd.Flags().BoolVar(&postgresqlFlag, "postgresql", false, "Initialize project for PostgreSQL database")
	initCmd.Flags().BoolVar(&mysqlFlag, "mysql", false, "Initialize project for MySQL database")
	rootCmd.AddCommand(initCmd)
}

func initializeProject(dbType template.DatabaseType) error {
	if config.IsInitialized(".") {
		color.Yellow("⚠️  %s already exists, leaving it unchanged", config.FileName)
		return nil
	}

	tmpl := template.NewProjectTemplate(dbType)
	cfg := config.DefaultConfig(string(dbType))

	directories := tmpl.GetDirectoryStructure()
	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := cfg.Write(config.FileName); err != nil {
		return err
	}

	files := map[string]string{}

	// Check if any .sql files exist in the schema directory
	schemaExists := false
	if entries, err := os.ReadDir(cfg.SchemaDir); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
				schemaExists = true
				break
			}
		}
	}
	if !schemaExists {
		files[filepath.Join(cfg.SchemaDir, "users.sql")] = tmpl.GetSchema()
	}

	queriesPath := filepath.Join(cfg.Queries, "users.sql")
	queriesExist := false
	if _, err := os.Stat(queriesPath); err == nil {
		queriesExist = true
	} else {
		files[queriesPath] = tmpl.GetQueries()
	}

	for filePath, content := range files {
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to create file %s: %w", filePath, err)
		}
	}

	if err := handleEnvFile(tmpl.GetEnvTemplate()); err != nil {
		return fmt.Errorf("failed to handle .env file: %w", err)
	}

	color.Green("✅ Initialized bde project with %s database support", dbType)
	fmt.Println()
	fmt.Println("📁 Project structure created:")
	for _, dir := range directories {
		fmt.Printf("   %s/\n", dir)
	}
	fmt.Println()
	fmt.Println("📝 Configuration file created:")
	fmt.Printf("   %s\n", config.FileName)

	if schemaExists {
		fmt.Printf("ℹ️  Skipped schema files (%s already has .sql files)\n", cfg.SchemaDir)
	}
	if queriesExist {
		fmt.Printf("ℹ️  Skipped %s (already exists)\n", queriesPath)
	}

	fmt.Println()
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   bde check      # Compile the starter queries\n")
	fmt.Printf("   bde generate   # Write PHP classes to %s/\n", cfg.Output.Dir)

	return nil
}

func handleEnvFile(defaultEnvContent string) error {
	envPath := ".env"

	existingContent, err := os.ReadFile(envPath)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(envPath, []byte(defaultEnvContent), 0644)
		}
		return err
	}

	existingStr := string(existingContent)
	if strings.Contains(existingStr, "DATABASE_URL") {
		return nil
	}

	// Append DATABASE_URL to existing .env
	if len(existingStr) > 0 && !strings.HasSuffix(existingStr, "\n") {
		existingStr += "\n"
	}

	existingStr += "\n# Added by bde\n" + defaultEnvContent

	return os.WriteFile(envPath, []byte(existingStr), 0644)
}
