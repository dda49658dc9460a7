package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kris-hansen/recipeforge/utils/config"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version string

var verbose bool
var debug bool

// logFile holds the log file handle for proper cleanup.
var logFile *os.File

var rootCmd = &cobra.Command{
	Use:   "recipeforge",
	Short: "A declarative JSON-recipe workflow execution engine",
	Long: `recipeforge runs declarative JSON-recipe workflows: an ordered list of
typed steps executed against a shared state container.

Getting Started:
  recipeforge run recipe.json              Run a recipe
  recipeforge run recipe.json k=v k2=v2    Run a recipe with context seeds

Provider credentials are read from the environment (OPENAI_API_KEY,
ANTHROPIC_API_KEY, and friends) and mirrored into the recipe's config
namespace at process start.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFlags(0)

		if logFileName := os.Getenv("RECIPEFORGE_LOG_FILE"); logFileName != "" {
			if file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				logFile = file
				log.SetOutput(file)
				log.Printf("[INFO] logging session started at %s\n", time.Now().Format(time.RFC3339))
			} else {
				log.Printf("[WARN] failed to open log file %q: %v; continuing with stdout logging\n", logFileName, err)
			}
		}

		config.Verbose = verbose
		config.Debug = debug

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// versionCmd prints the build version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recipeforge version: %s\n", getVersion())
	},
}

func getVersion() string {
	if version != "" {
		return version
	}
	return "dev"
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command, closing any open log file on the way out.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	defer func() {
		if logFile != nil {
			log.Printf("[INFO] logging session ended at %s\n", time.Now().Format(time.RFC3339))
			_ = logFile.Sync()
			logFile.Close()
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
