package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kris-hansen/recipeforge/utils/config"
	"github.com/kris-hansen/recipeforge/utils/executor"
	"github.com/kris-hansen/recipeforge/utils/state"

	// Blank-imported so every step type registers itself with the
	// registry before Execute runs; the core engine never imports this
	// package directly (see DESIGN.md on the steps/executor dependency
	// direction).
	_ "github.com/kris-hansen/recipeforge/utils/steps"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <recipe.json> [key=value ...]",
	Short: "Run a recipe",
	Long: `Run loads a recipe (a file path or literal JSON text), seeds its state
with any repeated key=value context arguments, loads provider credentials
from the environment into state.config, and drives the recipe's steps to
completion.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recipePath := args[0]

		seeds, err := parseContextSeeds(args[1:])
		if err != nil {
			return err
		}

		envConfig := config.Load()

		st := state.New(seeds, envConfig.ToState())

		logger := log.Default()
		if verbose {
			logger.Printf("[DEBUG] running recipe %s with %d context seed(s)\n", recipePath, len(seeds))
		}

		if err := executor.New(logger).Execute(context.Background(), recipePath, st); err != nil {
			return fmt.Errorf("recipe run failed: %w", err)
		}

		fmt.Println("Recipe completed successfully.")
		return nil
	},
}

// parseContextSeeds turns a list of "key=value" arguments into the initial
// artifacts map a recipe run starts with (spec's CLI surface: "a recipe
// path plus repeated key=value context seeds").
func parseContextSeeds(args []string) (map[string]interface{}, error) {
	seeds := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context seed %q: expected key=value", arg)
		}
		seeds[key] = value
	}
	return seeds, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
