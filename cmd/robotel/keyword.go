package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/ddn"
	"github.com/spf13/cobra"
)

var listKeywords bool

var keywordCmd = &cobra.Command{
	Use:   "keyword <name> [arg=value ...]",
	Short: "Invoke a DDN storage keyword",
	Long: `Invoke one keyword from the DDN storage keyword surface against the
configured product endpoints and print the result as JSON. Arguments
are given as name=value pairs and decoded the same way the test runner
decodes them.

Example:
  robotel keyword create_lustre_striped_file file_path=/mnt/es/f stripe_count=8`,
	RunE: runKeyword,
}

func init() {
	keywordCmd.Flags().BoolVar(&listKeywords, "list", false,
		"list available keywords and exit")

	rootCmd.AddCommand(keywordCmd)
}

func runKeyword(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if listKeywords {
		for _, name := range ddn.Names() {
			fmt.Println(name)
		}

		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("keyword name is required (use --list to see available keywords)")
	}

	name := args[0]

	kwArgs, err := parseKeywordArgs(args[1:])
	if err != nil {
		return err
	}

	keywords := ddn.NewKeywords(log, cfg)

	ctx, cancel := context.WithTimeout(context.Background(),
		config.ParseTimeout(cfg.Products.Timeout, 30*time.Second))
	defer cancel()

	result, err := keywords.Run(ctx, name, kwArgs)
	if err != nil {
		return fmt.Errorf("running keyword %q: %w", name, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	return nil
}

// parseKeywordArgs turns name=value pairs into a keyword argument map. Values
// stay strings; the keyword layer decodes them weakly, the same as arguments
// arriving from Robot Framework.
func parseKeywordArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid argument %q, expected name=value", pair)
		}

		args[name] = value
	}

	return args, nil
}
