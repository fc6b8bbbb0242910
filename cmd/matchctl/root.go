package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/embedding"
	"github.com/Adithya-Monish-Kumar-K/careermatch/internal/matching"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/careermatch/pkg/logger"
)

const app = "matchctl"

var (
	cfgFile string
	verbose bool

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "matchctl scores résumés against job descriptions and manages profile indexes",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger.SetupWriter(os.Stderr, level, "text")

			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
}

// readInput returns the contents of path, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no input file given")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzers() (*matching.Analyzers, error) {
	return matching.NewAnalyzers(cfg.Scoring)
}

// model builds an uncached embedding handle from the config.
func model() (*embedding.Handle, error) {
	loader, err := embedding.NewLoader(cfg.Embedding, nil, 0, nil)
	if err != nil {
		return nil, err
	}
	return embedding.NewHandle(loader), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
