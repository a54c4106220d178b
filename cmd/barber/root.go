package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lewtec/barber/barber"
	"github.com/lewtec/barber/internal/collection"
	"github.com/lewtec/barber/internal/folder"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbosity  int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "barber",
	Short: "Browse, star and publish folders of photos",
	Long: strings.TrimSpace(`
Index the photo folders named in the configuration, star the good ones from a
browser and upload resized copies of the starred images to an object store.
    `),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := barber.LoadDotEnv(); err != nil {
			return fmt.Errorf("while loading .env: %w", err)
		}
		return nil
	},
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", barber.DefaultConfigPath(), "Configuration file")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Log more (-v logs progress, -vv adds source locations)")
}

// newLogger is the logger handed to every component, sized by -v
func newLogger(w io.Writer) *log.Logger {
	switch {
	case verbosity <= 0:
		return log.New(io.Discard, "", 0)
	case verbosity == 1:
		return log.New(w, "", log.LstdFlags)
	default:
		return log.New(w, "", log.LstdFlags|log.Lshortfile)
	}
}

// setup loads the configuration and the collection it describes
func setup(cmd *cobra.Command) (*barber.Config, *collection.Collection, *log.Logger, error) {
	logger := newLogger(cmd.ErrOrStderr())
	cfg, err := barber.LoadConfig(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	coll := collection.New(folder.Options{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	for _, src := range cfg.Sources {
		coll.AddSource(src.Name, src.Pattern)
	}
	logger.Printf("Configuration: %s (%d sources)", configFile, len(cfg.Sources))
	return cfg, coll, logger, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
