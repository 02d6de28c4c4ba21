// Command mediactl is the operator tool for marketplace image references: it migrates
// legacy local upload URLs, diagnoses the object storage configuration and classifies
// individual references.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dfryer1193/agromedia/media/application"
	"github.com/dfryer1193/agromedia/shared/config"
	"github.com/spf13/cobra"
)

const (
	exitFailure       = 1
	exitConfiguration = 2
)

type rootOptions struct {
	configPath string
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", application.ErrConfiguration, err)
	}
	config.ConfigureLogging(cfg.Logging)
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "mediactl",
		Short:         "Manage marketplace image references",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "optional YAML config file")

	root.AddCommand(
		newMigrateCmd(opts),
		newDiagnoseCmd(opts),
		newClassifyCmd(opts),
	)
	return root
}

func exitCode(err error) int {
	if errors.Is(err, application.ErrConfiguration) {
		return exitConfiguration
	}
	return exitFailure
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
