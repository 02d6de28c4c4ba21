package main

import (
	"fmt"

	"github.com/dfryer1193/agromedia/media/application"
	"github.com/dfryer1193/agromedia/media/domain"
	"github.com/spf13/cobra"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <reference>...",
		Short: "Show how image references would be served",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			classifier := application.NewClassifier(cfg.Storage.PublicURL)
			allowed := append(append([]string{}, cfg.ImageProxy.DevHosts...), cfg.ImageProxy.AllowedHosts...)
			resolver, err := application.NewResolver(cfg.BackendAPIURL, allowed)
			if err != nil {
				return fmt.Errorf("%w: %w", application.ErrConfiguration, err)
			}

			out := cmd.OutOrStdout()
			for _, raw := range args {
				disposition := classifier.Classify(raw)
				fmt.Fprintf(out, "%s\t%s\t%s", raw, disposition, classifier.DisplayURL(raw))

				if disposition == domain.DispositionNeedsResolution {
					if target, err := resolver.Resolve(raw); err != nil {
						fmt.Fprintf(out, "\terror: %v", err)
					} else {
						fmt.Fprintf(out, "\tupstream: %s", target)
					}
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
