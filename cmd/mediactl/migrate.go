package main

import (
	"fmt"

	"github.com/dfryer1193/agromedia/media/application"
	"github.com/dfryer1193/agromedia/media/domain"
	"github.com/dfryer1193/agromedia/media/persistence"
	"github.com/dfryer1193/agromedia/shared/db/factory"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun      bool
		collections []string
	)

	cmd := &cobra.Command{
		Use:   "migrate-urls",
		Short: "Rewrite legacy localhost upload URLs to object storage URLs",
		Long: "Rewrites profile images, service gallery images and category icons that still point at\n" +
			"http://localhost:<port>/uploads/... to <R2_PUBLIC_URL>/<path>. Safe to run repeatedly.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			// validate before opening the database so a bad config never touches a record
			if _, err := application.ValidatePublicBaseURL(cfg.Storage.PublicURL); err != nil {
				return err
			}

			selected, err := selectCollections(collections)
			if err != nil {
				return err
			}

			database, err := factory.NewDatabase(cfg.Database)
			if err != nil {
				return err
			}
			defer func() {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close database")
				}
			}()

			migrator, err := application.NewMigrator(
				persistence.NewReferenceRepository(database.DB()),
				cfg.Storage.PublicURL,
				application.WithDryRun(dryRun),
				application.WithCollections(selected...),
			)
			if err != nil {
				return err
			}

			report, runErr := migrator.Run(cmd.Context())
			printReport(cmd, report)
			return runErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report rewrites without writing them")
	cmd.Flags().StringSliceVar(&collections, "collections", nil, "limit to these passes (profile_images, service_images, category_icons)")
	return cmd
}

func selectCollections(names []string) ([]domain.Collection, error) {
	all := domain.Collections()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]domain.Collection, len(all))
	for _, c := range all {
		byName[c.Name] = c
	}

	selected := make([]domain.Collection, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: unknown collection %q", application.ErrConfiguration, n)
		}
		selected = append(selected, c)
	}
	return selected, nil
}

func printReport(cmd *cobra.Command, report *application.Report) {
	if report == nil {
		return
	}

	out := cmd.OutOrStdout()
	verb := "updated"
	if report.DryRun {
		verb = "would update"
	}

	for _, p := range report.Passes {
		if p.Err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", p.Collection, p.Err)
			continue
		}
		fmt.Fprintf(out, "%s: %s %d (matched %d, skipped %d, failed %d)\n",
			p.Collection, verb, p.Updated, p.Matched, p.Skipped, p.Failed)
	}
	fmt.Fprintf(out, "total: %s %d\n", verb, report.TotalUpdated())
}
