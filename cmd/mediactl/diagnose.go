package main

import (
	"fmt"

	"github.com/dfryer1193/agromedia/media/application"
	"github.com/dfryer1193/agromedia/media/storage"
	"github.com/spf13/cobra"
)

func newDiagnoseCmd(opts *rootOptions) *cobra.Command {
	var checkBucket bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check the object storage configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			var checker storage.BucketChecker
			if checkBucket && cfg.Storage.Endpoint != "" {
				client, err := storage.NewR2Client(cfg.Storage)
				if err != nil {
					return err
				}
				checker = client
			}

			d := storage.Diagnose(cmd.Context(), cfg.Storage, application.PlaceholderToken, checker)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "public url:   %s\n", status(d.PublicURLSet && !d.PublicURLPlaceholder))
			fmt.Fprintf(out, "endpoint:     %s\n", status(d.EndpointSet))
			fmt.Fprintf(out, "credentials:  %s\n", status(d.CredentialsSet))
			fmt.Fprintf(out, "bucket:       %s\n", status(d.BucketSet))
			if d.BucketChecked {
				fmt.Fprintf(out, "reachable:    %s\n", status(d.BucketReachable))
			}
			for _, p := range d.Problems {
				fmt.Fprintf(out, "- %s\n", p)
			}

			if !d.OK() {
				return fmt.Errorf("%w: %d storage problem(s)", application.ErrConfiguration, len(d.Problems))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkBucket, "check-bucket", false, "probe the bucket with the configured credentials")
	return cmd
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "MISSING"
}
