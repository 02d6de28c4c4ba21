package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dfryer1193/agromedia/media/domain"
	"github.com/rs/zerolog/log"
)

const (
	// LegacyMarker selects references that still point at the backend's local upload endpoint.
	LegacyMarker = "localhost"

	// PlaceholderToken appears in example public URLs shipped with sample env files.
	PlaceholderToken = "your-"
)

var uploadSuffixRegex = regexp.MustCompile(`/uploads/(.+)$`)

// PassReport counts the outcome of one collection pass.
type PassReport struct {
	Collection string
	Matched    int
	Updated    int
	Skipped    int
	Failed     int
	Err        error
}

type Report struct {
	DryRun bool
	Passes []PassReport
}

func (r *Report) TotalUpdated() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Updated
	}
	return total
}

func (r *Report) TotalFailed() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Failed
		if p.Err != nil {
			total++
		}
	}
	return total
}

// Migrator rewrites legacy local upload URLs to object storage URLs.
// Passes and the records within a pass run sequentially. A failed update is logged and
// counted and the batch continues.
type Migrator struct {
	repo        domain.ReferenceRepository
	publicBase  string
	collections []domain.Collection
	dryRun      bool
}

type MigratorOption func(*Migrator)

// WithDryRun computes and reports rewrites without persisting them.
func WithDryRun(dryRun bool) MigratorOption {
	return func(m *Migrator) {
		m.dryRun = dryRun
	}
}

// WithCollections overrides the default profile/service/category passes.
func WithCollections(collections ...domain.Collection) MigratorOption {
	return func(m *Migrator) {
		m.collections = collections
	}
}

func NewMigrator(repo domain.ReferenceRepository, publicBaseURL string, opts ...MigratorOption) (*Migrator, error) {
	base, err := ValidatePublicBaseURL(publicBaseURL)
	if err != nil {
		return nil, err
	}

	m := &Migrator{
		repo:        repo,
		publicBase:  base,
		collections: domain.Collections(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// ValidatePublicBaseURL checks the object storage public base URL and returns it without
// trailing slashes.
func ValidatePublicBaseURL(raw string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return "", fmt.Errorf("%w: object storage public url is not set", ErrConfiguration)
	}
	if strings.Contains(base, PlaceholderToken) {
		return "", fmt.Errorf("%w: object storage public url %q is still a placeholder", ErrConfiguration, base)
	}
	if strings.Contains(base, LegacyMarker) {
		return "", fmt.Errorf("%w: object storage public url %q points at localhost", ErrConfiguration, base)
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: object storage public url %q is not an absolute url", ErrConfiguration, base)
	}

	return base, nil
}

// RewriteLegacyURL maps a legacy reference onto the public base, keeping the path that
// follows /uploads/. ok is false when the reference has no /uploads/ segment.
func RewriteLegacyURL(publicBase, legacy string) (rewritten string, ok bool) {
	match := uploadSuffixRegex.FindStringSubmatch(legacy)
	if match == nil {
		return "", false
	}
	return strings.TrimRight(publicBase, "/") + "/" + match[1], true
}

// Run executes every pass in order. The returned error wraps ErrPartialFailure when any
// record or pass failed; the report is complete either way.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{DryRun: m.dryRun}

	for _, c := range m.collections {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		pass := m.migratePass(ctx, c)
		report.Passes = append(report.Passes, pass)

		log.Info().
			Str("collection", pass.Collection).
			Int("matched", pass.Matched).
			Int("updated", pass.Updated).
			Int("skipped", pass.Skipped).
			Int("failed", pass.Failed).
			Bool("dry_run", m.dryRun).
			Msg("Migration pass finished")
	}

	if failed := report.TotalFailed(); failed > 0 {
		return report, fmt.Errorf("%w: %d failure(s)", ErrPartialFailure, failed)
	}

	return report, nil
}

func (m *Migrator) migratePass(ctx context.Context, c domain.Collection) PassReport {
	pass := PassReport{Collection: c.Name}

	records, err := m.repo.ListContaining(ctx, c, LegacyMarker)
	if err != nil {
		log.Error().Err(err).Str("collection", c.Name).Msg("Failed to list legacy references")
		pass.Err = err
		return pass
	}
	pass.Matched = len(records)

	for _, rec := range records {
		newURL, ok := RewriteLegacyURL(m.publicBase, rec.Value)
		if !ok {
			log.Warn().Str("collection", c.Name).Str("id", rec.ID).Str("value", rec.Value).Msg("Skipping reference without an uploads path")
			pass.Skipped++
			continue
		}

		if m.dryRun {
			log.Info().Str("collection", c.Name).Str("id", rec.ID).Str("from", rec.Value).Str("to", newURL).Msg("Would rewrite reference")
			pass.Updated++
			continue
		}

		if err := m.repo.UpdateReference(ctx, c, rec.ID, rec.Value, newURL); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				pass.Err = err
				return pass
			}
			log.Error().Err(err).Str("collection", c.Name).Str("id", rec.ID).Msg("Failed to rewrite reference")
			pass.Failed++
			continue
		}

		log.Debug().Str("collection", c.Name).Str("id", rec.ID).Str("to", newURL).Msg("Rewrote reference")
		pass.Updated++
	}

	return pass
}
