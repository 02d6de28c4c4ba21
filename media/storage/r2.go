// Package storage inspects the object storage (Cloudflare R2) configuration that backs
// public image URLs.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dfryer1193/agromedia/shared/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketChecker reports whether a bucket exists and is reachable with the configured credentials.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// R2Client is an S3-compatible client for the R2 account endpoint.
type R2Client struct {
	client *minio.Client
}

var _ BucketChecker = (*R2Client)(nil)

// NewR2Client accepts the endpoint with or without a scheme; https is assumed when absent.
func NewR2Client(cfg config.Storage) (*R2Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is not set")
	}

	endpoint := cfg.Endpoint
	secure := true
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &R2Client{client: client}, nil
}

func (c *R2Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return c.client.BucketExists(ctx, bucket)
}

// Diagnostics summarizes the storage configuration.
type Diagnostics struct {
	PublicURLSet         bool
	PublicURLPlaceholder bool
	EndpointSet          bool
	CredentialsSet       bool
	BucketSet            bool
	BucketChecked        bool
	BucketReachable      bool
	Problems             []string
}

func (d *Diagnostics) OK() bool {
	return len(d.Problems) == 0
}

func (d *Diagnostics) problem(format string, args ...any) {
	d.Problems = append(d.Problems, fmt.Sprintf(format, args...))
}

// Diagnose inspects cfg and, when checker is non-nil and the bucket is configured, probes
// the bucket. placeholder is the token that marks an unedited sample value.
func Diagnose(ctx context.Context, cfg config.Storage, placeholder string, checker BucketChecker) Diagnostics {
	var d Diagnostics

	d.PublicURLSet = strings.TrimSpace(cfg.PublicURL) != ""
	d.PublicURLPlaceholder = d.PublicURLSet && placeholder != "" && strings.Contains(cfg.PublicURL, placeholder)
	d.EndpointSet = cfg.Endpoint != ""
	d.CredentialsSet = cfg.AccessKeyID != "" && cfg.SecretAccessKey != ""
	d.BucketSet = cfg.Bucket != ""

	switch {
	case !d.PublicURLSet:
		d.problem("R2_PUBLIC_URL is not set")
	case d.PublicURLPlaceholder:
		d.problem("R2_PUBLIC_URL still contains the placeholder %q", placeholder)
	default:
		if u, err := url.Parse(cfg.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			d.problem("R2_PUBLIC_URL %q is not an absolute url", cfg.PublicURL)
		}
	}
	if !d.EndpointSet {
		d.problem("R2_ENDPOINT is not set")
	}
	if !d.CredentialsSet {
		d.problem("R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY must both be set")
	}
	if !d.BucketSet {
		d.problem("R2_BUCKET_NAME is not set")
	}

	if checker == nil || !d.BucketSet {
		return d
	}

	d.BucketChecked = true
	exists, err := checker.BucketExists(ctx, cfg.Bucket)
	switch {
	case err != nil:
		d.problem("bucket %q could not be checked: %v", cfg.Bucket, err)
	case !exists:
		d.problem("bucket %q does not exist", cfg.Bucket)
	default:
		d.BucketReachable = true
	}

	return d
}
