// Package dns manages the records of a domain through its configured DNS
// provider. Every provider satisfies the same Provider interface; the manual
// provider refuses every call instead of being special-cased by callers.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"archon/internal/models"
)

var (
	// ErrProvider wraps any failure reported by a DNS backend.
	ErrProvider = errors.New("dns provider error")

	// ErrNotImplemented is returned by providers archon cannot drive yet.
	ErrNotImplemented = errors.New("dns provider not implemented")

	// ErrManualDNS is returned for domains whose DNS is managed outside archon.
	ErrManualDNS = errors.New("manual DNS provider does not support API operations")
)

// Provider is the record-level capability shared by every DNS backend.
type Provider interface {
	ListRecords(ctx context.Context, domain string) ([]models.DNSRecord, error)
	CreateRecord(ctx context.Context, domain string, record models.DNSRecord) (models.DNSRecord, error)
	UpdateRecord(ctx context.Context, domain string, record models.DNSRecord) (models.DNSRecord, error)
	DeleteRecord(ctx context.Context, domain string, recordID string) error
}

// Factory builds a Provider from a domain's provider configuration.
type Factory func(models.DNSProvider) Provider

// Option customises providers created by NewFactory.
type Option func(*options)

type options struct {
	httpClient    *http.Client
	cloudflareURL string
}

// WithHTTPClient sets the HTTP client used by API-backed providers.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) {
		if h != nil {
			o.httpClient = h
		}
	}
}

// WithCloudflareBaseURL points the Cloudflare provider at another API root.
func WithCloudflareBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.cloudflareURL = u
		}
	}
}

// NewFactory returns a Factory that applies opts to every provider it builds.
func NewFactory(opts ...Option) Factory {
	o := options{cloudflareURL: CloudflareBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	return func(cfg models.DNSProvider) Provider {
		return newProvider(cfg, o)
	}
}

// New builds the provider for cfg with default options.
func New(cfg models.DNSProvider, opts ...Option) Provider {
	return NewFactory(opts...)(cfg)
}

func newProvider(cfg models.DNSProvider, o options) Provider {
	switch cfg.Kind {
	case models.ProviderCloudflare:
		if cfg.Cloudflare == nil {
			return failing{err: fmt.Errorf("%w: cloudflare credentials missing", ErrProvider)}
		}
		return newCloudflare(*cfg.Cloudflare, o)
	case models.ProviderRoute53:
		return Route53{}
	default:
		return Manual{}
	}
}

// failing is returned when a provider cannot be built from its configuration.
type failing struct{ err error }

func (f failing) ListRecords(context.Context, string) ([]models.DNSRecord, error) {
	return nil, f.err
}

func (f failing) CreateRecord(context.Context, string, models.DNSRecord) (models.DNSRecord, error) {
	return models.DNSRecord{}, f.err
}

func (f failing) UpdateRecord(context.Context, string, models.DNSRecord) (models.DNSRecord, error) {
	return models.DNSRecord{}, f.err
}

func (f failing) DeleteRecord(context.Context, string, string) error {
	return f.err
}
