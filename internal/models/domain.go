package models

import (
	"time"

	"github.com/google/uuid"
)

// DNSProviderKind names which DNS backend manages a domain.
type DNSProviderKind string

const (
	ProviderCloudflare DNSProviderKind = "cloudflare"
	ProviderRoute53    DNSProviderKind = "route53"
	ProviderManual     DNSProviderKind = "manual"
)

// DNSProvider is a closed variant: Kind selects which of the credential
// blocks is meaningful. Manual carries no credentials.
type DNSProvider struct {
	Kind       DNSProviderKind   `yaml:"kind" json:"kind"`
	Cloudflare *CloudflareConfig `yaml:"cloudflare,omitempty" json:"cloudflare,omitempty"`
	Route53    *Route53Config    `yaml:"route53,omitempty" json:"route53,omitempty"`
}

// CloudflareConfig holds the API token and zone for a Cloudflare-managed domain.
type CloudflareConfig struct {
	APIToken string `yaml:"api_token" json:"api_token"`
	ZoneID   string `yaml:"zone_id" json:"zone_id"`
}

// Route53Config holds AWS credentials for a Route53-managed domain.
type Route53Config struct {
	AccessKey    string `yaml:"access_key" json:"access_key"`
	SecretKey    string `yaml:"secret_key" json:"secret_key"`
	HostedZoneID string `yaml:"hosted_zone_id" json:"hosted_zone_id"`
}

// Cloudflare returns a Cloudflare provider variant.
func Cloudflare(apiToken, zoneID string) DNSProvider {
	return DNSProvider{Kind: ProviderCloudflare, Cloudflare: &CloudflareConfig{APIToken: apiToken, ZoneID: zoneID}}
}

// Route53 returns a Route53 provider variant.
func Route53(accessKey, secretKey, hostedZoneID string) DNSProvider {
	return DNSProvider{Kind: ProviderRoute53, Route53: &Route53Config{
		AccessKey:    accessKey,
		SecretKey:    secretKey,
		HostedZoneID: hostedZoneID,
	}}
}

// Manual returns the variant for domains whose DNS lives outside archon.
func Manual() DNSProvider {
	return DNSProvider{Kind: ProviderManual}
}

// IsManual reports whether DNS is managed outside archon.
func (p DNSProvider) IsManual() bool {
	return p.Kind == ProviderManual || p.Kind == ""
}

// Name is the display name of the provider.
func (p DNSProvider) Name() string {
	switch p.Kind {
	case ProviderCloudflare:
		return "Cloudflare"
	case ProviderRoute53:
		return "Route53"
	default:
		return "Manual"
	}
}

// Clone deep-copies the credential blocks.
func (p DNSProvider) Clone() DNSProvider {
	out := p
	if p.Cloudflare != nil {
		cf := *p.Cloudflare
		out.Cloudflare = &cf
	}
	if p.Route53 != nil {
		r := *p.Route53
		out.Route53 = &r
	}
	return out
}

// Domain is a DNS name routed to one or more sites.
type Domain struct {
	ID             uuid.UUID   `yaml:"id" json:"id"`
	Name           string      `yaml:"name" json:"name"`
	DNSProvider    DNSProvider `yaml:"dns_provider" json:"dns_provider"`
	DNSRecords     []DNSRecord `yaml:"dns_records,omitempty" json:"dns_records,omitempty"`
	TraefikEnabled bool        `yaml:"traefik_enabled" json:"traefik_enabled"`
	CreatedAt      time.Time   `yaml:"created_at" json:"created_at"`
}

// NewDomain returns a domain with Traefik routing enabled and no records.
func NewDomain(name string, provider DNSProvider) Domain {
	return Domain{
		ID:             uuid.New(),
		Name:           name,
		DNSProvider:    provider,
		TraefikEnabled: true,
		CreatedAt:      time.Now().UTC(),
	}
}

// Clone deep-copies the record slice and provider credentials.
func (d Domain) Clone() Domain {
	out := d
	out.DNSProvider = d.DNSProvider.Clone()
	if d.DNSRecords != nil {
		out.DNSRecords = append([]DNSRecord(nil), d.DNSRecords...)
	}
	return out
}
