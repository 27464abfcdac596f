package console

import (
	"context"
	"fmt"

	"archon/internal/dns"
	"archon/internal/models"
	"archon/internal/nodeapi"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// NodeAPI is the node agent surface background operations use.
// *nodeapi.Client implements it.
type NodeAPI interface {
	DeploySite(ctx context.Context, ep nodeapi.Endpoint, req nodeapi.DeployRequest) (*nodeapi.DeploymentResponse, error)
	UpdateSite(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID, req nodeapi.DeployRequest) error
	SiteStatus(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID) (models.SiteStatus, error)
	DeleteSite(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID) error
	StopSite(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID) error
	RestartSite(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID) error
	Health(ctx context.Context, ep nodeapi.Endpoint) (*nodeapi.HealthResponse, error)
	DockerInfo(ctx context.Context, ep nodeapi.Endpoint) (*models.DockerInfo, error)
	TraefikInfo(ctx context.Context, ep nodeapi.Endpoint) (*models.TraefikInfo, error)
	Logs(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID, n int) ([]string, error)
	Metrics(ctx context.Context, ep nodeapi.Endpoint, siteID uuid.UUID) (*models.ContainerMetrics, error)
}

// Job is everything one background operation needs, copied out of State so
// the goroutine running it shares nothing with the owner.
type Job struct {
	Op       Operation
	Endpoint nodeapi.Endpoint
	Site     models.Site
	Domain   string
	DNS      models.DNSProvider
	LogLines int
}

// execute performs the remote calls for job and returns the payload to merge.
func execute(ctx context.Context, api NodeAPI, newDNS dns.Factory, job Job) (Payload, error) {
	ep := job.Endpoint
	target := job.Op.Target

	switch job.Op.Kind {
	case OpDeploySite:
		if _, err := api.DeploySite(ctx, ep, nodeapi.NewDeployRequest(job.Site, job.Domain)); err != nil {
			return nil, err
		}
		return SiteDeployed{SiteID: target}, nil

	case OpUpdateSite:
		if err := api.UpdateSite(ctx, ep, target, nodeapi.NewDeployRequest(job.Site, job.Domain)); err != nil {
			return nil, err
		}
		return SiteUpdated{SiteID: target}, nil

	case OpDeleteSite:
		if err := api.DeleteSite(ctx, ep, target); err != nil {
			return nil, err
		}
		return SiteDeleted{SiteID: target}, nil

	case OpStopSite:
		if err := api.StopSite(ctx, ep, target); err != nil {
			return nil, err
		}
		return SiteStopped{SiteID: target}, nil

	case OpRestartSite:
		if err := api.RestartSite(ctx, ep, target); err != nil {
			return nil, err
		}
		return SiteRestarted{SiteID: target}, nil

	case OpSiteStatus:
		status, err := api.SiteStatus(ctx, ep, target)
		if err != nil {
			return nil, err
		}
		return SiteStatusFetched{SiteID: target, Status: status}, nil

	case OpSyncDNS:
		records, err := newDNS(job.DNS).ListRecords(ctx, job.Domain)
		if err != nil {
			return nil, err
		}
		return DNSSynced{DomainID: target, Records: records}, nil

	case OpNodeHealth:
		health, err := api.Health(ctx, ep)
		if err != nil {
			return nil, err
		}
		return NodeHealth{NodeID: target, Status: health.Status, Docker: health.Docker, Traefik: health.Traefik}, nil

	case OpNodeStats:
		var docker *models.DockerInfo
		var traefik *models.TraefikInfo
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			docker, err = api.DockerInfo(gctx, ep)
			return err
		})
		g.Go(func() error {
			var err error
			traefik, err = api.TraefikInfo(gctx, ep)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("failed to fetch node stats: %w", err)
		}
		return NodeStats{NodeID: target, Docker: *docker, Traefik: *traefik}, nil

	case OpFetchLogs:
		lines, err := api.Logs(ctx, ep, target, job.LogLines)
		if err != nil {
			return nil, err
		}
		return SiteLogs{SiteID: target, Lines: lines}, nil

	case OpFetchMetrics:
		m, err := api.Metrics(ctx, ep, target)
		if err != nil {
			return nil, err
		}
		return SiteMetrics{SiteID: target, Data: *m}, nil
	}

	return nil, fmt.Errorf("unknown operation kind %q", job.Op.Kind)
}
