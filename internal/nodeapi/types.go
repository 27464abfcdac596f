package nodeapi

import (
	"archon/internal/models"

	"github.com/google/uuid"
)

// Endpoint is a node's API base URL and bearer token. It is a plain value so
// background work can carry its own copy.
type Endpoint struct {
	BaseURL string
	Token   string
}

// EndpointFor copies the connection details out of a node.
func EndpointFor(n models.Node) Endpoint {
	return Endpoint{BaseURL: n.APIEndpoint, Token: n.APIKey}
}

// DeployRequest is the body of POST /sites/deploy and PUT /sites/{id}.
type DeployRequest struct {
	Name            string              `json:"name"`
	Domain          string              `json:"domain"`
	DockerImage     string              `json:"docker_image"`
	EnvironmentVars map[string]string   `json:"environment_vars"`
	Port            uint16              `json:"port"`
	SSLEnabled      bool                `json:"ssl_enabled"`
	ConfigFiles     []models.ConfigFile `json:"config_files"`
	TraefikLabels   map[string]string   `json:"traefik_labels"`
}

// NewDeployRequest builds the deploy body for site served at domainName.
func NewDeployRequest(site models.Site, domainName string) DeployRequest {
	env := site.EnvironmentVars
	if env == nil {
		env = map[string]string{}
	}
	files := site.ConfigFiles
	if files == nil {
		files = []models.ConfigFile{}
	}
	return DeployRequest{
		Name:            site.Name,
		Domain:          domainName,
		DockerImage:     site.DockerImage,
		EnvironmentVars: env,
		Port:            site.Port,
		SSLEnabled:      site.SSLEnabled,
		ConfigFiles:     files,
		TraefikLabels:   site.TraefikLabels(domainName),
	}
}

// DeploymentResponse is returned by a successful deploy.
type DeploymentResponse struct {
	SiteID      uuid.UUID         `json:"site_id"`
	ContainerID string            `json:"container_id"`
	Status      models.SiteStatus `json:"status"`
}

// StatusResponse is returned by GET /sites/{id}/status.
type StatusResponse struct {
	Status models.SiteStatus `json:"status"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  models.NodeStatus   `json:"status"`
	Docker  *models.DockerInfo  `json:"docker,omitempty"`
	Traefik *models.TraefikInfo `json:"traefik,omitempty"`
}

type logsResponse struct {
	Logs []string `json:"logs"`
}
