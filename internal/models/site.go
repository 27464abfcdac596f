// Package models defines the inventory entities tracked by archon: sites,
// domains, nodes and the DNS records routing to them.
//
// Entities reference each other by id only. A Site names its Domain and Node
// through DomainID and NodeID; resolving those ids is the job of whoever owns
// the collections, and a missing referent is an ordinary "not found".
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SiteStatus is the deployment state of a site as last observed.
type SiteStatus string

const (
	SiteInactive  SiteStatus = "Inactive"
	SiteDeploying SiteStatus = "Deploying"
	SiteRunning   SiteStatus = "Running"
	SiteFailed    SiteStatus = "Failed"
	SiteStopped   SiteStatus = "Stopped"
)

// Valid reports whether s is one of the known statuses.
func (s SiteStatus) Valid() bool {
	switch s {
	case SiteInactive, SiteDeploying, SiteRunning, SiteFailed, SiteStopped:
		return true
	}
	return false
}

// Site is one containerised application deployed to a node.
type Site struct {
	ID              uuid.UUID         `yaml:"id" json:"id"`
	Name            string            `yaml:"name" json:"name"`
	DomainID        uuid.UUID         `yaml:"domain_id" json:"domain_id"`
	NodeID          uuid.UUID         `yaml:"node_id" json:"node_id"`
	DockerImage     string            `yaml:"docker_image" json:"docker_image"`
	EnvironmentVars map[string]string `yaml:"environment_vars,omitempty" json:"environment_vars,omitempty"`
	Port            uint16            `yaml:"port" json:"port"`
	SSLEnabled      bool              `yaml:"ssl_enabled" json:"ssl_enabled"`
	ConfigFiles     []ConfigFile      `yaml:"config_files,omitempty" json:"config_files,omitempty"`
	Status          SiteStatus        `yaml:"status" json:"status"`
	CreatedAt       time.Time         `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `yaml:"updated_at" json:"updated_at"`
}

// ConfigFile is a file mounted into the site's container at deploy time.
type ConfigFile struct {
	Name          string `yaml:"name" json:"name"`
	Content       string `yaml:"content" json:"content"`
	ContainerPath string `yaml:"container_path" json:"container_path"`
}

// NewSite returns an inactive site with TLS enabled and a fresh id.
func NewSite(name string, domainID, nodeID uuid.UUID, image string, port uint16) Site {
	now := time.Now().UTC()
	return Site{
		ID:              uuid.New(),
		Name:            name,
		DomainID:        domainID,
		NodeID:          nodeID,
		DockerImage:     image,
		EnvironmentVars: map[string]string{},
		Port:            port,
		SSLEnabled:      true,
		Status:          SiteInactive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Clone returns a deep copy so the result can cross goroutine boundaries.
func (s Site) Clone() Site {
	out := s
	if s.EnvironmentVars != nil {
		out.EnvironmentVars = make(map[string]string, len(s.EnvironmentVars))
		for k, v := range s.EnvironmentVars {
			out.EnvironmentVars[k] = v
		}
	}
	if s.ConfigFiles != nil {
		out.ConfigFiles = append([]ConfigFile(nil), s.ConfigFiles...)
	}
	return out
}

// RouterName is the Traefik router/service name used for this site.
func (s Site) RouterName() string {
	return "site-" + s.ID.String()
}

// TraefikLabels builds the docker labels that route domainName to the site
// through Traefik.
func (s Site) TraefikLabels(domainName string) map[string]string {
	router := s.RouterName()
	labels := map[string]string{
		"traefik.enable": "true",
		fmt.Sprintf("traefik.http.routers.%s.rule", router): fmt.Sprintf("Host(`%s`)", domainName),
		fmt.Sprintf("traefik.http.services.%s.loadbalancer.server.port", router): fmt.Sprintf("%d", s.Port),
	}

	entrypoint := "web"
	if s.SSLEnabled {
		entrypoint = "websecure"
		labels[fmt.Sprintf("traefik.http.routers.%s.tls", router)] = "true"
		labels[fmt.Sprintf("traefik.http.routers.%s.tls.certresolver", router)] = "letsencrypt"
	}
	labels[fmt.Sprintf("traefik.http.routers.%s.entrypoints", router)] = entrypoint

	return labels
}
