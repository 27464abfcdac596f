package models

import (
	"time"

	"github.com/google/uuid"
)

// NodeStatus is the reachability of a node as of its last health check.
type NodeStatus string

const (
	NodeUnknown  NodeStatus = "Unknown"
	NodeOnline   NodeStatus = "Online"
	NodeOffline  NodeStatus = "Offline"
	NodeDegraded NodeStatus = "Degraded"
)

// Valid reports whether s is one of the known statuses.
func (s NodeStatus) Valid() bool {
	switch s {
	case NodeUnknown, NodeOnline, NodeOffline, NodeDegraded:
		return true
	}
	return false
}

// Node is a deployment target running the archon node agent.
type Node struct {
	ID              uuid.UUID    `yaml:"id" json:"id"`
	Name            string       `yaml:"name" json:"name"`
	APIEndpoint     string       `yaml:"api_endpoint" json:"api_endpoint"`
	APIKey          string       `yaml:"api_key" json:"api_key"`
	IPAddress       string       `yaml:"ip_address" json:"ip_address"`
	Status          NodeStatus   `yaml:"status" json:"status"`
	DockerInfo      *DockerInfo  `yaml:"docker_info,omitempty" json:"docker_info,omitempty"`
	TraefikInfo     *TraefikInfo `yaml:"traefik_info,omitempty" json:"traefik_info,omitempty"`
	LastHealthCheck *time.Time   `yaml:"last_health_check,omitempty" json:"last_health_check,omitempty"`
}

// DockerInfo summarises the docker engine on a node.
type DockerInfo struct {
	Version           string `yaml:"version" json:"version"`
	ContainersRunning uint32 `yaml:"containers_running" json:"containers_running"`
	ImagesCount       uint32 `yaml:"images_count" json:"images_count"`
}

// TraefikInfo summarises the Traefik router on a node.
type TraefikInfo struct {
	Version       string `yaml:"version" json:"version"`
	RoutersCount  uint32 `yaml:"routers_count" json:"routers_count"`
	ServicesCount uint32 `yaml:"services_count" json:"services_count"`
}

// NewNode returns a node in Unknown status with a fresh id.
func NewNode(name, endpoint, apiKey, ip string) Node {
	return Node{
		ID:          uuid.New(),
		Name:        name,
		APIEndpoint: endpoint,
		APIKey:      apiKey,
		IPAddress:   ip,
		Status:      NodeUnknown,
	}
}

// UpdateHealth records the outcome of a health check taken at now.
func (n *Node) UpdateHealth(status NodeStatus, docker *DockerInfo, traefik *TraefikInfo, now time.Time) {
	n.Status = status
	n.DockerInfo = docker
	n.TraefikInfo = traefik
	n.LastHealthCheck = &now
}

// Clone deep-copies the optional info blocks.
func (n Node) Clone() Node {
	out := n
	if n.DockerInfo != nil {
		d := *n.DockerInfo
		out.DockerInfo = &d
	}
	if n.TraefikInfo != nil {
		t := *n.TraefikInfo
		out.TraefikInfo = &t
	}
	if n.LastHealthCheck != nil {
		ts := *n.LastHealthCheck
		out.LastHealthCheck = &ts
	}
	return out
}

// ContainerMetrics is a point-in-time resource sample for a site's container.
type ContainerMetrics struct {
	CPUUsagePercent float64 `json:"cpu_usage_percent"`
	MemoryUsageMB   uint64  `json:"memory_usage_mb"`
	MemoryLimitMB   uint64  `json:"memory_limit_mb"`
	NetworkRxBytes  uint64  `json:"network_rx_bytes"`
	NetworkTxBytes  uint64  `json:"network_tx_bytes"`
}
