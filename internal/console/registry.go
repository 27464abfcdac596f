package console

import (
	"time"

	"github.com/google/uuid"
)

// OpKind names what a background operation does.
type OpKind string

const (
	OpDeploySite   OpKind = "deploy_site"
	OpUpdateSite   OpKind = "update_site"
	OpDeleteSite   OpKind = "delete_site"
	OpStopSite     OpKind = "stop_site"
	OpRestartSite  OpKind = "restart_site"
	OpSiteStatus   OpKind = "site_status"
	OpSyncDNS      OpKind = "sync_dns"
	OpNodeHealth   OpKind = "node_health"
	OpNodeStats    OpKind = "node_stats"
	OpFetchLogs    OpKind = "fetch_logs"
	OpFetchMetrics OpKind = "fetch_metrics"
)

// Mutating reports whether the operation changes a site on its node.
// Mutating operations on the same site exclude each other.
func (k OpKind) Mutating() bool {
	switch k {
	case OpDeploySite, OpUpdateSite, OpDeleteSite, OpStopSite, OpRestartSite:
		return true
	}
	return false
}

// Label is the human name of the operation.
func (k OpKind) Label() string {
	switch k {
	case OpDeploySite:
		return "Deploy"
	case OpUpdateSite:
		return "Redeploy"
	case OpDeleteSite:
		return "Delete"
	case OpStopSite:
		return "Stop"
	case OpRestartSite:
		return "Restart"
	case OpSiteStatus:
		return "Status refresh"
	case OpSyncDNS:
		return "DNS sync"
	case OpNodeHealth:
		return "Health check"
	case OpNodeStats:
		return "Stats fetch"
	case OpFetchLogs:
		return "Log fetch"
	case OpFetchMetrics:
		return "Metrics fetch"
	}
	return string(k)
}

// OpStatus is the lifecycle state of an operation.
type OpStatus string

const (
	OpInProgress OpStatus = "in_progress"
	OpCompleted  OpStatus = "completed"
	OpFailed     OpStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s OpStatus) Terminal() bool {
	return s == OpCompleted || s == OpFailed
}

// Operation is one tracked unit of background work.
type Operation struct {
	ID         uuid.UUID
	Kind       OpKind
	Target     uuid.UUID
	Status     OpStatus
	Reason     string // set when Failed
	StartedAt  time.Time
	FinishedAt time.Time
}

// MaxTerminalOperations is how many finished operations the registry keeps.
const MaxTerminalOperations = 100

// Registry tracks operations in start order. In-flight entries are never
// evicted; once more than MaxTerminalOperations entries are terminal, the
// oldest terminal entries are dropped.
type Registry struct {
	ops []Operation
}

// Register records op as in progress.
func (r *Registry) Register(op Operation) {
	op.Status = OpInProgress
	r.ops = append(r.ops, op)
}

// Get returns the operation with id.
func (r *Registry) Get(id uuid.UUID) (Operation, bool) {
	if i := r.index(id); i >= 0 {
		return r.ops[i], true
	}
	return Operation{}, false
}

// Finish moves an in-progress operation to Completed, or to Failed when
// reason is non-empty. It returns the updated entry and false when id is
// unknown or already terminal, in which case nothing changes.
func (r *Registry) Finish(id uuid.UUID, reason string, now time.Time) (Operation, bool) {
	i := r.index(id)
	if i < 0 || r.ops[i].Status.Terminal() {
		return Operation{}, false
	}
	op := &r.ops[i]
	op.FinishedAt = now
	if reason == "" {
		op.Status = OpCompleted
	} else {
		op.Status = OpFailed
		op.Reason = reason
	}
	out := *op
	r.prune()
	return out, true
}

// Conflict returns the in-flight operation that blocks starting kind on
// target, if any.
func (r *Registry) Conflict(kind OpKind, target uuid.UUID) (Operation, bool) {
	for _, op := range r.ops {
		if op.Status != OpInProgress || op.Target != target {
			continue
		}
		if op.Kind == kind || (kind.Mutating() && op.Kind.Mutating()) {
			return op, true
		}
	}
	return Operation{}, false
}

// InFlight returns the operations still in progress, oldest first.
func (r *Registry) InFlight() []Operation {
	var out []Operation
	for _, op := range r.ops {
		if op.Status == OpInProgress {
			out = append(out, op)
		}
	}
	return out
}

// InFlightFor reports whether any operation on target is in progress.
func (r *Registry) InFlightFor(target uuid.UUID) bool {
	for _, op := range r.ops {
		if op.Status == OpInProgress && op.Target == target {
			return true
		}
	}
	return false
}

// All returns every tracked operation, oldest first.
func (r *Registry) All() []Operation {
	return append([]Operation(nil), r.ops...)
}

// Len is the number of tracked operations.
func (r *Registry) Len() int {
	return len(r.ops)
}

func (r *Registry) index(id uuid.UUID) int {
	for i := range r.ops {
		if r.ops[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) prune() {
	terminal := 0
	for _, op := range r.ops {
		if op.Status.Terminal() {
			terminal++
		}
	}
	drop := terminal - MaxTerminalOperations
	if drop <= 0 {
		return
	}
	kept := r.ops[:0]
	for _, op := range r.ops {
		if drop > 0 && op.Status.Terminal() {
			drop--
			continue
		}
		kept = append(kept, op)
	}
	r.ops = kept
}
