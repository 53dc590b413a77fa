// Package service resolves logical daemons to the unit names actually
// present on the host and drives enable/restart transitions against them.
package service

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/hostharden/internal/domain/faults"
	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// Handle is a registry-confirmed service identity.
type Handle struct {
	Logical string `json:"logical" yaml:"logical"`
	Unit    string `json:"unit" yaml:"unit"`
}

// String returns the unit name.
func (h Handle) String() string {
	return h.Unit
}

// Reconciler resolves and drives services through a ServiceRegistry.
// Handles are cached per logical name for the lifetime of the Reconciler.
type Reconciler struct {
	registry ports.ServiceRegistry
	logger   ports.Logger

	mu      sync.Mutex
	handles map[string]Handle
}

// NewReconciler creates a Reconciler.
func NewReconciler(registry ports.ServiceRegistry) *Reconciler {
	return &Reconciler{
		registry: registry,
		handles:  make(map[string]Handle),
	}
}

// WithLogger attaches a logger.
func (r *Reconciler) WithLogger(l ports.Logger) *Reconciler {
	r.logger = l
	return r
}

// Resolve returns the first candidate present in the registry, in priority
// order. A logical name resolved earlier is returned without probing again.
func (r *Reconciler) Resolve(ctx context.Context, logical string, candidates ...string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[logical]; ok {
		return h, nil
	}
	if len(candidates) == 0 {
		candidates = []string{logical}
	}

	present, err := r.registry.ListServices(ctx)
	if err != nil {
		return Handle{}, faults.NewServiceActionError("list", logical, err)
	}
	for _, name := range candidates {
		if _, ok := present[name]; ok {
			h := Handle{Logical: logical, Unit: name}
			r.handles[logical] = h
			if r.logger != nil {
				r.logger.Debug(ctx, "service resolved", ports.F("logical", logical), ports.F("unit", name))
			}
			return h, nil
		}
	}
	return Handle{}, faults.NewServiceNotFoundError(logical, candidates)
}

// Cached returns the handle resolved earlier for logical, if any.
func (r *Reconciler) Cached(logical string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[logical]
	return h, ok
}

// Enable enables the service at boot. Enabling an enabled service succeeds.
func (r *Reconciler) Enable(ctx context.Context, h Handle) error {
	if err := r.registry.Enable(ctx, h.Unit); err != nil {
		return faults.NewServiceActionError("enable", h.Unit, err)
	}
	return nil
}

// Restart restarts the service. Restarting a running service succeeds.
func (r *Reconciler) Restart(ctx context.Context, h Handle) error {
	if err := r.registry.Restart(ctx, h.Unit); err != nil {
		return faults.NewServiceActionError("restart", h.Unit, err)
	}
	if r.logger != nil {
		r.logger.Info(ctx, "service restarted", ports.F("unit", h.Unit))
	}
	return nil
}

// EnableAndRestart enables then restarts h.
func (r *Reconciler) EnableAndRestart(ctx context.Context, h Handle) error {
	if err := r.Enable(ctx, h); err != nil {
		return err
	}
	return r.Restart(ctx, h)
}

// Status returns the runtime state of h.
func (r *Reconciler) Status(ctx context.Context, h Handle) (ports.ServiceStatus, error) {
	status, err := r.registry.Status(ctx, h.Unit)
	if err != nil {
		return ports.ServiceUnknown, faults.NewServiceActionError("status", h.Unit, err)
	}
	return status, nil
}

// RequireRunning fails with a verification error unless h is running.
func (r *Reconciler) RequireRunning(ctx context.Context, h Handle) error {
	status, err := r.Status(ctx, h)
	if err != nil {
		return err
	}
	if status != ports.ServiceRunning {
		return faults.NewVerificationFailedError(h.Unit, "service is "+string(status)+" after restart")
	}
	return nil
}
