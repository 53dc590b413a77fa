package ports

import "context"

// PackageManager installs operating system packages.
// Failures are never retried by callers.
type PackageManager interface {
	// RefreshIndex updates the package index.
	RefreshIndex(ctx context.Context) error
	// Upgrade applies all pending package upgrades.
	Upgrade(ctx context.Context) error
	// Install installs the named packages; already-installed packages are a no-op.
	Install(ctx context.Context, names ...string) error
	// Installed reports whether a package is installed.
	Installed(ctx context.Context, name string) (bool, error)
}

// ServiceStatus is the runtime state of a service as seen by the registry.
type ServiceStatus string

const (
	ServiceRunning ServiceStatus = "running"
	ServiceStopped ServiceStatus = "stopped"
	ServiceUnknown ServiceStatus = "unknown"
)

// ServiceRegistry is the init system's view of installed services.
// Enable and Restart must be idempotent.
type ServiceRegistry interface {
	// ListServices returns the set of service names known to the registry.
	ListServices(ctx context.Context) (map[string]struct{}, error)
	Enable(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (ServiceStatus, error)
}

// Firewall is the host packet filter front end.
type Firewall interface {
	// SetDefaults sets the default incoming and outgoing policies.
	SetDefaults(ctx context.Context, incoming, outgoing string) error
	// Allow opens port/proto for incoming traffic. Repeating it is a no-op.
	Allow(ctx context.Context, port int, proto string) error
	// Enable activates the firewall.
	Enable(ctx context.Context) error
	// Allows reports whether an active rule admits port/proto.
	Allows(ctx context.Context, port int, proto string) (bool, error)
}

// ListenProbe checks that a remote-access service answers on an address.
type ListenProbe interface {
	// Probe completes a protocol handshake against addr and returns the
	// server's host key fingerprint.
	Probe(ctx context.Context, addr string) (string, error)
}

// PrivilegeChecker reports on the process privileges and available tooling.
type PrivilegeChecker interface {
	// IsRoot returns true if the process runs with administrative privileges.
	IsRoot() bool
	// HasCommand reports whether name resolves on PATH.
	HasCommand(name string) bool
}
