package mocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/felixgeelhaar/hostharden/internal/ports"
)

// PackageManager is an in-memory ports.PackageManager.
type PackageManager struct {
	mu        sync.Mutex
	installed map[string]bool
	failing   map[string]error
	refreshed int
	upgraded  int
	journal   *Journal
}

// NewPackageManager creates a PackageManager with the given packages installed.
func NewPackageManager(installed ...string) *PackageManager {
	pm := &PackageManager{installed: make(map[string]bool), failing: make(map[string]error)}
	for _, name := range installed {
		pm.installed[name] = true
	}
	return pm
}

// WithJournal records operations in j.
func (pm *PackageManager) WithJournal(j *Journal) *PackageManager {
	pm.journal = j
	return pm
}

// FailInstall makes installing name return err. Use "refresh" or "upgrade"
// as the name to fail those operations instead.
func (pm *PackageManager) FailInstall(name string, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.failing[name] = err
}

// RefreshIndex records an index refresh.
func (pm *PackageManager) RefreshIndex(_ context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if err := pm.failing["refresh"]; err != nil {
		return err
	}
	pm.refreshed++
	pm.journal.Record("apt refresh")
	return nil
}

// Upgrade records an upgrade.
func (pm *PackageManager) Upgrade(_ context.Context) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if err := pm.failing["upgrade"]; err != nil {
		return err
	}
	pm.upgraded++
	pm.journal.Record("apt upgrade")
	return nil
}

// Install marks the packages installed.
func (pm *PackageManager) Install(_ context.Context, names ...string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, name := range names {
		if err := pm.failing[name]; err != nil {
			return err
		}
	}
	for _, name := range names {
		pm.installed[name] = true
	}
	pm.journal.Record("apt install %s", strings.Join(names, " "))
	return nil
}

// Installed reports whether name was installed.
func (pm *PackageManager) Installed(_ context.Context, name string) (bool, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.installed[name], nil
}

// Refreshed returns how many times the index was refreshed.
func (pm *PackageManager) Refreshed() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.refreshed
}

// ServiceRegistry is an in-memory ports.ServiceRegistry.
type ServiceRegistry struct {
	mu        sync.Mutex
	services  map[string]bool // name -> running
	enabled   map[string]bool
	failing   map[string]error
	listCalls int
	restarts  map[string]int
	journal   *Journal
	onRestart func(name string)
}

// NewServiceRegistry creates a registry containing the named (stopped) services.
func NewServiceRegistry(services ...string) *ServiceRegistry {
	r := &ServiceRegistry{
		services: make(map[string]bool),
		enabled:  make(map[string]bool),
		failing:  make(map[string]error),
		restarts: make(map[string]int),
	}
	for _, s := range services {
		r.services[s] = false
	}
	return r
}

// WithJournal records enable/restart calls in j.
func (r *ServiceRegistry) WithJournal(j *Journal) *ServiceRegistry {
	r.journal = j
	return r
}

// OnRestart registers a hook invoked after a successful restart.
func (r *ServiceRegistry) OnRestart(fn func(name string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRestart = fn
}

// Add registers a service, e.g. after its package is installed.
func (r *ServiceRegistry) Add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[name]; !ok {
		r.services[name] = false
	}
}

// Fail makes action ("enable", "restart" or "status") on name return err.
func (r *ServiceRegistry) Fail(action, name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[action+":"+name] = err
}

// SetRunning forces the running state of name.
func (r *ServiceRegistry) SetRunning(name string, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[name] = running
}

// ListServices returns the registered names.
func (r *ServiceRegistry) ListServices(_ context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if err := r.failing["list:"]; err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(r.services))
	for name := range r.services {
		out[name] = struct{}{}
	}
	return out, nil
}

// Enable marks name enabled.
func (r *ServiceRegistry) Enable(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing["enable:"+name]; err != nil {
		return err
	}
	if _, ok := r.services[name]; !ok {
		return fmt.Errorf("unit %s not found", name)
	}
	r.enabled[name] = true
	r.journal.Record("enable %s", name)
	return nil
}

// Restart marks name running.
func (r *ServiceRegistry) Restart(_ context.Context, name string) error {
	r.mu.Lock()
	if err := r.failing["restart:"+name]; err != nil {
		r.mu.Unlock()
		return err
	}
	if _, ok := r.services[name]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("unit %s not found", name)
	}
	r.services[name] = true
	r.restarts[name]++
	r.journal.Record("restart %s", name)
	hook := r.onRestart
	r.mu.Unlock()

	if hook != nil {
		hook(name)
	}
	return nil
}

// Status returns running or stopped.
func (r *ServiceRegistry) Status(_ context.Context, name string) (ports.ServiceStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failing["status:"+name]; err != nil {
		return ports.ServiceUnknown, err
	}
	running, ok := r.services[name]
	switch {
	case !ok:
		return ports.ServiceUnknown, nil
	case running:
		return ports.ServiceRunning, nil
	default:
		return ports.ServiceStopped, nil
	}
}

// ListCalls returns how many times ListServices was called.
func (r *ServiceRegistry) ListCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

// Enabled reports whether name was enabled.
func (r *ServiceRegistry) Enabled(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled[name]
}

// Restarts returns how many times name was restarted.
func (r *ServiceRegistry) Restarts(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restarts[name]
}

// Firewall is an in-memory ports.Firewall.
type Firewall struct {
	mu       sync.Mutex
	rules    map[string]bool
	enabled  bool
	incoming string
	outgoing string
	failing  map[string]error
	journal  *Journal
}

// NewFirewall creates a disabled firewall with no rules.
func NewFirewall() *Firewall {
	return &Firewall{rules: make(map[string]bool), failing: make(map[string]error)}
}

// WithJournal records mutations in j.
func (f *Firewall) WithJournal(j *Journal) *Firewall {
	f.journal = j
	return f
}

// Fail makes action ("defaults", "allow", "enable", "status") return err.
func (f *Firewall) Fail(action string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[action] = err
}

// SetDefaults records default policies.
func (f *Firewall) SetDefaults(_ context.Context, incoming, outgoing string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing["defaults"]; err != nil {
		return err
	}
	f.incoming, f.outgoing = incoming, outgoing
	f.journal.Record("firewall default %s/%s", incoming, outgoing)
	return nil
}

// Allow adds a rule.
func (f *Firewall) Allow(_ context.Context, port int, proto string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing["allow"]; err != nil {
		return err
	}
	f.rules[fmt.Sprintf("%d/%s", port, proto)] = true
	f.journal.Record("firewall allow %d/%s", port, proto)
	return nil
}

// Enable activates the firewall.
func (f *Firewall) Enable(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing["enable"]; err != nil {
		return err
	}
	f.enabled = true
	f.journal.Record("firewall enable")
	return nil
}

// Allows reports whether the firewall is enabled and has a rule for port/proto.
func (f *Firewall) Allows(_ context.Context, port int, proto string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing["status"]; err != nil {
		return false, err
	}
	return f.enabled && f.rules[fmt.Sprintf("%d/%s", port, proto)], nil
}

// Rules returns the allowed port/proto pairs in sorted order.
func (f *Firewall) Rules() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.rules))
	for r := range f.rules {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// ListenProbe is a ports.ListenProbe whose answer is decided by a function.
type ListenProbe struct {
	mu      sync.Mutex
	answer  func(addr string) (string, error)
	probed  []string
	journal *Journal
}

// NewListenProbe creates a probe that always succeeds with a fixed fingerprint.
func NewListenProbe() *ListenProbe {
	return &ListenProbe{answer: func(string) (string, error) { return "SHA256:test", nil }}
}

// WithJournal records probes in j.
func (p *ListenProbe) WithJournal(j *Journal) *ListenProbe {
	p.journal = j
	return p
}

// Answer replaces the probe behaviour.
func (p *ListenProbe) Answer(fn func(addr string) (string, error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answer = fn
}

// Probe records addr and returns the configured answer.
func (p *ListenProbe) Probe(_ context.Context, addr string) (string, error) {
	p.mu.Lock()
	p.probed = append(p.probed, addr)
	fn := p.answer
	p.mu.Unlock()
	p.journal.Record("probe %s", addr)
	return fn(addr)
}

// Probed returns the probed addresses.
func (p *ListenProbe) Probed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.probed...)
}

// PrivilegeChecker is a fixed ports.PrivilegeChecker.
type PrivilegeChecker struct {
	Root     bool
	Commands map[string]bool
}

// IsRoot returns the configured value.
func (c *PrivilegeChecker) IsRoot() bool {
	return c.Root
}

// HasCommand returns true when name is in Commands.
func (c *PrivilegeChecker) HasCommand(name string) bool {
	return c.Commands[name]
}

var (
	_ ports.PackageManager   = (*PackageManager)(nil)
	_ ports.ServiceRegistry  = (*ServiceRegistry)(nil)
	_ ports.Firewall         = (*Firewall)(nil)
	_ ports.ListenProbe      = (*ListenProbe)(nil)
	_ ports.PrivilegeChecker = (*PrivilegeChecker)(nil)
)
