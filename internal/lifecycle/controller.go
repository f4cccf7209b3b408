// Package lifecycle implements the tunnel state machine.
//
// Per tunnel id the states are: absent -> active(pid) via Add, active ->
// absent via Remove, with a side transition active -> inactive when Sync
// detects that the stored pid no longer matches a live helper process, and
// inactive -> active(pid') via RestartInactive. The Controller owns all
// registry writes and keeps the on-disk registry truthful against the OS
// process table: a stored pid is never trusted until the identity checker
// has confirmed the process is the helper the record claims.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/mNandhu/lpf-cli/internal/events"
	"github.com/mNandhu/lpf-cli/internal/history"
	"github.com/mNandhu/lpf-cli/internal/model"
	"github.com/mNandhu/lpf-cli/internal/proc"
	"github.com/mNandhu/lpf-cli/internal/registry"
	"github.com/mNandhu/lpf-cli/internal/util"
)

// Launcher abstracts helper process creation for testing.
type Launcher interface {
	Start(ctx context.Context, rec model.TunnelRecord) (pid int, pidFile string, err error)
}

// Checker abstracts process liveness and identity verification.
type Checker interface {
	Alive(pid int) bool
	Running(pid int, exp proc.Expected) bool
	Terminate(pid int) error
}

// PortProbe reports whether a local TCP port is bound. A non-nil error means
// the probe could not decide and the port was conservatively reported as
// occupied; callers surface it as a warning.
type PortProbe func(port int) (bool, error)

// Controller orchestrates the registry, launcher, and identity checker.
// All collaborators are passed in explicitly so the controller is testable
// without filesystem or environment coupling.
type Controller struct {
	store     *registry.Store
	launcher  Launcher
	checker   Checker
	portInUse PortProbe
	journal   *events.Store
}

// NewController wires a controller from its collaborators. journal may be
// nil to disable lifecycle event recording.
func NewController(store *registry.Store, launcher Launcher, checker Checker, probe PortProbe, journal *events.Store) *Controller {
	return &Controller{
		store:     store,
		launcher:  launcher,
		checker:   checker,
		portInUse: probe,
		journal:   journal,
	}
}

// AddResult reports the outcome of a successful Add.
type AddResult struct {
	ID        string
	Record    model.TunnelRecord
	Displaced string
	Warnings  []string
}

// Add registers and launches a new tunnel. remotePort zero defaults to
// localPort. Without force, an occupied local port rejects the request; with
// force, a registered tunnel claiming that port is removed first (regardless
// of whether its process is still alive) and the launch proceeds. Nothing is
// persisted unless the launch fully succeeds: a failed spawn or handshake
// leaves the registry untouched, never a pid-less "active" entry.
func (c *Controller) Add(ctx context.Context, sshHost string, localPort, remotePort int, force bool) (AddResult, error) {
	var res AddResult
	if strings.TrimSpace(sshHost) == "" {
		return res, fmt.Errorf("ssh host cannot be empty")
	}
	if err := util.ValidatePort(localPort); err != nil {
		return res, fmt.Errorf("invalid local port: %w", err)
	}
	if remotePort == 0 {
		remotePort = localPort
	}
	if err := util.ValidatePort(remotePort); err != nil {
		return res, fmt.Errorf("invalid remote port: %w", err)
	}

	id := model.TunnelID(sshHost, localPort)
	res.ID = id

	inUse, probeErr := c.portInUse(localPort)
	if probeErr != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("port probe for %d: %v", localPort, probeErr))
	}
	if inUse && !force {
		return res, fmt.Errorf("%w: %d", ErrPortUnavailable, localPort)
	}
	if force {
		reg := c.store.Load()
		if claimID, _, ok := reg.ByLocalPort(localPort); ok {
			rm, err := c.Remove(claimID)
			if err != nil {
				return res, fmt.Errorf("displace %s: %w", claimID, err)
			}
			res.Displaced = claimID
			res.Warnings = append(res.Warnings, rm.Warnings...)
		} else if inUse {
			// Force can only displace a tunnel this registry manages.
			return res, fmt.Errorf("%w: %d is not held by a managed tunnel", ErrPortUnavailable, localPort)
		}
	}

	reg := c.store.Load()
	if rec, ok := reg[id]; ok {
		if c.checker.Running(rec.PID, proc.ExpectedFor(rec)) {
			return res, fmt.Errorf("%w: %s", ErrTunnelActive, id)
		}
		return res, fmt.Errorf("%w: %s (remove it, or use restart)", ErrTunnelExists, id)
	}

	rec := model.TunnelRecord{SSHHost: sshHost, LocalPort: localPort, RemotePort: remotePort}
	pid, pidFile, err := c.launcher.Start(ctx, rec)
	if err != nil {
		c.record(events.Event{TunnelID: id, SSHHost: sshHost, EventType: events.TypeAddFailed, Message: err.Error()})
		return res, err
	}
	rec.PID = pid
	rec.PIDFile = pidFile
	reg[id] = rec
	if err := c.store.Save(reg); err != nil {
		return res, fmt.Errorf("persist registry: %w", err)
	}
	if err := history.Touch(id); err != nil {
		slog.Debug("could not update history", "tunnel", id, "error", err)
	}
	c.record(events.Event{TunnelID: id, SSHHost: sshHost, EventType: events.TypeAdded, PID: pid})
	res.Record = rec
	return res, nil
}

// List returns the computed status of every registered tunnel, sorted by id.
// With withSync, a silent reconciliation pass self-heals stale entries first;
// otherwise the call is read-only.
func (c *Controller) List(withSync bool) []model.TunnelStatus {
	if withSync {
		if _, err := c.Sync(true); err != nil {
			slog.Warn("pre-list sync failed", "error", err)
		}
	}
	reg := c.store.Load()
	last, err := history.LastStarted()
	if err != nil {
		slog.Debug("could not read history", "error", err)
	}
	out := make([]model.TunnelStatus, 0, len(reg))
	for _, id := range sortedIDs(reg) {
		rec := reg[id]
		state := model.TunnelInactive
		if rec.PID > 0 && c.checker.Running(rec.PID, proc.ExpectedFor(rec)) {
			state = model.TunnelActive
		}
		out = append(out, model.TunnelStatus{
			ID:          id,
			SSHHost:     rec.SSHHost,
			LocalPort:   rec.LocalPort,
			RemotePort:  rec.RemotePort,
			PID:         rec.PID,
			State:       state,
			Forwarding:  rec.Forwarding(),
			LastStarted: last[id],
		})
	}
	return out
}

// RemoveResult reports the outcome of a Remove. Warnings carry signal and
// pid-file cleanup problems that did not prevent the record's removal.
type RemoveResult struct {
	ID       string
	Signaled bool
	Warnings []string
}

// Remove stops a tunnel's helper process (when its identity checks out) and
// deletes its record. The record always leaves the registry, even if the
// termination signal or pid-file cleanup fails. A dead or stale pid simply
// means there is nothing to signal.
func (c *Controller) Remove(id string) (RemoveResult, error) {
	res := RemoveResult{ID: id}
	reg := c.store.Load()
	rec, ok := reg[id]
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrUnknownTunnel, id)
	}

	if rec.PID > 0 && c.checker.Running(rec.PID, proc.ExpectedFor(rec)) {
		if err := c.checker.Terminate(rec.PID); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not signal pid %d: %v", rec.PID, err))
		} else {
			res.Signaled = true
		}
	}

	if rec.PIDFile != "" {
		if err := os.Remove(rec.PIDFile); err != nil && !os.IsNotExist(err) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not remove pid file %s: %v", rec.PIDFile, err))
		}
	}

	delete(reg, id)
	if err := c.store.Save(reg); err != nil {
		return res, fmt.Errorf("persist registry: %w", err)
	}
	if err := history.Forget(id); err != nil {
		slog.Debug("could not update history", "tunnel", id, "error", err)
	}
	c.record(events.Event{TunnelID: id, SSHHost: rec.SSHHost, EventType: events.TypeRemoved, PID: rec.PID})
	return res, nil
}

// RemoveByPort resolves a tunnel by its local port and removes it. This is
// the lookup behind `lpf stop <port>`.
func (c *Controller) RemoveByPort(port int) (RemoveResult, error) {
	reg := c.store.Load()
	id, _, ok := reg.ByLocalPort(port)
	if !ok {
		return RemoveResult{}, fmt.Errorf("%w: no tunnel bound to local port %d", ErrUnknownTunnel, port)
	}
	return c.Remove(id)
}

// RemoveAll removes every registered tunnel. Per-tunnel failures become
// warnings on the corresponding result and do not abort the loop.
func (c *Controller) RemoveAll() []RemoveResult {
	reg := c.store.Load()
	ids := sortedIDs(reg)
	out := make([]RemoveResult, 0, len(ids))
	for _, id := range ids {
		res, err := c.Remove(id)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
		}
		out = append(out, res)
	}
	return out
}

// SyncResult lists the tunnels demoted to inactive by a reconciliation pass.
type SyncResult struct {
	Reconciled []string
}

// Sync reconciles the registry against the OS process table: every record
// whose pid fails the identity check has its pid and pid-file fields cleared,
// leaving the rest of the record intact so the tunnel can be restarted later.
// Records are never deleted here. The registry is persisted once, and only
// if something changed. With silent, logging and event recording are
// suppressed (used by List and RestartInactive).
func (c *Controller) Sync(silent bool) (SyncResult, error) {
	var res SyncResult
	reg := c.store.Load()
	for _, id := range sortedIDs(reg) {
		rec := reg[id]
		if rec.PID == 0 {
			continue
		}
		if c.checker.Running(rec.PID, proc.ExpectedFor(rec)) {
			continue
		}
		if !silent {
			slog.Info("demoting stale tunnel", "tunnel", id, "pid", rec.PID)
		}
		rec.PID = 0
		rec.PIDFile = ""
		reg[id] = rec
		res.Reconciled = append(res.Reconciled, id)
	}
	if len(res.Reconciled) == 0 {
		return res, nil
	}
	if err := c.store.Save(reg); err != nil {
		return res, fmt.Errorf("persist registry: %w", err)
	}
	if !silent {
		for _, id := range res.Reconciled {
			c.record(events.Event{TunnelID: id, EventType: events.TypeSynced, Message: "stale pid cleared"})
		}
	}
	return res, nil
}

// RestartFailure pairs a tunnel id with the launch error that kept it down.
type RestartFailure struct {
	ID  string
	Err error
}

// RestartResult reports the outcome of a RestartInactive pass.
type RestartResult struct {
	Restarted []string
	Failures  []RestartFailure
}

// RestartInactive relaunches every record lacking a pid after an internal
// sync, using the record's stored host and port pair. Tunnels already active
// are untouched and never double-launched. Per-tunnel launch failures are
// collected and do not stop the loop; the registry is persisted once at the
// end if anything changed.
func (c *Controller) RestartInactive(ctx context.Context) (RestartResult, error) {
	var res RestartResult
	if _, err := c.Sync(true); err != nil {
		return res, err
	}
	reg := c.store.Load()
	changed := false
	for _, id := range sortedIDs(reg) {
		rec := reg[id]
		if rec.PID != 0 {
			continue
		}
		pid, pidFile, err := c.launcher.Start(ctx, rec)
		if err != nil {
			res.Failures = append(res.Failures, RestartFailure{ID: id, Err: err})
			c.record(events.Event{TunnelID: id, SSHHost: rec.SSHHost, EventType: events.TypeRestartFailed, Message: err.Error()})
			continue
		}
		rec.PID = pid
		rec.PIDFile = pidFile
		reg[id] = rec
		changed = true
		res.Restarted = append(res.Restarted, id)
		if err := history.Touch(id); err != nil {
			slog.Debug("could not update history", "tunnel", id, "error", err)
		}
		c.record(events.Event{TunnelID: id, SSHHost: rec.SSHHost, EventType: events.TypeRestarted, PID: pid})
	}
	if changed {
		if err := c.store.Save(reg); err != nil {
			return res, fmt.Errorf("persist registry: %w", err)
		}
	}
	return res, nil
}

func (c *Controller) record(evt events.Event) {
	if c.journal == nil {
		return
	}
	if err := c.journal.Append(evt); err != nil {
		slog.Debug("could not append event", "type", evt.EventType, "error", err)
	}
}

func sortedIDs(reg model.Registry) []string {
	ids := make([]string, 0, len(reg))
	for id := range reg {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
