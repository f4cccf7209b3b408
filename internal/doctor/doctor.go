package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mNandhu/lpf-cli/internal/appconfig"
	"github.com/mNandhu/lpf-cli/internal/autossh"
	"github.com/mNandhu/lpf-cli/internal/model"
	"github.com/mNandhu/lpf-cli/internal/proc"
	"github.com/mNandhu/lpf-cli/internal/registry"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type Issue struct {
	Severity       Severity `json:"severity"`
	Check          string   `json:"check"`
	Target         string   `json:"target"`
	Message        string   `json:"message"`
	Recommendation string   `json:"recommendation"`
}

type Report struct {
	Issues []Issue `json:"issues"`
}

// Run executes local diagnostics for lpf operations.
func Run() (Report, error) {
	var issues []Issue

	if err := autossh.EnsureBinaries(); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "helper-binary",
			Target:         "PATH",
			Message:        err.Error(),
			Recommendation: "install autossh and the OpenSSH client and ensure both are on PATH",
		})
	}

	if err := appconfig.EnsureDirs(); err != nil {
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "config-dir",
			Target:         "config directory",
			Message:        err.Error(),
			Recommendation: "ensure the lpf config directory is creatable and writable",
		})
	}

	if path, err := appconfig.RegistryFilePath(); err == nil {
		issues = append(issues, registryIssues(path)...)
	}

	checker := proc.NewChecker()
	if !checker.Verified() {
		issues = append(issues, Issue{
			Severity:       SeverityLow,
			Check:          "identity-verification",
			Target:         "platform",
			Message:        "per-process command-line introspection is unavailable; liveness checks are best-effort",
			Recommendation: "treat ACTIVE states as unverified on this platform",
		})
	}

	sort.Slice(issues, func(i, j int) bool {
		ri := severityRank(issues[i].Severity)
		rj := severityRank(issues[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if issues[i].Check != issues[j].Check {
			return issues[i].Check < issues[j].Check
		}
		if issues[i].Target != issues[j].Target {
			return issues[i].Target < issues[j].Target
		}
		return issues[i].Message < issues[j].Message
	})
	return Report{Issues: issues}, nil
}

func registryIssues(path string) []Issue {
	var issues []Issue

	if b, err := os.ReadFile(path); err == nil && !json.Valid(b) {
		issues = append(issues, Issue{
			Severity:       SeverityMedium,
			Check:          "registry-malformed",
			Target:         path,
			Message:        "registry file is not valid JSON and will be treated as empty",
			Recommendation: "remove or repair the file; existing tunnels will need to be re-added",
		})
	}

	store := registry.NewStore(path)
	reg := store.Load()
	checker := proc.NewChecker()

	for _, id := range sortedIDs(reg) {
		rec := reg[id]
		if rec.PID > 0 && !checker.Alive(rec.PID) {
			issues = append(issues, Issue{
				Severity:       SeverityMedium,
				Check:          "registry-stale",
				Target:         id,
				Message:        fmt.Sprintf("stored pid %d is not alive", rec.PID),
				Recommendation: "run `lpf sync` to reconcile, then `lpf restart` to relaunch",
			})
		}
		if rec.PIDFile != "" {
			if _, err := os.Stat(rec.PIDFile); os.IsNotExist(err) && rec.PID > 0 {
				issues = append(issues, Issue{
					Severity:       SeverityLow,
					Check:          "pidfile-missing",
					Target:         id,
					Message:        "recorded pid-handshake file is gone",
					Recommendation: "harmless unless the tunnel misbehaves; sync will clear it if stale",
				})
			}
		}
	}

	issues = append(issues, duplicatePortIssues(reg)...)
	issues = append(issues, orphanedPidFileIssues(reg)...)
	return issues
}

func duplicatePortIssues(reg model.Registry) []Issue {
	seen := map[int][]string{}
	for id, rec := range reg {
		seen[rec.LocalPort] = append(seen[rec.LocalPort], id)
	}
	var issues []Issue
	for port, ids := range seen {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		issues = append(issues, Issue{
			Severity:       SeverityHigh,
			Check:          "duplicate-local-port",
			Target:         fmt.Sprintf("127.0.0.1:%d", port),
			Message:        fmt.Sprintf("local port is claimed by %d registered tunnels", len(ids)),
			Recommendation: "remove the stale claimant or re-add one with --force",
		})
	}
	return issues
}

func orphanedPidFileIssues(reg model.Registry) []Issue {
	pidDir, err := appconfig.PidDir()
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(pidDir)
	if err != nil {
		return nil
	}
	known := map[string]bool{}
	for _, rec := range reg {
		if rec.PIDFile != "" {
			known[filepath.Base(rec.PIDFile)] = true
		}
	}
	var issues []Issue
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pid" || known[e.Name()] {
			continue
		}
		issues = append(issues, Issue{
			Severity:       SeverityLow,
			Check:          "pidfile-orphaned",
			Target:         filepath.Join(pidDir, e.Name()),
			Message:        "pid-handshake file has no matching registry entry",
			Recommendation: "safe to delete",
		})
	}
	return issues
}

func sortedIDs(reg model.Registry) []string {
	ids := make([]string, 0, len(reg))
	for id := range reg {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func severityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}
