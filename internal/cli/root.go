// Package cli provides the command-line interface for lpf.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mNandhu/lpf-cli/internal/appconfig"
	"github.com/mNandhu/lpf-cli/internal/autossh"
	"github.com/mNandhu/lpf-cli/internal/doctor"
	"github.com/mNandhu/lpf-cli/internal/events"
	"github.com/mNandhu/lpf-cli/internal/lifecycle"
	"github.com/mNandhu/lpf-cli/internal/proc"
	"github.com/mNandhu/lpf-cli/internal/registry"
	"github.com/mNandhu/lpf-cli/internal/ui"
	"github.com/mNandhu/lpf-cli/internal/util"
)

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "lpf",
		Short: "Manage SSH local port forwarding tunnels",
		Long:  "lpf registers, lists, and tears down auto-reconnecting SSH tunnels backed by autossh,\npersisting tunnel state across invocations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run()
		},
	}

	root.AddCommand(
		newAddCmd(),
		newListCmd(),
		newStopCmd(),
		newStopAllCmd(),
		newSyncCmd(),
		newRestartCmd(),
		newConnectCmd(),
		newDoctorCmd(),
		newEventsCmd(),
	)
	return root
}

// newController builds the lifecycle controller from the on-disk config.
// Every subcommand goes through here so the whole tool agrees on paths.
func newController() (*lifecycle.Controller, appconfig.Config, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, cfg, err
	}
	if err := appconfig.EnsureDirs(); err != nil {
		return nil, cfg, err
	}
	regPath, err := appconfig.RegistryFilePath()
	if err != nil {
		return nil, cfg, err
	}
	pidDir, err := appconfig.PidDir()
	if err != nil {
		return nil, cfg, err
	}
	ctl := lifecycle.NewController(
		registry.NewStore(regPath),
		autossh.New(pidDir, cfg.Tunnel),
		proc.NewChecker(),
		util.PortInUse,
		events.NewStore(),
	)
	return ctl, cfg, nil
}

func newAddCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "add <local_port> <ssh_host> [remote_port]",
		Short: "Add and start a new SSH tunnel",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPort, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid local port %q: %w", args[0], err)
			}
			remotePort := 0
			if len(args) == 3 {
				remotePort, err = strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid remote port %q: %w", args[2], err)
				}
			}
			if err := autossh.EnsureBinaries(); err != nil {
				return err
			}
			ctl, _, err := newController()
			if err != nil {
				return err
			}
			res, err := ctl.Add(cmd.Context(), args[1], localPort, remotePort, force)
			printWarnings(res.Warnings)
			if err != nil {
				return err
			}
			if res.Displaced != "" {
				fmt.Printf("displaced %s\n", res.Displaced)
			}
			fmt.Printf("started %s pid=%d %s\n", res.ID, res.Record.PID, res.Record.Forwarding())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "displace a managed tunnel already claiming the local port")
	return cmd
}

func newListCmd() *cobra.Command {
	var jsonOut, noSync bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List configured tunnels and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, cfg, err := newController()
			if err != nil {
				return err
			}
			statuses := ctl.List(cfg.AutoSyncOnList && !noSync)
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}
			if len(statuses) == 0 {
				fmt.Println("No tunnels are configured.")
				return nil
			}
			fmt.Printf("%-30s %-10s %-36s %-8s %s\n", "ID", "STATUS", "FORWARDING", "PID", "LAST STARTED")
			for _, st := range statuses {
				pid := "-"
				if st.PID > 0 {
					pid = strconv.Itoa(st.PID)
				}
				fmt.Printf("%-30s %-10s %-36s %-8s %s\n",
					st.ID, strings.ToUpper(string(st.State)), st.Forwarding, pid, lastStartedString(st.LastStarted))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "skip the silent reconciliation pass before listing")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stop <local_port|tunnel-id>",
		Aliases: []string{"rm", "remove"},
		Short:   "Stop and remove a tunnel by local port or id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, _, err := newController()
			if err != nil {
				return err
			}
			var res lifecycle.RemoveResult
			if port, convErr := strconv.Atoi(args[0]); convErr == nil {
				res, err = ctl.RemoveByPort(port)
			} else {
				res, err = ctl.Remove(args[0])
			}
			printWarnings(res.Warnings)
			if err != nil {
				return err
			}
			fmt.Printf("removed %s\n", res.ID)
			return nil
		},
	}
}

func newStopAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stop-all",
		Aliases: []string{"remove-all", "kill-all"},
		Short:   "Stop and remove all tunnels",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, _, err := newController()
			if err != nil {
				return err
			}
			results := ctl.RemoveAll()
			if len(results) == 0 {
				fmt.Println("No tunnels to stop.")
				return nil
			}
			for _, res := range results {
				printWarnings(res.Warnings)
				fmt.Printf("removed %s\n", res.ID)
			}
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the registry against the OS process table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, _, err := newController()
			if err != nil {
				return err
			}
			res, err := ctl.Sync(false)
			if err != nil {
				return err
			}
			if len(res.Reconciled) == 0 {
				fmt.Println("Registry is in sync.")
				return nil
			}
			for _, id := range res.Reconciled {
				fmt.Printf("demoted %s to inactive\n", id)
			}
			return nil
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Relaunch every inactive tunnel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := autossh.EnsureBinaries(); err != nil {
				return err
			}
			ctl, _, err := newController()
			if err != nil {
				return err
			}
			res, err := ctl.RestartInactive(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range res.Restarted {
				fmt.Printf("restarted %s\n", id)
			}
			for _, f := range res.Failures {
				fmt.Fprintf(os.Stderr, "restart %s failed: %v\n", f.ID, f.Err)
			}
			if len(res.Restarted) == 0 && len(res.Failures) == 0 {
				fmt.Println("All tunnels are already active.")
			}
			return nil
		},
	}
}

func newConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <ssh_host>",
		Short: "Open an interactive SSH session to a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := autossh.EnsureBinaries(); err != nil {
				return err
			}
			cfg, err := appconfig.Load()
			if err != nil {
				return err
			}
			pidDir, err := appconfig.PidDir()
			if err != nil {
				return err
			}
			client := autossh.New(pidDir, cfg.Tunnel)
			return client.Connect(cmd.Context(), args[0])
		},
	}
}

func newDoctorCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the local lpf environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := doctor.Run()
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			if len(report.Issues) == 0 {
				fmt.Println("No issues found.")
				return nil
			}
			for _, is := range report.Issues {
				fmt.Printf("[%s] %s (%s): %s\n    -> %s\n", strings.ToUpper(string(is.Severity)), is.Check, is.Target, is.Message, is.Recommendation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func newEventsCmd() *cobra.Command {
	var (
		host, tunnelID, eventType, since string
		limit                            int
		jsonOut                          bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the tunnel lifecycle journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := events.Query{SSHHost: host, TunnelID: tunnelID, EventType: eventType, Limit: limit}
			if strings.TrimSpace(since) != "" {
				d, err := time.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid --since duration %q: %w", since, err)
				}
				q.Since = time.Now().Add(-d).UTC()
			}
			evts, err := events.NewStore().Read(q)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(evts)
			}
			if len(evts) == 0 {
				fmt.Println("No events recorded.")
				return nil
			}
			for _, evt := range evts {
				line := fmt.Sprintf("%s %-16s %s", evt.Timestamp.Local().Format(time.RFC3339), evt.EventType, util.EmptyDash(evt.TunnelID))
				if evt.PID > 0 {
					line += fmt.Sprintf(" pid=%d", evt.PID)
				}
				if evt.Message != "" {
					line += " " + evt.Message
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "filter by ssh host")
	cmd.Flags().StringVar(&tunnelID, "tunnel", "", "filter by tunnel id")
	cmd.Flags().StringVar(&eventType, "type", "", "filter by event type")
	cmd.Flags().StringVar(&since, "since", "", "only events newer than this duration (e.g. 24h)")
	cmd.Flags().IntVar(&limit, "limit", 0, "keep only the most recent N events")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")
	return cmd
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func lastStartedString(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return time.Unix(unix, 0).Local().Format("2006-01-02 15:04")
}
