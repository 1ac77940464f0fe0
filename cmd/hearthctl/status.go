package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

func newStatusCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show supervisor and component status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := fetchStatus(cmd, url)
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", envOr("HEARTH_URL", "http://localhost:8080"), "supervisor API base URL")
	return cmd
}

func fetchStatus(cmd *cobra.Command, baseURL string) (models.SystemStatus, error) {
	cfg := resilience.DefaultClientConfig("hearth-api")
	cfg.Timeout = 10 * time.Second
	client := resilience.NewClient(cfg)

	ctx := cmd.Context()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/v1/ops/status", http.NoBody)
	if err != nil {
		return models.SystemStatus{}, err
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return models.SystemStatus{}, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SystemStatus{}, &resilience.StatusError{StatusCode: resp.StatusCode}
	}

	var status models.SystemStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return models.SystemStatus{}, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

func renderStatus(w io.Writer, s models.SystemStatus) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("=== Hearth Supervisor ==="))
	fmt.Fprintf(w, "  System:      %s\n", systemColor(s.Supervisor)(string(s.Supervisor)))
	if s.MaintenanceMode {
		fmt.Fprintf(w, "  Maintenance: %s\n", yellow("on"))
	} else {
		fmt.Fprintf(w, "  Maintenance: off\n")
	}
	if s.CollectionError != nil {
		fmt.Fprintf(w, "  Metrics:     %s\n", yellow(*s.CollectionError))
	}

	fmt.Fprintf(w, "\n%s\n", yellow("Components:"))
	if len(s.Components) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("none registered"))
	}
	for _, c := range s.Components {
		paint, icon := componentColor(c.Status)
		line := fmt.Sprintf("  %s %-20s %s", icon, c.Name, paint(string(c.Status)))
		if c.Essential {
			line += gray(" essential")
		}
		if c.RecoveryAttempts > 0 {
			line += fmt.Sprintf(" (attempts: %d)", c.RecoveryAttempts)
		}
		if c.LastError != "" {
			line += " " + gray(c.LastError)
		}
		fmt.Fprintln(w, line)
	}

	if len(s.Endpoints) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", yellow("Endpoints:"))
	for _, e := range s.Endpoints {
		paint := color.New(color.FgGreen).SprintFunc()
		if !e.Healthy() {
			paint = color.New(color.FgRed).SprintFunc()
		}
		fmt.Fprintf(w, "  %-20s %s (failures: %d)\n", e.Name, paint(e.State), e.ConsecutiveFailures)
	}
}

func systemColor(s supervisor.SystemStatus) func(a ...any) string {
	switch s {
	case supervisor.SystemHealthy:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	case supervisor.SystemDegraded:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func componentColor(s supervisor.Status) (func(a ...any) string, string) {
	switch s {
	case supervisor.StatusOnline:
		return color.New(color.FgGreen).SprintFunc(), "●"
	case supervisor.StatusRecovering:
		return color.New(color.FgYellow).SprintFunc(), "◐"
	case supervisor.StatusError:
		return color.New(color.FgRed).SprintFunc(), "✗"
	default:
		return color.New(color.FgHiBlack).SprintFunc(), "○"
	}
}
