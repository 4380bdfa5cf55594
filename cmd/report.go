package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/novabehavior/abacore/config"
	"github.com/novabehavior/abacore/core/analytics"
	"github.com/novabehavior/abacore/pkg/export"
)

var (
	reportStart  string
	reportEnd    string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch the disruption frequency report from a running service",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportStart, "start", "", "window start (RFC3339)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "window end (RFC3339)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(reportCmd)
}

// apiBase turns a listen address like ":8080" into a reachable base URL.
func apiBase(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	url := apiBase(cfg.API.Addr) + "/api/reports/frequency"
	sep := "?"
	if reportStart != "" {
		url += sep + "start=" + reportStart
		sep = "&"
	}
	if reportEnd != "" {
		url += sep + "end=" + reportEnd
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if cfg.API.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.API.Token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch report: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch report: %s", resp.Status)
	}
	var report analytics.FrequencyReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}

	switch reportFormat {
	case "csv":
		return export.WriteReportCSV(cmd.OutOrStdout(), report)
	case "json":
		return export.WriteReportJSON(cmd.OutOrStdout(), report)
	default:
		return fmt.Errorf("unknown format %s", reportFormat)
	}
}
