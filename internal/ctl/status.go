package ctl

import (
	"fmt"
	"strings"
	"time"
)

// statusResponse mirrors the JSON returned by GET /api/status.
type statusResponse struct {
	State struct {
		Status         string `json:"status"`
		ScanningLabel  string `json:"scanning_label"`
		ScanningFreqHz *int   `json:"scanning_frequency_hz"`
		SDRConnected   bool   `json:"sdr_connected"`
	} `json:"state"`
	UptimeSeconds int64 `json:"uptime_seconds"`
	Paused        bool  `json:"paused"`
	Disk          *struct {
		TotalBytes     uint64 `json:"total_bytes"`
		UsedBytes      uint64 `json:"used_bytes"`
		AvailableBytes uint64 `json:"available_bytes"`
	} `json:"disk"`
	CurrentPass *struct {
		Satellite string `json:"satellite"`
		FreqHz    int    `json:"freq_hz"`
	} `json:"current_pass"`
}

// Status fetches the daemon status and prints a formatted summary, or raw
// JSON when jsonOutput is set.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s statusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	stateStr := colorize(stateColor(s.State.Status), s.State.Status)

	fmt.Println()
	fmt.Println(header("  NIGHT WATCH STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-12s %s\n", colorize(dim, "State:"), stateStr)
	fmt.Printf("  %-12s %s\n", colorize(dim, "Uptime:"), uptime)
	if s.Paused {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Paused:"), colorize(yellow, "yes"))
	}
	if s.State.ScanningLabel != "" {
		fmt.Printf("  %-12s %s\n", colorize(dim, "Scanning:"), s.State.ScanningLabel)
	}
	if s.CurrentPass != nil {
		fmt.Printf("  %-12s %s @ %.3f MHz\n", colorize(dim, "Pass:"), s.CurrentPass.Satellite, float64(s.CurrentPass.FreqHz)/1e6)
	}
	if s.Disk != nil {
		fmt.Printf("  %-12s %s used of %s\n", colorize(dim, "Disk:"), formatBytes(int64(s.Disk.UsedBytes)), formatBytes(int64(s.Disk.TotalBytes)))
	}
	fmt.Printf("  %-12s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	return nil
}
