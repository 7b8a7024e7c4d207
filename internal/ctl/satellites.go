package ctl

import (
	"fmt"
	"strings"
)

// Satellites lists the LRPT/SSTV satellite catalog from the daemon.
func Satellites(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Satellites []struct {
			Name       string `json:"name"`
			NoradID    int    `json:"norad_id"`
			FreqHz     int    `json:"freq_hz"`
			Kind       string `json:"kind"`
			Demod      string `json:"demod"`
			Bandwidth  int    `json:"bandwidth_hz"`
			SampleRate int    `json:"sample_rate_hz"`
			Enabled    bool   `json:"enabled"`
		} `json:"satellites"`
	}
	if err := getJSON(baseURL, "/api/satellites", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  SATELLITE CATALOG"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 58)))
	fmt.Printf("  %-12s %-10s %-6s %-5s %s\n",
		colorize(dim, "Name"),
		colorize(dim, "NORAD ID"),
		colorize(dim, "Kind"),
		colorize(dim, "Demod"),
		colorize(dim, "Frequency"),
	)
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 58)))
	for _, s := range resp.Satellites {
		freqMHz := float64(s.FreqHz) / 1e6
		state := ""
		if !s.Enabled {
			state = colorize(dim, " (disabled)")
		}
		fmt.Printf("  %-12s %-10d %-6s %-5s %.3f MHz%s\n",
			s.Name, s.NoradID, s.Kind, s.Demod, freqMHz, state)
	}
	fmt.Println()

	return nil
}
