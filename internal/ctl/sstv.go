package ctl

import (
	"fmt"
	"strings"
)

// SSTVCapture requests an on-demand SSTV capture at freqHz via POST
// /api/sstv/capture. durationS of 0 lets the daemon use its configured SSTV
// record duration.
func SSTVCapture(baseURL string, freqHz, durationS int, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if freqHz <= 0 {
		return fmt.Errorf("--freq-hz is required")
	}

	body := map[string]any{"frequency_hz": freqHz}
	if durationS > 0 {
		body["duration_s"] = durationS
	}

	var resp struct {
		FrequencyHz int `json:"frequency_hz"`
		DurationS   int `json:"duration_s"`
	}
	if err := postJSON(baseURL, "/api/sstv/capture", body, &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Printf("  %s  %.3f MHz for %ds\n", colorize(green, "SSTV CAPTURE STARTED"), float64(resp.FrequencyHz)/1e6, resp.DurationS)
	fmt.Println()

	return nil
}
