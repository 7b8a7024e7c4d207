package ctl

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// CapturesOptions configures the captures command.
type CapturesOptions struct {
	Limit  int
	Delete string
	JSON   bool
}

// Captures lists recent capture results, or deletes a recording file by name.
func Captures(baseURL string, opts CapturesOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Delete != "" {
		url := baseURL + "/api/captures?name=" + opts.Delete
		req, err := http.NewRequest(http.MethodDelete, url, nil)
		if err != nil {
			return err
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var result struct {
			OK      bool   `json:"ok"`
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if opts.JSON {
			return printJSON(result)
		}
		if result.OK {
			fmt.Printf("\n  %s  %s\n\n", colorize(green, "DELETED"), result.Message)
		} else {
			fmt.Printf("\n  %s  %s\n\n", colorize(red, "ERROR"), result.Error)
		}
		return nil
	}

	path := "/api/captures"
	if opts.Limit > 0 {
		path += fmt.Sprintf("?limit=%d", opts.Limit)
	}

	var resp struct {
		Captures []struct {
			Satellite     string   `json:"satellite"`
			NoradID       int      `json:"norad_id"`
			RecordingPath string   `json:"recording_path"`
			ImagePaths    []string `json:"image_paths"`
			StartTime     string   `json:"start_time"`
			EndTime       string   `json:"end_time"`
			PeakSignal    float64  `json:"peak_signal_db"`
			Success       bool     `json:"success"`
			Error         string   `json:"error"`
		} `json:"captures"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}

	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  CAPTURES"))

	if len(resp.Captures) == 0 {
		fmt.Println(colorize(dim, "  ────────────────────────"))
		fmt.Println("  No captures recorded yet.")
	} else {
		t := newTable("  ", "Satellite", "Start", "Peak dB", "Images", "Result", "File")
		t.alignRight(2)
		t.alignRight(3)
		for _, c := range resp.Captures {
			start := c.StartTime
			if ts, err := time.Parse(time.RFC3339Nano, c.StartTime); err == nil {
				start = ts.Local().Format("2006-01-02 15:04")
			}
			result := colorize(green, "ok")
			if !c.Success {
				result = colorize(red, "failed")
			}
			t.row(c.Satellite, start, fmt.Sprintf("%.1f", c.PeakSignal), fmt.Sprintf("%d", len(c.ImagePaths)), result, filepath.Base(c.RecordingPath))
		}
		t.flush()
	}
	fmt.Println()
	return nil
}
