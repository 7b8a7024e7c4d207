package ctl

import (
	"fmt"
	"strings"
	"time"
)

// TLEInfo shows TLE cache status and freshness.
func TLEInfo(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		Source  string    `json:"source"`
		Age     string    `json:"age"`
		Fetched time.Time `json:"fetched_at"`
	}
	if err := getJSON(baseURL, "/api/tle/info", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  TLE CACHE INFO"))
	fmt.Println("  " + strings.Repeat("─", 42))

	if resp.Source == "" {
		fmt.Printf("  Status:  %s\n", colorize(red, "NO FETCH YET"))
		fmt.Println()
		return nil
	}

	switch resp.Source {
	case "cache", "network":
		fmt.Printf("  Status:  %s\n", colorize(green, "FRESH"))
	default:
		fmt.Printf("  Status:  %s\n", colorize(yellow, "STALE"))
	}
	fmt.Printf("  Source:  %s\n", resp.Source)
	fmt.Printf("  Age:     %s\n", resp.Age)
	if !resp.Fetched.IsZero() {
		fmt.Printf("  Fetched: %s\n", resp.Fetched.Local().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Println()
	return nil
}
