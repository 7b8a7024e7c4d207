// Package satellite defines the static catalog of birds Night Watch knows
// how to receive, along with the per-kind signal parameters the recorder
// needs to build its demodulation pipeline.
package satellite

import (
	"fmt"
	"strings"
)

// Kind is the downlink signal family.
type Kind string

const (
	KindLRPT Kind = "lrpt"
	KindSSTV Kind = "sstv"
)

// Demod identifies the source process shape the recorder spawns.
type Demod string

const (
	DemodFM Demod = "fm"       // FM discriminator, optionally with de-emphasis/DC-block
	DemodIQ Demod = "iq"       // raw baseband IQ dump, no demodulation
)

// Satellite describes one bird in the catalog: its identity, downlink
// frequency, and the signal parameters the recorder/decoder need.
type Satellite struct {
	Name       string `json:"name"`
	NoradID    int    `json:"norad_id"`
	FreqHz     int    `json:"freq_hz"`
	Kind       Kind   `json:"kind"`
	Demod      Demod  `json:"demod"`
	Bandwidth  int    `json:"bandwidth_hz"` // Hz, informational
	SampleRate int    `json:"sample_rate_hz"`
	Enabled    bool   `json:"enabled"`
}

// Catalog is the default set of satellites Night Watch tracks: two LRPT
// weather birds (METEOR-M2, METEOR-M2-3) and one SSTV-capable crewed
// platform (ISS). SO-50-class amateur relays transmit SSTV only
// opportunistically, so they are covered by the ground-scan list in
// config rather than the pass catalog.
var Catalog = []Satellite{
	{
		Name:       "METEOR-M2",
		NoradID:    40069,
		FreqHz:     137100000,
		Kind:       KindLRPT,
		Demod:      DemodIQ,
		Bandwidth:  120000,
		SampleRate: 1024000,
		Enabled:    true,
	},
	{
		Name:       "METEOR-M2-3",
		NoradID:    57166,
		FreqHz:     137900000,
		Kind:       KindLRPT,
		Demod:      DemodIQ,
		Bandwidth:  120000,
		SampleRate: 1024000,
		Enabled:    true,
	},
	{
		Name:       "ISS",
		NoradID:    25544,
		FreqHz:     145800000,
		Kind:       KindSSTV,
		Demod:      DemodFM,
		Bandwidth:  15000,
		SampleRate: 48000,
		Enabled:    true,
	},
}

// ByNoradID returns the satellite with the given NORAD catalog ID, or nil.
func ByNoradID(id int) *Satellite {
	for i := range Catalog {
		if Catalog[i].NoradID == id {
			return &Catalog[i]
		}
	}
	return nil
}

// ByName returns the satellite with the given name (case-insensitive), or nil.
func ByName(name string) *Satellite {
	upper := strings.ToUpper(name)
	for i := range Catalog {
		if strings.ToUpper(Catalog[i].Name) == upper {
			return &Catalog[i]
		}
	}
	return nil
}

// Manual builds a virtual satellite entry for an operator-triggered SSTV
// capture at an arbitrary frequency, matching the naming convention used
// by capture_sstv_manual.
func Manual(freqHz int) Satellite {
	return Satellite{
		Name:       ManualName(freqHz),
		NoradID:    0,
		FreqHz:     freqHz,
		Kind:       KindSSTV,
		Demod:      DemodFM,
		Bandwidth:  15000,
		SampleRate: 48000,
		Enabled:    true,
	}
}

// ManualName renders the display name for a manual SSTV capture, e.g.
// "Manual 145.800 MHz".
func ManualName(freqHz int) string {
	return fmt.Sprintf("Manual %.3f MHz", float64(freqHz)/1e6)
}
