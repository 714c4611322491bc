// Command validate checks a hazard zone file and replays a fixture of pings
// through the hazard models, reporting which pings would raise alerts.
//
// The fixture uses the ingestion body format. Items may carry an optional
// "expect" field (High, Moderate or None) checked against the box policy.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -zones config/zones.yaml \
//	  -pings testdata/pings.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/hazard-alert-service/internal/config"
	"github.com/couchcryptid/hazard-alert-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	zonesPath := flag.String("zones", "", "hazard zones file (YAML or JSON); empty uses the built-in zones")
	pingsPath := flag.String("pings", "", "JSON fixture of pings to assess")
	flag.Parse()

	if *pingsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, *zonesPath, *pingsPath))
}

func run(out io.Writer, zonesPath, pingsPath string) int {
	fmt.Fprintln(out, "=== Hazard Zone Validation ===")
	fmt.Fprintln(out)

	zones := domain.DefaultZones()
	if zonesPath != "" {
		var err error
		if zones, err = config.LoadZones(zonesPath); err != nil {
			fmt.Fprintf(out, "FATAL: load zones: %v\n", err)
			return 1
		}
	}

	data, err := os.ReadFile(pingsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read pings: %v\n", err)
		return 1
	}

	decoded := &phase{name: "Ping fixture decoding"}
	res, err := domain.DecodePings(data)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	for _, r := range res.Rejected {
		decoded.errorf("item %d: %v", r.Index, r.Err)
	}

	box := domain.NewBoxModel(zones)
	graded := domain.NewGradedModel(zones, domain.DefaultBaseline, domain.DefaultBaseScore, domain.NoPerturbation)

	phases := []*phase{
		decoded,
		validateExpectations(data, res, box),
	}

	fmt.Fprintf(out, "Zones: %d, pings: %d valid, %d rejected\n\n", zones.Len(), len(res.Pings), len(res.Rejected))
	fmt.Fprintf(out, "  %-10s %-10s %-10s %-10s %s\n", "USER", "LAT", "LON", "BOX", "GRADED")
	for _, p := range res.Pings {
		fmt.Fprintf(out, "  %-10s %-10.4f %-10.4f %-10s %s\n",
			p.UserID, p.Lat, p.Lon, box.Assess(p.Lat, p.Lon).Level, graded.Assess(p.Lat, p.Lon).Level)
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateExpectations compares box-policy levels against the optional
// "expect" field of each valid fixture item.
func validateExpectations(data []byte, res domain.DecodeResult, model domain.HazardModel) *phase {
	p := &phase{name: "Box policy expectations"}

	expectations := loadExpectations(data)

	rejected := make(map[int]bool, len(res.Rejected))
	for _, r := range res.Rejected {
		rejected[r.Index] = true
	}

	next := 0
	for i, want := range expectations {
		if rejected[i] {
			continue
		}
		ping := res.Pings[next]
		next++
		if want == nil {
			continue
		}
		wantLevel, err := domain.ParseLevel(*want)
		if err != nil {
			p.errorf("item %d: %v", i, err)
			continue
		}
		if got := model.Assess(ping.Lat, ping.Lon).Level; got != wantLevel {
			p.errorf("item %d (%s at %.4f,%.4f): level %s, want %s", i, ping.UserID, ping.Lat, ping.Lon, got, wantLevel)
		}
	}
	return p
}

// loadExpectations returns the "expect" value of every fixture item in
// order, nil where absent or unreadable.
func loadExpectations(data []byte) []*string {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		raws = []json.RawMessage{data}
	}

	out := make([]*string, len(raws))
	for i, raw := range raws {
		var it struct {
			Expect *string `json:"expect"`
		}
		if json.Unmarshal(raw, &it) == nil {
			out[i] = it.Expect
		}
	}
	return out
}
