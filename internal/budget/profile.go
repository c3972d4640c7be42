package budget

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"obra/internal"
)

// Profile describes how to read one estimate workbook and price its lines.
//
//	sheets = ["Presupuesto"]
//	markup_pct = 15
//	rebate_pct = 1.2
//	[columns]
//	code = "A"
//	unit = "C"
//	text = "D"
//	quantity = "E"
//	price = "F"
//	[control_codes]
//	"01.01" = "CC-01"
//	[control_groups]
//	"CC-01" = "Movimiento de tierras"
type Profile struct {
	Sheets        []string          `toml:"sheets"`
	MarkupPct     float64           `toml:"markup_pct"`
	RebatePct     float64           `toml:"rebate_pct"`
	Columns       ColumnLetters     `toml:"columns"`
	ControlCodes  map[string]string `toml:"control_codes"`
	ControlGroups map[string]string `toml:"control_groups"`
}

func LoadProfile(path string) (Profile, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, err
	}
	return ParseProfile(blob)
}

func ParseProfile(blob []byte) (Profile, error) {
	var p Profile
	if err := toml.Unmarshal(blob, &p); err != nil {
		return Profile{}, fmt.Errorf("parse import profile: %w", err)
	}
	return p, nil
}

func (p Profile) Params() (Params, error) {
	cols, err := p.Columns.Resolve()
	if err != nil {
		return Params{}, err
	}
	lookup := make(map[string]string, len(p.ControlCodes))
	for item, control := range p.ControlCodes {
		lookup[strings.TrimSpace(item)] = strings.TrimSpace(control)
	}
	return Params{
		Columns:      cols,
		MarkupPct:    decimal.NewFromFloat(p.MarkupPct),
		RebatePct:    decimal.NewFromFloat(p.RebatePct),
		ControlCodes: lookup,
	}, nil
}

// Mappings lists every control code the profile knows about, sorted by code.
// Codes assigned to items but missing a group label fall back to "unassigned".
func (p Profile) Mappings() []internal.ControlCodeMapping {
	groups := map[string]string{}
	for _, control := range p.ControlCodes {
		if c := strings.TrimSpace(control); c != "" {
			groups[c] = internal.UnassignedGroup
		}
	}
	for control, label := range p.ControlGroups {
		c := strings.TrimSpace(control)
		if c == "" {
			continue
		}
		if l := strings.TrimSpace(label); l != "" {
			groups[c] = l
		} else {
			groups[c] = internal.UnassignedGroup
		}
	}

	codes := make([]string, 0, len(groups))
	for c := range groups {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	markup := decimal.NewFromFloat(p.MarkupPct)
	rebate := decimal.NewFromFloat(p.RebatePct)
	out := make([]internal.ControlCodeMapping, 0, len(codes))
	for _, c := range codes {
		out = append(out, internal.ControlCodeMapping{ControlCode: c, ControlGroup: groups[c], MarkupPct: markup, RebatePct: rebate})
	}
	return out
}
