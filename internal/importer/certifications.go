// Package importer reads certification exports from accounting into certification entries.
package importer

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"obra/internal"
	"obra/internal/util"
)

type Options struct {
	// Encoding is "windows-1252" (default) or "utf-8".
	Encoding  string
	Delimiter rune
}

type Stats struct {
	Read    int
	Skipped int
	Coerced int
}

var (
	codeHeaders   = []string{"código control", "codigo control", "cod. control", "control_code", "control code"}
	amountHeaders = []string{"importe certificado", "certified_amount_period", "importe", "certificado", "amount"}
)

// ReadCertifications parses a delimited certification export. Columns are found
// by header name; rows without a control code or with an unparsable amount are
// skipped and negative amounts become 0.
func ReadCertifications(r io.Reader, opts Options) ([]internal.CertificationEntry, Stats, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	switch strings.ToLower(strings.TrimSpace(opts.Encoding)) {
	case "", "windows-1252", "cp1252", "latin1":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	case "utf-8", "utf8":
	default:
		return nil, Stats{}, fmt.Errorf("unsupported encoding: %s", opts.Encoding)
	}

	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(opts.Delimiter),
		dataframe.WithLazyQuotes(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if err := df.Error(); err != nil {
		return nil, Stats{}, fmt.Errorf("read csv: %w", err)
	}

	codeCol := findColumn(df.Names(), codeHeaders)
	amountCol := findColumn(df.Names(), amountHeaders)
	if codeCol == "" || amountCol == "" {
		return nil, Stats{}, fmt.Errorf("missing control code or amount column in %v", df.Names())
	}

	codes := df.Col(codeCol)
	amounts := df.Col(amountCol)
	var stats Stats
	out := make([]internal.CertificationEntry, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		stats.Read++
		code := cellString(codes.Elem(i))
		amount, ok := util.ParseDecimal(cellString(amounts.Elem(i)))
		if code == "" || !ok {
			stats.Skipped++
			continue
		}
		if amount.IsNegative() {
			amount = decimal.Zero
			stats.Coerced++
		}
		out = append(out, internal.CertificationEntry{ControlCode: code, CertifiedAmountPeriod: amount})
	}
	return out, stats, nil
}

func cellString(e series.Element) string {
	if e.IsNA() {
		return ""
	}
	return strings.TrimSpace(e.String())
}

// findColumn returns the first column whose folded header equals a probe, then
// the first that contains one.
func findColumn(names []string, probes []string) string {
	folded := make([]string, len(names))
	for i, n := range names {
		folded[i] = util.Fold(util.NormalizeSpaces(strings.TrimPrefix(n, "\uFEFF")))
	}
	for _, p := range probes {
		for i, n := range folded {
			if n == p {
				return names[i]
			}
		}
	}
	for _, p := range probes {
		for i, n := range folded {
			if strings.Contains(n, p) {
				return names[i]
			}
		}
	}
	return ""
}
