// Package dashboard turns the processing-log feed into the figures the
// dashboard shows: per-site contribution margin, per-squad rollups and a
// grand total, plus the sortable log table.
//
// Financial values travel inside free-text log messages written by the
// processing job:
//
//	Inv: R$ 1.234,56 | Rec: R$ 2.000,00 | ROAS: 1,62 | MC: R$ 765,44
//
// Numbers use Brazilian formatting (period for thousands, comma for
// decimals). Anything that does not parse counts as zero.
package dashboard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cargaslack/carga/models"
)

// Financials holds the four raw values of a per-site success message.
type Financials struct {
	Investimento string
	Receita      string
	ROAS         string
	MC           string
}

// Numbers are the parsed values, in the same order as the fields.
func (f Financials) Numbers() (inv, rec, roas, mc float64) {
	return ParseBRNumber(f.Investimento), ParseBRNumber(f.Receita),
		ParseBRNumber(f.ROAS), ParseBRNumber(f.MC)
}

var financialPattern = regexp.MustCompile(`Inv:([^|]*)\|\s*Rec:([^|]*)\|\s*ROAS:([^|]*)\|\s*MC:([^|]*)`)

// ParseFinancials extracts the four values from message. Each value is the
// trimmed text up to the next pipe or the end of the message.
func ParseFinancials(message string) (Financials, bool) {
	m := financialPattern.FindStringSubmatch(message)
	if m == nil {
		return Financials{}, false
	}
	return Financials{
		Investimento: strings.TrimSpace(m[1]),
		Receita:      strings.TrimSpace(m[2]),
		ROAS:         strings.TrimSpace(m[3]),
		MC:           strings.TrimSpace(m[4]),
	}, true
}

// FormatFinancials is the inverse of ParseFinancials and is what the
// processing job writes.
func FormatFinancials(f Financials) string {
	return fmt.Sprintf("Inv: %s | Rec: %s | ROAS: %s | MC: %s", f.Investimento, f.Receita, f.ROAS, f.MC)
}

var blank = strings.NewReplacer("R$", "", " ", "", "\u00a0", "", "\t", "", ".", "")

// ParseBRNumber converts "R$ 1.234,56" to 1234.56. Unparsable input, NaN
// and infinities yield 0.
func ParseBRNumber(s string) float64 {
	cleaned := strings.ReplaceAll(blank.Replace(s), ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatRatio renders ROAS and MC figures with two decimals.
func FormatRatio(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// IsSquadSummary reports whether siteName is a "[SQUAD] name" pseudo row.
func IsSquadSummary(siteName string) bool {
	return strings.HasPrefix(siteName, models.SquadLogPrefix)
}

// SquadResolver maps a site name to the squad of the currently loaded site
// list.
type SquadResolver struct {
	squads     map[string]string
	unassigned string
}

// NewSquadResolver indexes sites by name. unassigned is the bucket label
// for sites that are unknown or have no squad ("Sem Squad").
func NewSquadResolver(sites []models.Site, unassigned string) *SquadResolver {
	squads := make(map[string]string, len(sites))
	for _, s := range sites {
		squads[s.Name] = s.SquadName
	}
	return &SquadResolver{squads: squads, unassigned: unassigned}
}

// Lookup returns the squad of siteName, or "" when there is none.
func (r *SquadResolver) Lookup(siteName string) string {
	return r.squads[siteName]
}

// Bucket returns the squad used for grouping, never "".
func (r *SquadResolver) Bucket(siteName string) string {
	if squad := r.Lookup(siteName); squad != "" {
		return squad
	}
	return r.unassigned
}
