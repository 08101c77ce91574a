package dashboard

import (
	"slices"

	"github.com/cargaslack/carga/models"
)

// SiteMargin is one entry of the top-by-margin ranking.
type SiteMargin struct {
	Site       string
	Squad      string
	MC         float64
	Financials Financials
}

// TopByMargin ranks sites by parsed MC, highest first, and returns at most
// n entries. A site seen more than once keeps its first log; the feed is
// newest first, so that is the latest reading. Ties keep feed order.
func TopByMargin(logs []models.ProcessingLog, resolver *SquadResolver, n int) []SiteMargin {
	seen := make(map[string]bool)
	var ranked []SiteMargin

	for _, log := range logs {
		if IsSquadSummary(log.SiteName) || seen[log.SiteName] {
			continue
		}
		f, ok := ParseFinancials(log.Message)
		if !ok {
			continue
		}
		seen[log.SiteName] = true
		ranked = append(ranked, SiteMargin{
			Site:       log.SiteName,
			Squad:      resolver.Bucket(log.SiteName),
			MC:         ParseBRNumber(f.MC),
			Financials: f,
		})
	}

	slices.SortStableFunc(ranked, func(a, b SiteMargin) int {
		return compareFloat(b.MC, a.MC)
	})

	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// SquadRollup sums the financial logs of one squad.
type SquadRollup struct {
	Squad        string
	Investimento float64
	Receita      float64
	Sites        int
}

// ROAS is revenue over investment, 0 when nothing was invested.
func (r SquadRollup) ROAS() float64 {
	if r.Investimento == 0 {
		return 0
	}
	return r.Receita / r.Investimento
}

// MC is revenue minus investment.
func (r SquadRollup) MC() float64 {
	return r.Receita - r.Investimento
}

// SquadRollups groups every financial log by resolved squad. Sites counts
// distinct sites per squad; all logs of a site contribute to the sums.
// Result is ordered by revenue, highest first.
func SquadRollups(logs []models.ProcessingLog, resolver *SquadResolver) []SquadRollup {
	index := make(map[string]int)
	counted := make(map[[2]string]bool)
	var rollups []SquadRollup

	for _, log := range logs {
		if IsSquadSummary(log.SiteName) {
			continue
		}
		f, ok := ParseFinancials(log.Message)
		if !ok {
			continue
		}

		squad := resolver.Bucket(log.SiteName)
		i, ok := index[squad]
		if !ok {
			i = len(rollups)
			index[squad] = i
			rollups = append(rollups, SquadRollup{Squad: squad})
		}

		inv, rec, _, _ := f.Numbers()
		rollups[i].Investimento += inv
		rollups[i].Receita += rec

		pair := [2]string{squad, log.SiteName}
		if !counted[pair] {
			counted[pair] = true
			rollups[i].Sites++
		}
	}

	slices.SortStableFunc(rollups, func(a, b SquadRollup) int {
		return compareFloat(b.Receita, a.Receita)
	})
	return rollups
}

// GrandTotal sums the rollups. ok is false when there is nothing to sum.
func GrandTotal(rollups []SquadRollup) (total SquadRollup, ok bool) {
	if len(rollups) == 0 {
		return SquadRollup{}, false
	}
	for _, r := range rollups {
		total.Investimento += r.Investimento
		total.Receita += r.Receita
		total.Sites += r.Sites
	}
	return total, true
}

// Summary is everything the dashboard view renders above the log table.
type Summary struct {
	TotalSites     int
	ActiveSites    int
	RecentActivity int
	Squads         int
	Top            []SiteMargin
	Rollups        []SquadRollup
	Total          SquadRollup
	HasTotal       bool
}

// TopCount is the size of the margin ranking on the dashboard.
const TopCount = 3

// Compute builds the dashboard summary from the loaded sites and logs.
// unassigned labels sites without a squad.
func Compute(sites []models.Site, logs []models.ProcessingLog, unassigned string) Summary {
	resolver := NewSquadResolver(sites, unassigned)

	s := Summary{
		TotalSites:     len(sites),
		RecentActivity: len(logs),
		Top:            TopByMargin(logs, resolver, TopCount),
		Rollups:        SquadRollups(logs, resolver),
	}

	squads := make(map[string]struct{})
	for _, site := range sites {
		// Sites without a status predate the column and count as active.
		if site.Status == models.SiteActive || site.Status == "" {
			s.ActiveSites++
		}
		squad := site.SquadName
		if squad == "" {
			squad = unassigned
		}
		squads[squad] = struct{}{}
	}
	s.Squads = len(squads)
	s.Total, s.HasTotal = GrandTotal(s.Rollups)
	return s
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
