package dashboard

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cargaslack/carga/models"
)

// Column is a sortable column of the log table.
type Column string

const (
	ColumnCreatedAt    Column = "created_at"
	ColumnSite         Column = "site"
	ColumnStatus       Column = "status"
	ColumnSquad        Column = "squad"
	ColumnInvestimento Column = "investimento"
	ColumnReceita      Column = "receita"
	ColumnROAS         Column = "roas"
	ColumnMC           Column = "mc"
)

// Columns lists every sortable column in display order.
var Columns = []Column{
	ColumnCreatedAt, ColumnSite, ColumnStatus, ColumnSquad,
	ColumnInvestimento, ColumnReceita, ColumnROAS, ColumnMC,
}

// ParseColumn validates a column name typed by a user.
func ParseColumn(s string) (Column, error) {
	c := Column(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Columns, c) {
		return c, nil
	}
	return "", fmt.Errorf("unknown column %q", s)
}

// Sorter is the header-click state of the log table.
type Sorter struct {
	Column Column
	Desc   bool
}

// NewSorter starts with the newest logs first.
func NewSorter() *Sorter {
	return &Sorter{Column: ColumnCreatedAt, Desc: true}
}

// Click selects column ascending, or flips the direction when column is
// already selected.
func (s *Sorter) Click(column Column) {
	if s.Column == column {
		s.Desc = !s.Desc
		return
	}
	s.Column = column
	s.Desc = false
}

// Sort returns a sorted copy of logs. Descending order is the exact
// reverse of ascending order, ties included.
func (s *Sorter) Sort(logs []models.ProcessingLog, resolver *SquadResolver) []models.ProcessingLog {
	sorted := slices.Clone(logs)
	cmp := s.compare(resolver)
	slices.SortStableFunc(sorted, cmp)
	if s.Desc {
		slices.Reverse(sorted)
	}
	return sorted
}

func (s *Sorter) compare(resolver *SquadResolver) func(a, b models.ProcessingLog) int {
	switch s.Column {
	case ColumnSite:
		return func(a, b models.ProcessingLog) int {
			return strings.Compare(strings.ToLower(a.SiteName), strings.ToLower(b.SiteName))
		}
	case ColumnStatus:
		return func(a, b models.ProcessingLog) int {
			return strings.Compare(string(a.Status), string(b.Status))
		}
	case ColumnSquad:
		return func(a, b models.ProcessingLog) int {
			return strings.Compare(
				strings.ToLower(resolver.Lookup(a.SiteName)),
				strings.ToLower(resolver.Lookup(b.SiteName)))
		}
	case ColumnInvestimento, ColumnReceita, ColumnROAS, ColumnMC:
		column := s.Column
		return func(a, b models.ProcessingLog) int {
			return compareFloat(financialKey(a, column), financialKey(b, column))
		}
	default:
		return func(a, b models.ProcessingLog) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
}

// financialKey is 0 for logs without financial values.
func financialKey(log models.ProcessingLog, column Column) float64 {
	f, ok := ParseFinancials(log.Message)
	if !ok {
		return 0
	}
	inv, rec, roas, mc := f.Numbers()
	switch column {
	case ColumnInvestimento:
		return inv
	case ColumnReceita:
		return rec
	case ColumnROAS:
		return roas
	default:
		return mc
	}
}
