package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/cargaslack/carga/dashboard"
	"github.com/cargaslack/carga/models"
)

var (
	borderColor = lipgloss.Color("#2a3850")
	accentColor = lipgloss.Color("#8BC34A")
	errorColor  = lipgloss.Color("#e53935")
	mutedColor  = lipgloss.Color("#8b95a5")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func title(s string) string {
	return titleStyle.Render(s)
}

func statusText(status string) string {
	switch status {
	case string(models.LogSuccess), string(models.SiteActive):
		return lipgloss.NewStyle().Foreground(accentColor).Render(status)
	case string(models.LogError), string(models.SiteInactive):
		return lipgloss.NewStyle().Foreground(errorColor).Render(status)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor).Render(status)
	}
}

// formatBRL renders 1234.5 as "R$ 1.234,50".
func formatBRL(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := fmt.Sprintf("R$ %s,%02d", b.String(), cents%100)
	if neg {
		return "-" + out
	}
	return out
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("02/01/2006 15:04")
}

// logRow is one line of the log table. Rows without financials show the
// raw message in the investment column.
func logRow(log models.ProcessingLog, squad string) []string {
	created := log.CreatedAt
	row := []string{formatTime(&created), log.SiteName, squad, statusText(string(log.Status))}
	if f, ok := dashboard.ParseFinancials(log.Message); ok {
		return append(row, f.Investimento, f.Receita, f.ROAS, f.MC)
	}
	return append(row, log.Message, "", "", "")
}

var logHeaders = []string{"Data", "Site", "Squad", "Status", "Investimento", "Receita", "ROAS", "MC"}
