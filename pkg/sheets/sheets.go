// Package sheets reads Google spreadsheets through their HTML view
// (https://docs.google.com/spreadsheets/d/<id>/htmlview). The sheet must be
// shared as "anyone with the link"; no API credentials are needed.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/cargaslack/carga/pkg/cache"
)

// HeaderMarker is the cell text that identifies the header row.
const HeaderMarker = "Data"

var (
	ErrTabNotFound = errors.New("sheet tab not found")
	ErrEmptySheet  = errors.New("sheet has no rows")
)

// Tab is one worksheet; Rows are raw cell texts, trimmed.
type Tab struct {
	ID   int
	Name string
	Rows [][]string
}

// Workbook is a parsed spreadsheet.
type Workbook struct {
	Tabs []Tab
}

// Tab returns the worksheet with the given title.
func (w *Workbook) Tab(name string) (*Tab, error) {
	for i := range w.Tabs {
		if w.Tabs[i].Name == name {
			return &w.Tabs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTabNotFound, name)
}

// TabAt returns the worksheet at position i, falling back to the first one
// when i is out of range.
func (w *Workbook) TabAt(i int) (*Tab, error) {
	if len(w.Tabs) == 0 {
		return nil, ErrEmptySheet
	}
	if i < 0 || i >= len(w.Tabs) {
		i = 0
	}
	return &w.Tabs[i], nil
}

// HeaderRowIndex is the first row holding a cell equal to HeaderMarker,
// or 0 when none does.
func (t *Tab) HeaderRowIndex() int {
	for i, row := range t.Rows {
		for _, cell := range row {
			if cell == HeaderMarker {
				return i
			}
		}
	}
	return 0
}

// Header returns the header row, or nil for an empty tab.
func (t *Tab) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[t.HeaderRowIndex()]
}

// LastRow returns the last row when there is at least one data row below
// the header.
func (t *Tab) LastRow() ([]string, bool) {
	if len(t.Rows) <= t.HeaderRowIndex()+1 {
		return nil, false
	}
	return t.Rows[len(t.Rows)-1], true
}

// DataRows counts the rows below the header.
func (t *Tab) DataRows() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows) - t.HeaderRowIndex() - 1
}

// Cell returns row[idx] or "" when the row is shorter.
func Cell(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

var spreadsheetID = regexp.MustCompile(`docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// HTMLViewURL rewrites any Google Sheets link (edit, view, gid fragment)
// into its htmlview form. Other URLs are returned unchanged.
func HTMLViewURL(sheetURL string) string {
	m := spreadsheetID.FindStringSubmatch(sheetURL)
	if m == nil {
		return sheetURL
	}
	return "https://docs.google.com/spreadsheets/d/" + m[1] + "/htmlview"
}

// Parse reads an htmlview page. Each worksheet is a div under
// #sheets-viewport whose id is the gid; tab titles come from #sheet-menu.
// Pages without that chrome are read table by table.
func Parse(r io.Reader) (*Workbook, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet html: %w", err)
	}

	names := make(map[string]string)
	doc.Find("#sheet-menu li").Each(func(_ int, li *goquery.Selection) {
		id, _ := li.Attr("id")
		names[strings.TrimPrefix(id, "sheet-button-")] = strings.TrimSpace(li.Text())
	})

	wb := &Workbook{}
	viewport := doc.Find("#sheets-viewport > div")
	if viewport.Length() > 0 {
		viewport.Each(func(i int, div *goquery.Selection) {
			gid, _ := div.Attr("id")
			name := names[gid]
			if name == "" {
				name = fmt.Sprintf("Sheet%d", i+1)
			}
			id, _ := strconv.Atoi(gid)
			wb.Tabs = append(wb.Tabs, Tab{ID: id, Name: name, Rows: tableRows(div.Find("table").First())})
		})
	} else {
		doc.Find("table").Each(func(i int, table *goquery.Selection) {
			wb.Tabs = append(wb.Tabs, Tab{ID: i, Name: fmt.Sprintf("Sheet%d", i+1), Rows: tableRows(table)})
		})
	}

	if len(wb.Tabs) == 0 {
		return nil, ErrEmptySheet
	}
	return wb, nil
}

// tableRows skips the row-number <th> and the column-letter <thead>.
// Fully empty rows are dropped, like the Sheets API does for trailing rows.
func tableRows(table *goquery.Selection) [][]string {
	var rows [][]string
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var (
			row   []string
			empty = true
		)
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			text := strings.TrimSpace(td.Text())
			if text != "" {
				empty = false
			}
			row = append(row, text)
			if span, err := strconv.Atoi(td.AttrOr("colspan", "1")); err == nil {
				for k := 1; k < span; k++ {
					row = append(row, "")
				}
			}
		})
		if !empty {
			rows = append(rows, row)
		}
	})
	return rows
}

// Client fetches and caches workbooks by URL.
type Client struct {
	http   *http.Client
	cache  *cache.TTLCache[string, *Workbook]
	logger *zap.Logger
}

// NewClient builds a Client; call Close to stop the cache sweeper.
func NewClient(timeout, ttl time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		cache:  cache.New[string, *Workbook](ttl, time.Minute),
		logger: logger,
	}
}

// Workbook returns the parsed spreadsheet behind sheetURL.
func (c *Client) Workbook(ctx context.Context, sheetURL string) (*Workbook, error) {
	target := HTMLViewURL(strings.TrimSpace(sheetURL))
	return c.cache.GetOrLoad(ctx, target, func(ctx context.Context) (*Workbook, error) {
		return c.fetch(ctx, target)
	})
}

// Fetch always reads sheetURL from the network and stores the result for
// later Workbook calls. The processing job uses it; a cached copy may be
// minutes old and a run must report the sheet as it is now.
func (c *Client) Fetch(ctx context.Context, sheetURL string) (*Workbook, error) {
	target := HTMLViewURL(strings.TrimSpace(sheetURL))
	wb, err := c.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	c.cache.Set(target, wb)
	return wb, nil
}

// Invalidate drops the cached copy of sheetURL.
func (c *Client) Invalidate(sheetURL string) {
	c.cache.Delete(HTMLViewURL(strings.TrimSpace(sheetURL)))
}

// Close releases the cache.
func (c *Client) Close() {
	c.cache.Close()
}

func (c *Client) fetch(ctx context.Context, target string) (*Workbook, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid sheet url: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch sheet: status HTTP %d", res.StatusCode)
	}

	wb, err := Parse(res.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sheet fetched",
		zap.String("url", target),
		zap.Int("tabs", len(wb.Tabs)),
		zap.Duration("took", time.Since(start)))
	return wb, nil
}
