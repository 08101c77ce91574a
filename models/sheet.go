package models

// SheetInfo identifies one tab of a spreadsheet.
type SheetInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SheetHeader is a non-blank header cell and its zero-based column.
type SheetHeader struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// SheetHeaders answers POST /api/sheets/headers.
type SheetHeaders struct {
	SheetName    string        `json:"sheet_name,omitempty"`
	Sheets       []SheetInfo   `json:"sheets"`
	Headers      []SheetHeader `json:"headers"`
	TotalColumns int           `json:"total_columns"`
}

// IndexOf returns the column of the header called name.
func (h *SheetHeaders) IndexOf(name string) (int, bool) {
	for _, header := range h.Headers {
		if header.Name == name {
			return header.Index, true
		}
	}
	return 0, false
}

// SheetHeadersRequest is the body of both header endpoints.
type SheetHeadersRequest struct {
	SheetURL string `json:"sheet_url"`
}

// Metric names, in the order the processing job and the mapping test
// report them.
const (
	MetricInvestimento = "Investimento"
	MetricReceita      = "Receita"
	MetricROAS         = "ROAS"
	MetricMC           = "MC"
)

// MappingResult is the value a site's mapping reads for one metric.
type MappingResult struct {
	Metric     string `json:"metric"`
	ColumnName string `json:"column_name"`
	Index      int    `json:"index"`
	Value      string `json:"value"`
}

// MappingTest answers GET /api/sites/test/{name}.
type MappingTest struct {
	Site      string          `json:"site"`
	TotalRows int             `json:"total_rows"`
	LastRow   int             `json:"last_row"`
	Results   []MappingResult `json:"results"`
}
