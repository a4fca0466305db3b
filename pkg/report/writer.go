package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// DefaultHotThreshold is the share of the selection weight above which
// a row is highlighted.
const DefaultHotThreshold = 0.1

type Writer struct {
	out          io.Writer
	format       Format
	hotThreshold float64
	hot          *color.Color
	title        *color.Color
}

func NewWriter(out io.Writer, format Format) *Writer {
	return &Writer{
		out:          out,
		format:       format,
		hotThreshold: DefaultHotThreshold,
		hot:          color.New(color.FgRed, color.Bold),
		title:        color.New(color.FgGreen),
	}
}

// WithHotThreshold sets the share of the selection weight above which
// rows are highlighted. Zero disables highlighting.
func (w *Writer) WithHotThreshold(t float64) *Writer {
	w.hotThreshold = t
	return w
}

func (w *Writer) Write(r *Report) error {
	switch w.format {
	case FormatJSON:
		return w.writeJSON(r)
	default:
		return w.writeTable(r)
	}
}

func (w *Writer) writeJSON(r *Report) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func (w *Writer) writeTable(r *Report) error {
	if r.Title != "" {
		if _, err := w.title.Fprintln(w.out, r.Title); err != nil {
			return err
		}
	}
	table := tablewriter.NewWriter(w.out)
	table.SetHeader([]string{r.KeyName, "Self", "Self %", "Total", "Total %"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	for _, row := range r.Rows {
		cells := []string{
			row.Key,
			humanize.CommafWithDigits(row.Self, 2),
			percent(row.Self, r.Weight),
			humanize.CommafWithDigits(row.Total, 2),
			percent(row.Total, r.Weight),
		}
		if w.isHot(row, r.Weight) {
			for i := range cells {
				cells[i] = w.hot.Sprint(cells[i])
			}
		}
		table.Append(cells)
	}
	table.Render()
	return nil
}

func (w *Writer) isHot(row Row, weight float64) bool {
	return w.hotThreshold > 0 && weight > 0 && row.Total/weight >= w.hotThreshold
}

func percent(v, weight float64) string {
	if weight == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v/weight*100)
}
