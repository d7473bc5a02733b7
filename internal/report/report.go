// Package report renders batch runs for operators: an aligned table, JSON,
// YAML or an Excel workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatTable, FormatJSON, FormatYAML, FormatXLSX:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", eris.Errorf("report: unknown format %q (want table, json, yaml or xlsx)", s)
	}
}

// Row is the flat, serialisable view of one item.
type Row struct {
	Year       int      `json:"year" yaml:"year"`
	Resolution string   `json:"resolution" yaml:"resolution"`
	Status     string   `json:"status" yaml:"status"`
	MoranI     *float64 `json:"moran_i,omitempty" yaml:"moran_i,omitempty"`
	N          int      `json:"n,omitempty" yaml:"n,omitempty"`
	Edges      int      `json:"edges,omitempty" yaml:"edges,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
	Path       string   `json:"path" yaml:"path"`
	DurationMS int64    `json:"duration_ms" yaml:"duration_ms"`
}

// Document is the JSON/YAML shape of a run.
type Document struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Status     string    `json:"status" yaml:"status"`
	K          int       `json:"k" yaml:"k"`
	Strategy   string    `json:"strategy" yaml:"strategy"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Failed     int       `json:"failed" yaml:"failed"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Items      []Row     `json:"items" yaml:"items"`
}

// Rows flattens the items of run in order.
func Rows(run *model.Run) []Row {
	rows := make([]Row, 0, len(run.Items))
	for _, it := range run.Items {
		r := Row{
			Year:       it.Year,
			Resolution: it.Resolution,
			Status:     string(it.Status),
			ErrorKind:  it.ErrorKind,
			Reason:     it.Reason,
			Path:       it.Path,
			DurationMS: it.Duration.Milliseconds(),
		}
		if it.Statistic != nil {
			i := it.Statistic.I
			r.MoranI = &i
			r.N = it.Statistic.N
			r.Edges = it.Statistic.Edges
		}
		rows = append(rows, r)
	}
	return rows
}

// NewDocument builds the serialisable view of run.
func NewDocument(run *model.Run) Document {
	return Document{
		RunID:      run.ID,
		Status:     string(run.Status),
		K:          run.K,
		Strategy:   run.Strategy,
		Succeeded:  run.Succeeded,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
		Items:      Rows(run),
	}
}

// Write renders run to w in the given format.
func Write(w io.Writer, run *model.Run, format Format) error {
	if run == nil {
		return eris.New("report: nil run")
	}
	switch format {
	case FormatTable, "":
		return writeTable(w, run)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(NewDocument(run)), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(NewDocument(run)); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	case FormatXLSX:
		return WriteXLSX(w, run)
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

func writeTable(out io.Writer, run *model.Run) error {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "YEAR\tRESOLUTION\tSTATUS\tN\tEDGES\tMORAN_I\tDETAIL")
	_, _ = fmt.Fprintln(w, "----\t----------\t------\t-\t-----\t-------\t------")
	for _, r := range Rows(run) {
		n, edges, moranI := "", "", ""
		if r.MoranI != nil {
			n = p.Sprintf("%d", r.N)
			edges = p.Sprintf("%d", r.Edges)
			moranI = strconv.FormatFloat(*r.MoranI, 'f', 6, 64)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Year, r.Resolution, r.Status, n, edges, moranI, truncate(r.Reason, 60))
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "report: flush table")
	}

	if pv := NewPivot(run); len(pv.Resolutions) > 1 {
		_, _ = fmt.Fprintln(out)
		if err := pv.write(out); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(out, "\nrun %s: %d succeeded, %d skipped, %d failed (k=%d, %s)\n",
		truncateID(run.ID), run.Succeeded, run.Skipped, run.Failed, run.K, run.Strategy)
	return eris.Wrap(err, "report: write summary")
}

// Pivot is a year by resolution matrix of Moran's I values.
type Pivot struct {
	Years       []int
	Resolutions []string
	Values      map[int]map[string]float64
}

// NewPivot collects the successful items of run into a matrix.
func NewPivot(run *model.Run) Pivot {
	pv := Pivot{Values: make(map[int]map[string]float64)}
	years := make(map[int]bool)
	seenRes := make(map[string]bool)
	for _, it := range run.Items {
		if !years[it.Year] {
			years[it.Year] = true
			pv.Years = append(pv.Years, it.Year)
		}
		if !seenRes[it.Resolution] {
			seenRes[it.Resolution] = true
			pv.Resolutions = append(pv.Resolutions, it.Resolution)
		}
		if it.Statistic == nil {
			continue
		}
		if pv.Values[it.Year] == nil {
			pv.Values[it.Year] = make(map[string]float64)
		}
		pv.Values[it.Year][it.Resolution] = it.Statistic.I
	}
	sort.Ints(pv.Years)
	return pv
}

// Get returns the value at (year, resolution) and whether one exists.
func (pv Pivot) Get(year int, resolution string) (float64, bool) {
	v, ok := pv.Values[year][resolution]
	return v, ok
}

func (pv Pivot) write(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprint(w, "YEAR\t")
	for _, res := range pv.Resolutions {
		_, _ = fmt.Fprintf(w, "%s\t", res)
	}
	_, _ = fmt.Fprintln(w)
	for _, y := range pv.Years {
		_, _ = fmt.Fprintf(w, "%d\t", y)
		for _, res := range pv.Resolutions {
			if v, ok := pv.Get(y, res); ok {
				_, _ = fmt.Fprintf(w, "%.4f\t", v)
			} else {
				_, _ = fmt.Fprint(w, "-\t")
			}
		}
		_, _ = fmt.Fprintln(w)
	}
	return eris.Wrap(w.Flush(), "report: flush pivot")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
