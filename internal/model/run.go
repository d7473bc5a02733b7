package model

import "time"

// RunStatus represents the final state of a batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
)

// ItemStatus is the outcome of one (year, resolution) raster.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// Item records the outcome of one raster in a batch run.
type Item struct {
	Year       int           `json:"year" yaml:"year"`
	Resolution string        `json:"resolution" yaml:"resolution"`
	Path       string        `json:"path" yaml:"path"`
	Status     ItemStatus    `json:"status" yaml:"status"`
	ErrorKind  string        `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Reason     string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Statistic  *Statistic    `json:"statistic,omitempty" yaml:"statistic,omitempty"`
	Footprint  []byte        `json:"-" yaml:"-"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Run is one batch invocation over a plan of rasters.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Status     RunStatus `json:"status" yaml:"status"`
	K          int       `json:"k" yaml:"k"`
	Strategy   string    `json:"strategy" yaml:"strategy"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Failed     int       `json:"failed" yaml:"failed"`
	Items      []Item    `json:"items,omitempty" yaml:"items,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Tally recomputes the per-status counters from Items.
func (r *Run) Tally() {
	r.Succeeded, r.Skipped, r.Failed = 0, 0, 0
	for _, it := range r.Items {
		switch it.Status {
		case ItemSuccess:
			r.Succeeded++
		case ItemSkipped:
			r.Skipped++
		case ItemFailed:
			r.Failed++
		}
	}
}
