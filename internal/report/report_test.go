package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

func sampleRun() *model.Run {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &model.Run{
		ID:         "0b5c3a9e-1111-4222-8333-944445555666",
		Status:     model.RunStatusComplete,
		K:          4,
		Strategy:   "exhaustive",
		CreatedAt:  created,
		FinishedAt: created.Add(3 * time.Second),
		Items: []model.Item{
			{Year: 2015, Resolution: "1km", Path: "/d/1km/2015.tif", Status: model.ItemSuccess,
				Statistic: &model.Statistic{I: 0.4123, N: 12345, Edges: 49380}, Duration: 1500 * time.Millisecond},
			{Year: 2016, Resolution: "1km", Path: "/d/1km/2016.tif", Status: model.ItemSkipped,
				ErrorKind: "not_found", Reason: "file not found"},
			{Year: 2015, Resolution: "9km", Path: "/d/9km/2015.tif", Status: model.ItemSuccess,
				Statistic: &model.Statistic{I: -0.05, N: 100, Edges: 400}},
			{Year: 2016, Resolution: "9km", Path: "/d/9km/2016.tif", Status: model.ItemFailed,
				ErrorKind: "degenerate_input", Reason: "moran: zero variance"},
		},
	}
	run.Tally()
	return run
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xlsx", FormatXLSX, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatTable))
	out := buf.String()

	assert.Contains(t, out, "YEAR")
	assert.Contains(t, out, "MORAN_I")
	assert.Contains(t, out, "0.412300")
	assert.Contains(t, out, "12,345", "counts use thousands separators")
	assert.Contains(t, out, "file not found")
	assert.Contains(t, out, "run 0b5c3a9e: 2 succeeded, 1 skipped, 1 failed (k=4, exhaustive)")

	// Two resolutions produce a pivot section.
	assert.Contains(t, out, "-0.0500")
	assert.Contains(t, out, "0.4123")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatJSON))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "complete", doc.Status)
	assert.Equal(t, 2, doc.Succeeded)
	require.Len(t, doc.Items, 4)
	require.NotNil(t, doc.Items[0].MoranI)
	assert.InDelta(t, 0.4123, *doc.Items[0].MoranI, 1e-12)
	assert.Nil(t, doc.Items[1].MoranI)
	assert.Equal(t, "not_found", doc.Items[1].ErrorKind)
	assert.Equal(t, int64(1500), doc.Items[0].DurationMS)
	assert.NotContains(t, buf.String(), "footprint")
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatYAML))
	assert.True(t, strings.HasPrefix(buf.String(), "run_id: 0b5c3a9e"))

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 4, doc.K)
	require.Len(t, doc.Items, 4)
	assert.Equal(t, "9km", doc.Items[3].Resolution)
	assert.Equal(t, "moran: zero variance", doc.Items[3].Reason)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleRun(), FormatXLSX))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 5)

	header := sheet.Rows[0]
	assert.Equal(t, "year", header.Cells[0].Value)
	assert.Equal(t, "moran_i", header.Cells[3].Value)

	first := sheet.Rows[1]
	assert.Equal(t, "2015", first.Cells[0].Value)
	assert.Equal(t, "1km", first.Cells[1].Value)
	assert.Equal(t, "success", first.Cells[2].Value)

	skipped := sheet.Rows[2]
	assert.Equal(t, "", skipped.Cells[3].Value)
	assert.Equal(t, "not_found", skipped.Cells[6].Value)
}

func TestWriteNilRun(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, nil, FormatJSON))
}

func TestPivot(t *testing.T) {
	pv := NewPivot(sampleRun())
	assert.Equal(t, []int{2015, 2016}, pv.Years)
	assert.Equal(t, []string{"1km", "9km"}, pv.Resolutions)

	v, ok := pv.Get(2015, "9km")
	require.True(t, ok)
	assert.InDelta(t, -0.05, v, 1e-12)

	_, ok = pv.Get(2016, "1km")
	assert.False(t, ok, "skipped items have no value")
	_, ok = pv.Get(1999, "1km")
	assert.False(t, ok)
}

func TestTruncate_RuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := "raster: /données/été/sm_2015.asc not found"
	got := truncate(long, 20)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 20, utf8.RuneCountInString(got))
	assert.Equal(t, "raster: /données/...", got)
}
