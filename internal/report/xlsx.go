package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

// SheetName is the worksheet that holds the per-item rows.
const SheetName = "moran"

var xlsxHeader = []string{"year", "resolution", "status", "moran_i", "n", "edges", "error_kind", "reason", "path", "duration_ms"}

// WriteXLSX writes run as a workbook with one header row and one row per item.
func WriteXLSX(w io.Writer, run *model.Run) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range Rows(run) {
		row := sheet.AddRow()
		row.AddCell().SetInt(r.Year)
		row.AddCell().SetString(r.Resolution)
		row.AddCell().SetString(r.Status)
		if r.MoranI != nil {
			row.AddCell().SetFloat(*r.MoranI)
			row.AddCell().SetInt(r.N)
			row.AddCell().SetInt(r.Edges)
		} else {
			row.AddCell()
			row.AddCell()
			row.AddCell()
		}
		row.AddCell().SetString(r.ErrorKind)
		row.AddCell().SetString(r.Reason)
		row.AddCell().SetString(r.Path)
		row.AddCell().SetInt64(r.DurationMS)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}
