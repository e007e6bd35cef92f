package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/retreat-leads/internal/pipeline"
)

// WriteXLSX writes rows to a single "Leads" sheet with the same columns as
// WriteCSV. Score, count and rating columns are numeric cells.
func WriteXLSX(path string, rows []pipeline.LeadRow, perEvent bool) error {
	recs, err := records(rows, perEvent)
	if err != nil {
		return err
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := recs[0]
	for i, rec := range recs {
		row := sheet.AddRow()
		for j, v := range rec {
			cell := row.AddCell()
			if i > 0 && numericColumns[header[j]] && v != "" {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "xlsx: save file")
	}
	return nil
}
