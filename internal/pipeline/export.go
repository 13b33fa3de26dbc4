package pipeline

import (
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "resumen"

// ExportPlanToXLSX writes one row per import row with its path and target, plus
// a summary sheet with the count per path.
func ExportPlanToXLSX(plan Plan, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "source", "code", "description", "quantity", "unit",
		"state", "path", "quoted_item_id", "quoted_item_code", "group",
		"catalog_id", "create_catalog_entry", "motive",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, a := range plan.Assignments {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		row := a.Verified()
		set(1, row.LineNo)
		set(2, string(row.Source))
		set(3, row.Code)
		set(4, row.Description)
		set(5, row.Quantity)
		set(6, row.Unit)
		set(7, string(row.State))
		set(8, string(a.Path()))
		if row.HasCatalogEntry() {
			set(12, row.CatalogRef.CatalogID)
		}

		switch v := a.(type) {
		case LinkedRow:
			set(9, v.Target.ID)
			set(10, v.Target.Code)
			set(11, v.Target.GroupName)
		case ReplacedRow:
			set(9, v.Target.ID)
			set(10, v.Target.Code)
			set(11, v.Target.GroupName)
			set(14, v.Motive)
		case CatalogRow:
			set(13, v.CreateEntry)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "create summary sheet")
	}
	counts := plan.Counts()
	for i, p := range []ImportPath{PathLinked, PathReplaced, PathCatalog, PathDirect} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = f.SetCellValue(summarySheet, cell, string(p))
		cell, _ = excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(summarySheet, cell, counts[p])
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}
	if err := f.SaveAs(outputPath); err != nil {
		return errors.Wrapf(err, "save %s", outputPath)
	}
	return nil
}
