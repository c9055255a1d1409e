package utils

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"yell/internal/models"
)

const (
	entriesSheet = "Entries"
	infoSheet    = "Info"
)

// CreateEntriesWorkbook renders entries as an XLSX workbook with an
// entries sheet and a short info sheet.
func CreateEntriesWorkbook(entries []models.Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", entriesSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for i, header := range entryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(entriesSheet, cell, header); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(entryHeaders), 1)
	if err := f.SetCellStyle(entriesSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for rowIdx, e := range entries {
		row := entryRow(e)
		values := make([]interface{}, len(row))
		values[0] = e.ID
		for i := 1; i < len(row); i++ {
			values[i] = row[i]
		}

		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(entriesSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(entryHeaders))
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(entriesSheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	if err := createInfoSheet(f, entries); err != nil {
		return nil, err
	}

	index, err := f.GetSheetIndex(entriesSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func createInfoSheet(f *excelize.File, entries []models.Entry) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	metadata := [][2]interface{}{
		{"Report Generated", time.Now().UTC().Format(time.RFC3339)},
		{"Total Entries", len(entries)},
	}
	if len(entries) > 0 {
		// entries arrive newest first
		metadata = append(metadata, [2]interface{}{
			"ID Range", fmt.Sprintf("%d - %d", entries[len(entries)-1].ID, entries[0].ID),
		})
	}

	for i, kv := range metadata {
		row := i + 1
		if err := f.SetCellValue(infoSheet, fmt.Sprintf("A%d", row), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(infoSheet, fmt.Sprintf("B%d", row), kv[1]); err != nil {
			return err
		}
	}
	return nil
}
