// Package workbook loads building-characteristics tables. One row per
// building; xlsx and csv sources are supported.
package workbook

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"community-load-profiles/internal/model"
	"community-load-profiles/pkg/utils"
)

// Read loads the workbook at path into BuildingRecords for the given stock.
// cols names the columns to read; only the ID column is mandatory. Building
// types listed in unitScaledTypes get their sampling weight multiplied by the
// units column (multifamily extrapolation).
func Read(path string, stock model.StockType, cols model.WorkbookColumns, unitScaledTypes []string) ([]model.BuildingRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &model.SchemaError{Path: path, Reason: "workbook is empty"}
	}

	header := rows[0]
	idx := func(name string) int {
		if name == "" {
			return -1
		}
		return utils.FindColumn(header, []string{name})
	}
	idCol := idx(cols.ID)
	if idCol < 0 {
		return nil, &model.SchemaError{Path: path, Column: cols.ID, Reason: "building identifier column not found"}
	}
	typeCol := idx(cols.BuildingType)
	stateCol := idx(cols.State)
	upgradeCol := idx(cols.Upgrade)
	weightCol := idx(cols.Weight)
	unitsCol := idx(cols.Units)

	scaled := make(map[string]bool, len(unitScaledTypes))
	for _, t := range unitScaledTypes {
		scaled[t] = true
	}

	records := make([]model.BuildingRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		cell := func(i int) string {
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rawID := cell(idCol)
		if rawID == "" {
			continue // skip blank rows
		}
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, &model.SchemaError{Path: path, Column: cols.ID, Reason: fmt.Sprintf("row %d: non-numeric id %q", n+2, rawID)}
		}

		rec := model.BuildingRecord{
			Stock:        stock,
			ID:           id,
			BuildingType: cell(typeCol),
			State:        cell(stateCol),
			Weight:       1.0,
		}
		if v := cell(upgradeCol); v != "" {
			u, err := strconv.Atoi(v)
			if err != nil {
				return nil, &model.SchemaError{Path: path, Column: cols.Upgrade, Reason: fmt.Sprintf("row %d: non-numeric upgrade %q", n+2, v)}
			}
			rec.Upgrade = u
		}
		if v := cell(weightCol); v != "" {
			w, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, &model.SchemaError{Path: path, Column: cols.Weight, Reason: fmt.Sprintf("row %d: non-numeric weight %q", n+2, v)}
			}
			rec.Weight = w
		}
		if scaled[rec.BuildingType] {
			if v := cell(unitsCol); v != "" {
				units, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return nil, &model.SchemaError{Path: path, Column: cols.Units, Reason: fmt.Sprintf("row %d: non-numeric units %q", n+2, v)}
				}
				if units > 0 {
					rec.Weight *= units
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return readCSV(path)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &model.SourceMissingError{Path: path, Err: err}
		}
		return nil, &model.SchemaError{Path: path, Reason: fmt.Sprintf("open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &model.SchemaError{Path: path, Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &model.SchemaError{Path: path, Reason: fmt.Sprintf("read sheet %s: %v", sheets[0], err)}
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &model.SourceMissingError{Path: path, Err: err}
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &model.SchemaError{Path: path, Reason: fmt.Sprintf("read csv: %v", err)}
	}
	return rows, nil
}
