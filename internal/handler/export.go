package handler

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"agritrace/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

var exportHeaders = []string{
	"ID", "Farmer ID", "Farmer", "Crop", "Category", "Season", "Farm Size (acres)",
	"Total", "Per Acre", "Seeds", "Fertilizer", "Pesticides", "Labor", "Irrigation",
	"Machinery", "Transportation", "Storage", "Other", "Submitted",
}

func exportRow(e models.Expense) []any {
	row := []any{
		e.ID, e.FarmerID, e.FarmerName, e.CropType, e.CropCategory, e.Season,
		e.FarmSize, e.TotalExpenses, e.ExpensePerAcre,
	}
	for _, v := range e.Expenses.Values() {
		row = append(row, v)
	}
	return append(row, e.SubmittedAt.Format("2006-01-02"))
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// ExportCSV downloads every expense as CSV.
func (h *ExpenseHandler) ExportCSV(c *gin.Context) {
	expenses, err := h.Ledger.GetAllExpenses(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to export expenses")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"expenses_%s.csv\"",
		time.Now().Format("20060102")))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// UTF-8 BOM so spreadsheet tools detect the encoding
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer.Write(exportHeaders)
	for _, e := range expenses {
		row := exportRow(e)
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		writer.Write(record)
	}
}

// ExportXLSX downloads every expense as an Excel workbook.
func (h *ExpenseHandler) ExportXLSX(c *gin.Context) {
	expenses, err := h.Ledger.GetAllExpenses(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err, "failed to export expenses")
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Expenses"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		fail(c, h.Logger, err, "failed to create worksheet")
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, title)
	}
	for idx, e := range expenses {
		cell, _ := excelize.CoordinatesToCellName(1, idx+2)
		row := exportRow(e)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			fail(c, h.Logger, err, "failed to export expenses")
			return
		}
	}

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "B", "C", 16)
	f.SetColWidth(sheetName, "D", "F", 14)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"expenses_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		h.Logger.Error("write xlsx", "error", err)
	}
}
