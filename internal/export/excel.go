// Package export renders request listings to Excel files for admins.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

type Exporter struct {
	path   string
	logger *zerolog.Logger
}

func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// ExportRequests создает Excel файл со списком заявок
func (e *Exporter) ExportRequests(requests []*models.Request) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Requests"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"ID", "Number", "Client ID", "Service ID", "Location ID",
		"Assigned To", "Status", "Execution Date", "Completed At",
		"Created At", "Updated At",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, req := range requests {
		row := i + 2
		assignedTo := ""
		if req.AssignedToID != nil {
			assignedTo = fmt.Sprintf("%d", *req.AssignedToID)
		}
		completedAt := ""
		if req.CompletedAt != nil {
			completedAt = req.CompletedAt.Format("02.01.2006 15:04")
		}

		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), req.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), req.CustomID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), req.UserID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), req.ServiceID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), req.LocationID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), assignedTo)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), string(req.Status))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), req.ExecutionDateTime.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), completedAt)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), req.CreatedAt.Format("02.01.2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), req.UpdatedAt.Format("02.01.2006 15:04"))

		if styleID, err := e.statusStyle(f, req.Status); err == nil {
			cell := fmt.Sprintf("G%d", row)
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}

	// Настраиваем ширину колонок
	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "B", 14)
	_ = f.SetColWidth(sheetName, "C", "F", 12)
	_ = f.SetColWidth(sheetName, "G", "G", 14)
	_ = f.SetColWidth(sheetName, "H", "K", 18)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("requests_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("rows", len(requests)).Msg("requests export created")
	return filePath, nil
}

// statusStyle возвращает стиль ячейки статуса
func (e *Exporter) statusStyle(f *excelize.File, status models.Status) (int, error) {
	var color string
	switch status {
	case models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending, models.StatusOngoing:
		color = "#FFEB9C"
	case models.StatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}

	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
