package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ostello/internal/domain"
	"ostello/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter renders the occupancy calendar to an Excel file for the front
// desk: rooms down the side, days across the top, booked/total per cell.
type Exporter struct {
	store  domain.Store
	path   string
	logger *zerolog.Logger
}

func NewExporter(store domain.Store, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		store:  store,
		path:   path,
		logger: logger,
	}
}

// OccupancyReport writes the grid for [startDate, startDate+days) and returns
// the file path.
func (e *Exporter) OccupancyReport(ctx context.Context, startDate time.Time, days int) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	occupancy, err := e.store.GetOccupancy(ctx, startDate, days)
	if err != nil {
		return "", fmt.Errorf("error getting occupancy: %v", err)
	}

	rooms := e.store.Rooms()
	endDate := models.DayOf(startDate).AddDate(0, 0, days-1)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Occupazione"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Periodo: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, days)
	e.writeRoomHeaders(f, sheetName, rooms)
	e.writeOccupancyCells(f, sheetName, rooms, occupancy, dateCols)

	// Настраиваем ширину колонок
	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 14)
	}

	lastCol := getLastColumn(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("occupancy_%s_%ddays.xlsx", startDate.Format("2006-01-02"), days)
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, sheetName string, startDate time.Time, days int) map[string]int {
	col := 2
	currentDate := models.DayOf(startDate)
	dateCols := make(map[string]int)

	for i := 0; i < days; i++ {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		dateCols[models.DayKey(currentDate)] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateCols
}

func (e *Exporter) writeRoomHeaders(f *excelize.File, sheetName string, rooms []models.Room) {
	row := 3
	for _, room := range rooms {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%d)", room.Name, len(room.Beds)))

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *Exporter) writeOccupancyCells(f *excelize.File, sheetName string, rooms []models.Room, occupancy []models.OccupancyDay, dateCols map[string]int) {
	// Индексируем занятость по комнате и дню
	byRoomDay := make(map[int64]map[string]models.OccupancyDay)
	for _, day := range occupancy {
		key := models.DayKey(day.Day)
		if byRoomDay[day.RoomID] == nil {
			byRoomDay[day.RoomID] = make(map[string]models.OccupancyDay)
		}
		byRoomDay[day.RoomID][key] = day
	}

	row := 3
	for _, room := range rooms {
		for dateKey, col := range dateCols {
			cell, _ := excelize.CoordinatesToCellName(col, row)

			day, ok := byRoomDay[room.ID][dateKey]
			var cellValue string
			switch {
			case ok && day.Blocked:
				cellValue = "CHIUSO"
			case ok:
				cellValue = fmt.Sprintf("%d/%d", day.Booked, len(room.Beds))
			default:
				cellValue = fmt.Sprintf("0/%d", len(room.Beds))
			}

			_ = f.SetCellValue(sheetName, cell, cellValue)

			if styleID, err := e.cellStyle(f, day, len(room.Beds)); err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
		}
		row++
	}
}

// cellStyle tints the cell by pressure: green free, yellow partial, red full
// or closed.
func (e *Exporter) cellStyle(f *excelize.File, day models.OccupancyDay, totalBeds int) (int, error) {
	color := "#E2EFDA" // свободно
	switch {
	case day.Blocked || (totalBeds > 0 && day.Booked >= int64(totalBeds)):
		color = "#FCE4EC"
	case day.Booked > 0:
		color = "#FFF2CC"
	}

	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}

// getLastColumn возвращает букву последней колонки
func getLastColumn(colCount int) string {
	if colCount <= 0 {
		return "A"
	}
	name, err := excelize.ColumnNumberToName(colCount)
	if err != nil {
		return "Z"
	}
	return name
}
