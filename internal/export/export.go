package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"splashpark/internal/domain"
	"splashpark/internal/models"
)

const sheetName = "Schedule"

const (
	statusIconConfirmed = "✅"
	statusIconPending   = "⏳"
	statusIconCancelled = "❌"
)

// Exporter renders the booking schedule as an xlsx grid: zones as rows,
// dates as columns, one cell per zone/day.
type Exporter struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, logger *zerolog.Logger) *Exporter {
	return &Exporter{repo: repo, logger: logger}
}

// WriteSchedule builds the workbook for [from, to] and writes it to w.
func (e *Exporter) WriteSchedule(ctx context.Context, w io.Writer, from, to string) error {
	f, err := e.buildSchedule(ctx, from, to)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (e *Exporter) buildSchedule(ctx context.Context, from, to string) (*excelize.File, error) {
	startDate, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, fmt.Errorf("invalid from date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, fmt.Errorf("invalid to date: %w", err)
	}
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("to date precedes from date")
	}

	dailyBookings, err := e.repo.GetDailyBookings(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	zones := e.repo.GetZones()

	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Schedule: %s to %s", from, to))

	dateCols := e.writeDateHeaders(f, startDate, endDate)
	e.writeZoneHeaders(f, zones)
	e.writeBookingCells(f, dailyBookings, zones, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 22)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

func (e *Exporter) writeDateHeaders(f *excelize.File, startDate, endDate time.Time) map[string]int {
	col := 2
	dateCols := make(map[string]int)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, d.Format("Mon 02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		dateCols[d.Format("2006-01-02")] = col
		col++
	}
	return dateCols
}

func (e *Exporter) writeZoneHeaders(f *excelize.File, zones []*models.Zone) {
	zoneStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 3
	for _, zone := range zones {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%02d:00-%02d:00)", zone.Name, zone.OpenHour, zone.CloseHour))
		_ = f.SetCellStyle(sheetName, cell, cell, zoneStyle)
		row++
	}
}

func (e *Exporter) writeBookingCells(f *excelize.File, dailyBookings map[string][]*models.Booking, zones []*models.Zone, dateCols map[string]int) {
	for dateKey, bookings := range dailyBookings {
		col, ok := dateCols[dateKey]
		if !ok {
			continue
		}

		byZone := make(map[int64][]*models.Booking)
		for _, booking := range bookings {
			byZone[booking.ZoneID] = append(byZone[booking.ZoneID], booking)
		}

		row := 3
		for _, zone := range zones {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			zoneBookings := byZone[zone.ID]

			var cellValue string
			active := 0
			for _, booking := range zoneBookings {
				if booking.Status != models.StatusCancelled {
					active++
				}
				cellValue += fmt.Sprintf("%s %s %s (%.1fh) %s\n",
					statusIcon(booking.Status), booking.StartLabel(), booking.CustomerName,
					booking.DurationHours, booking.CustomerPhone)
			}
			if cellValue == "" {
				cellValue = "Free"
			} else {
				cellValue += fmt.Sprintf("\nActive: %d", active)
			}

			_ = f.SetCellValue(sheetName, cell, cellValue)
			if styleID, err := cellStyle(f, zoneBookings); err == nil {
				_ = f.SetCellStyle(sheetName, cell, cell, styleID)
			}
			row++
		}
	}
}

func statusIcon(status string) string {
	switch status {
	case models.StatusConfirmed:
		return statusIconConfirmed
	case models.StatusPending:
		return statusIconPending
	case models.StatusCancelled:
		return statusIconCancelled
	default:
		return "❓"
	}
}

func cellStyle(f *excelize.File, bookings []*models.Booking) (int, error) {
	wrap := &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true}

	hasPending := false
	hasActive := false
	for _, booking := range bookings {
		switch booking.Status {
		case models.StatusPending:
			hasPending = true
			hasActive = true
		case models.StatusConfirmed:
			hasActive = true
		}
	}

	color := "#FFFFFF"
	switch {
	case hasPending:
		color = "#FFEB9C"
	case hasActive:
		color = "#C6EFCE"
	}

	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: wrap,
	})
}
