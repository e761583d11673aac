package reconciler

import (
	"strings"

	"claims-reconciliation-service/internal/models"
)

// ExtractStats counts what happened to each row during extraction
type ExtractStats struct {
	RowsRead      int `json:"rows_read"`
	RowsKept      int `json:"rows_kept"`
	EmptySchedule int `json:"empty_schedule"`
	InvalidAmount int `json:"invalid_amount"`
}

// Dropped returns the number of rows that did not produce a record
func (s ExtractStats) Dropped() int {
	return s.EmptySchedule + s.InvalidAmount
}

// Extract projects table onto its schedule and amount columns. Rows with a
// blank schedule or an amount that does not parse are dropped and counted.
// A column missing from the header is an error and no records are returned.
func Extract(table *models.Table, scheduleCol, amountCol string) ([]models.ScheduleRecord, ExtractStats, error) {
	var stats ExtractStats

	scheduleIdx, err := table.RequireColumn(scheduleCol)
	if err != nil {
		return nil, stats, err
	}
	amountIdx, err := table.RequireColumn(amountCol)
	if err != nil {
		return nil, stats, err
	}

	records := make([]models.ScheduleRecord, 0, table.Len())
	for row := 0; row < table.Len(); row++ {
		stats.RowsRead++

		schedule := strings.TrimSpace(table.Cell(row, scheduleIdx))
		if schedule == "" {
			stats.EmptySchedule++
			continue
		}

		amount, err := models.ParseAmount(table.Cell(row, amountIdx))
		if err != nil {
			stats.InvalidAmount++
			continue
		}

		records = append(records, models.ScheduleRecord{ScheduleNumber: schedule, Amount: amount})
	}

	stats.RowsKept = len(records)
	return records, stats, nil
}
