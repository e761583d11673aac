package claims

import (
	"strings"
	"time"

	"claims-reconciliation-service/internal/models"
)

// UnknownSchedule labels date errors on rows without a schedule number
const UnknownSchedule = "Unknown"

// DateCheckColumns names the columns read by CheckDates. ScheduleNumber may be
// empty.
type DateCheckColumns struct {
	ScheduleNumber    string
	EncounterDate     string
	ClaimReceivedDate string
}

// DateValidationError is a row whose encounter date is after the date the
// claim was received
type DateValidationError struct {
	Row               int       `json:"row"`
	ScheduleNumber    string    `json:"schedule_number"`
	EncounterDate     time.Time `json:"encounter_date"`
	ClaimReceivedDate time.Time `json:"claim_received_date"`
}

// DateErrorGroup counts identical date errors
type DateErrorGroup struct {
	ScheduleNumber    string    `json:"schedule_number"`
	EncounterDate     time.Time `json:"encounter_date"`
	ClaimReceivedDate time.Time `json:"claim_received_date"`
	Count             int       `json:"count"`
}

// CheckDates returns every row where the encounter date is after the claim
// received date. Rows where either date does not parse are skipped.
func CheckDates(table *models.Table, cols DateCheckColumns, layouts []string) ([]DateValidationError, error) {
	encIdx, err := table.RequireColumn(cols.EncounterDate)
	if err != nil {
		return nil, err
	}
	recIdx, err := table.RequireColumn(cols.ClaimReceivedDate)
	if err != nil {
		return nil, err
	}
	schedIdx, err := resolve(table, cols.ScheduleNumber)
	if err != nil {
		return nil, err
	}
	if len(layouts) == 0 {
		layouts = models.DefaultDateLayouts
	}

	var out []DateValidationError
	for row := 0; row < table.Len(); row++ {
		encounter, ok := models.ParseDate(table.Cell(row, encIdx), layouts)
		if !ok {
			continue
		}
		received, ok := models.ParseDate(table.Cell(row, recIdx), layouts)
		if !ok || !encounter.After(received) {
			continue
		}

		schedule := UnknownSchedule
		if schedIdx >= 0 {
			if s := strings.TrimSpace(table.Cell(row, schedIdx)); s != "" {
				schedule = s
			}
		}

		out = append(out, DateValidationError{
			Row:               row,
			ScheduleNumber:    schedule,
			EncounterDate:     encounter,
			ClaimReceivedDate: received,
		})
	}
	return out, nil
}

// GroupDateErrors collapses errors with the same schedule and calendar dates,
// in first-seen order
func GroupDateErrors(errs []DateValidationError) []DateErrorGroup {
	type key struct {
		schedule, encounter, received string
	}

	index := make(map[key]int)
	var groups []DateErrorGroup
	for _, e := range errs {
		k := key{e.ScheduleNumber, e.EncounterDate.Format("2006-01-02"), e.ClaimReceivedDate.Format("2006-01-02")}
		if i, ok := index[k]; ok {
			groups[i].Count++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, DateErrorGroup{
			ScheduleNumber:    e.ScheduleNumber,
			EncounterDate:     e.EncounterDate,
			ClaimReceivedDate: e.ClaimReceivedDate,
			Count:             1,
		})
	}
	return groups
}
