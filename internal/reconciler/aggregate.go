package reconciler

import (
	"sort"

	"claims-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Aggregate sums amounts per distinct schedule number. Output is sorted by
// schedule number.
func Aggregate(records []models.ScheduleRecord) []models.AggregatedSchedule {
	totals := make(map[string]decimal.Decimal, len(records))
	for _, r := range records {
		totals[r.ScheduleNumber] = totals[r.ScheduleNumber].Add(r.Amount)
	}

	result := make([]models.AggregatedSchedule, 0, len(totals))
	for schedule, total := range totals {
		result = append(result, models.AggregatedSchedule{ScheduleNumber: schedule, TotalAmount: total})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduleNumber < result[j].ScheduleNumber
	})
	return result
}

// Missing returns every source record whose schedule number does not occur in
// target. Comparison is exact string equality; call it twice with the
// arguments swapped for both directions.
func Missing(source, target []models.ScheduleRecord) []models.ScheduleRecord {
	present := make(map[string]struct{}, len(target))
	for _, r := range target {
		present[r.ScheduleNumber] = struct{}{}
	}

	missing := make([]models.ScheduleRecord, 0)
	for _, r := range source {
		if _, ok := present[r.ScheduleNumber]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// DistinctSchedules returns the unique schedule numbers of records in first
// appearance order
func DistinctSchedules(records []models.ScheduleRecord) []string {
	seen := make(map[string]struct{}, len(records))
	var out []string
	for _, r := range records {
		if _, ok := seen[r.ScheduleNumber]; ok {
			continue
		}
		seen[r.ScheduleNumber] = struct{}{}
		out = append(out, r.ScheduleNumber)
	}
	return out
}

// SumAmounts totals the amounts of records
func SumAmounts(records []models.ScheduleRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
