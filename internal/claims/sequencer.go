// Package claims derives claim identifiers for the rows of a Claims sheet and
// checks its date columns.
//
// The derived identifiers replace four spreadsheet formula columns:
//
//	ClaimBatch      provider code (or 9999999 for NIL) + MM(received) + YY(encounter)
//	ClaimNoFnx      running count within a run of identical enrollee names
//	ClaimNo         member number + MM(received) + YY(encounter) + count
//	Correct_ClaimNo member number + DD(encounter) + MM(encounter) + YY(encounter) + count
//
// The running count starts at 1 on the first row, increments while the
// enrollee name repeats on consecutive rows, and resets to 1 whenever the
// name changes, even if that name appeared earlier in the sheet.
package claims

import (
	"strconv"
	"strings"
	"time"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/logger"
)

// NILProvider is the provider code used for claims without a provider
const NILProvider = "NIL"

// NILBatchPrefix replaces the NIL provider code in batch codes
const NILBatchPrefix = "9999999"

// SequenceColumns names the columns the sequencer reads. An empty name means
// the column is not present in the sheet, and every field that depends on it
// is left blank.
type SequenceColumns struct {
	ProviderCode      string
	EncounterDate     string
	ClaimReceivedDate string
	EnrolleeName      string
	MemberNo          string
}

// Sequencer computes claim identifiers in a single pass over a table
type Sequencer struct {
	layouts []string
	logger  logger.Logger
}

// NewSequencer creates a Sequencer that parses dates with layouts. A nil
// slice uses models.DefaultDateLayouts.
func NewSequencer(layouts []string) *Sequencer {
	if len(layouts) == 0 {
		layouts = models.DefaultDateLayouts
	}
	return &Sequencer{
		layouts: layouts,
		logger:  logger.WithComponent("sequencer"),
	}
}

type columnIndexes struct {
	provider, encounter, received, name, member int
}

func resolve(table *models.Table, name string) (int, error) {
	if name == "" {
		return -1, nil
	}
	return table.RequireColumn(name)
}

func (s *Sequencer) resolveColumns(table *models.Table, cols SequenceColumns) (columnIndexes, error) {
	var idx columnIndexes
	var err error
	if idx.provider, err = resolve(table, cols.ProviderCode); err != nil {
		return idx, err
	}
	if idx.encounter, err = resolve(table, cols.EncounterDate); err != nil {
		return idx, err
	}
	if idx.received, err = resolve(table, cols.ClaimReceivedDate); err != nil {
		return idx, err
	}
	if idx.name, err = resolve(table, cols.EnrolleeName); err != nil {
		return idx, err
	}
	if idx.member, err = resolve(table, cols.MemberNo); err != nil {
		return idx, err
	}
	return idx, nil
}

// Sequence returns one ClaimSequenceRow per table row, in row order
func (s *Sequencer) Sequence(table *models.Table, cols SequenceColumns) ([]models.ClaimSequenceRow, error) {
	idx, err := s.resolveColumns(table, cols)
	if err != nil {
		return nil, err
	}

	out := make([]models.ClaimSequenceRow, table.Len())
	blankDates := 0
	prevName := ""
	prevSeq := 0

	for row := 0; row < table.Len(); row++ {
		r := models.ClaimSequenceRow{Row: row}

		if idx.name >= 0 {
			name := table.Cell(row, idx.name)
			if row > 0 && strings.EqualFold(name, prevName) {
				r.Sequence = prevSeq + 1
			} else {
				r.Sequence = 1
			}
			prevName, prevSeq = name, r.Sequence
			r.ClaimNoFnx = strconv.Itoa(r.Sequence)
		}

		encounter, encOK := s.cellDate(table, row, idx.encounter)
		received, recOK := s.cellDate(table, row, idx.received)
		if (idx.encounter >= 0 && !encOK) || (idx.received >= 0 && !recOK) {
			blankDates++
		}

		if idx.provider >= 0 && encOK && recOK {
			prefix := strings.TrimSpace(table.Cell(row, idx.provider))
			if strings.EqualFold(prefix, NILProvider) {
				prefix = NILBatchPrefix
			}
			r.BatchCode = prefix + monthYear(received, encounter)
		}

		if idx.member >= 0 && idx.name >= 0 {
			member := strings.TrimSpace(table.Cell(row, idx.member))
			seq := strconv.Itoa(r.Sequence)
			if encOK && recOK {
				r.ClaimNo = member + monthYear(received, encounter) + seq
			}
			if encOK {
				r.CorrectClaimNo = member +
					models.TwoDigit(encounter.Day()) +
					models.TwoDigit(int(encounter.Month())) +
					models.LastTwoDigitsOfYear(encounter) +
					seq
			}
		}

		out[row] = r
	}

	s.logger.WithFields(logger.Fields{
		"rows":      table.Len(),
		"bad_dates": blankDates,
	}).Debug("Sequenced claim rows")

	return out, nil
}

func (s *Sequencer) cellDate(table *models.Table, row, col int) (time.Time, bool) {
	if col < 0 {
		return time.Time{}, false
	}
	return models.ParseDate(table.Cell(row, col), s.layouts)
}

// monthYear renders MM of the received date followed by YY of the encounter date
func monthYear(received, encounter time.Time) string {
	return models.TwoDigit(int(received.Month())) + models.LastTwoDigitsOfYear(encounter)
}
