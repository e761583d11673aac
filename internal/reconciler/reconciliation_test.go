package reconciler

import (
	"context"
	"math/rand"
	"testing"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rec(schedule, amount string) models.ScheduleRecord {
	return models.ScheduleRecord{ScheduleNumber: schedule, Amount: dec(amount)}
}

func TestExtract(t *testing.T) {
	table := models.NewTable("claims", []string{"SCH NO", "AMOUNT", "OTHER"}, [][]string{
		{" 100 ", "1,000.50", "x"},
		{"101", "300"},
		{"", "50"},
		{"   ", "75"},
		{"102", "n/a"},
		{"103", ""},
		{"Sch-7a", "12"},
		{"104"},
	})

	records, stats, err := Extract(table, "SCH NO", "AMOUNT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []models.ScheduleRecord{
		rec("100", "1000.50"),
		rec("101", "300"),
		rec("Sch-7a", "12"),
	}
	if len(records) != len(expected) {
		t.Fatalf("expected %d records, got %d: %v", len(expected), len(records), records)
	}
	for i, want := range expected {
		if records[i].ScheduleNumber != want.ScheduleNumber || !records[i].Amount.Equal(want.Amount) {
			t.Errorf("record %d = %v, want %v", i, records[i], want)
		}
	}

	if stats.RowsRead != 8 || stats.RowsKept != 3 {
		t.Errorf("expected 8 read and 3 kept, got %+v", stats)
	}
	if stats.EmptySchedule != 2 || stats.InvalidAmount != 3 {
		t.Errorf("expected 2 empty schedules and 3 invalid amounts, got %+v", stats)
	}
	if stats.Dropped() != 5 {
		t.Errorf("expected 5 dropped, got %d", stats.Dropped())
	}
}

func TestExtractNeverReturnsEmptySchedules(t *testing.T) {
	cells := []string{"", " ", "1", "A", "1,0", "x", "-2", "NaN", "inf", "\t"}
	rng := rand.New(rand.NewSource(7))

	var rows [][]string
	for i := 0; i < 500; i++ {
		rows = append(rows, []string{cells[rng.Intn(len(cells))], cells[rng.Intn(len(cells))]})
	}
	records, _, err := Extract(models.NewTable("t", []string{"s", "a"}, rows), "s", "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			t.Errorf("invalid record %v: %v", r, err)
		}
	}
}

func TestExtractMissingColumn(t *testing.T) {
	table := models.NewTable("finance", []string{"Claim Batch No/Sch No", "Claims_Advised_Amount"}, nil)

	tests := []struct {
		name        string
		scheduleCol string
		amountCol   string
	}{
		{"missing schedule", "SCH NO", "Claims_Advised_Amount"},
		{"missing amount", "Claim Batch No/Sch No", "AMOUNT"},
		{"schedule differs in case", "claim batch no/sch no", "Claims_Advised_Amount"},
		{"amount padded", "Claim Batch No/Sch No", " Claims_Advised_Amount "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, _, err := Extract(table, tt.scheduleCol, tt.amountCol)
			if err == nil {
				t.Fatalf("expected error")
			}
			if records != nil {
				t.Errorf("expected no partial result")
			}
			if !errors.IsCode(err, errors.CodeMissingColumn) {
				t.Errorf("expected missing column code, got %v", err)
			}
		})
	}
}

func TestExtractNeedsExactHeaders(t *testing.T) {
	table := models.NewTable("t", []string{"SCH", "AMT"}, [][]string{{"S1", "10"}})

	tests := []struct {
		name        string
		scheduleCol string
		amountCol   string
		wantErr     bool
	}{
		{"exact", "SCH", "AMT", false},
		{"lower schedule", "sch", "AMT", true},
		{"lower amount", "SCH", "amt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Extract(table, tt.scheduleCol, tt.amountCol)
			if tt.wantErr {
				if !errors.IsCode(err, errors.CodeMissingColumn) {
					t.Errorf("expected missing column code, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	records := []models.ScheduleRecord{
		rec("200", "10"),
		rec("100", "1.10"),
		rec("200", "5.5"),
		rec("100", "2.20"),
		rec("300", "0"),
	}

	got := Aggregate(records)
	want := map[string]string{"100": "3.30", "200": "15.5", "300": "0"}
	if len(got) != len(want) {
		t.Fatalf("expected %d totals, got %d", len(want), len(got))
	}
	for _, agg := range got {
		if !agg.TotalAmount.Equal(dec(want[agg.ScheduleNumber])) {
			t.Errorf("total for %s = %s, want %s", agg.ScheduleNumber, agg.TotalAmount, want[agg.ScheduleNumber])
		}
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	var records []models.ScheduleRecord
	for i := 0; i < 200; i++ {
		records = append(records, rec([]string{"A", "B", "C", "D"}[i%4], decimal.NewFromInt(int64(i)).Div(decimal.NewFromInt(7)).StringFixed(4)))
	}
	base := Aggregate(records)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]models.ScheduleRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Aggregate(shuffled)
		for i := range base {
			if got[i].ScheduleNumber != base[i].ScheduleNumber || !got[i].TotalAmount.Equal(base[i].TotalAmount) {
				t.Fatalf("trial %d: totals differ at %d: %v vs %v", trial, i, got[i], base[i])
			}
		}
	}
}

func TestMissing(t *testing.T) {
	a := []models.ScheduleRecord{rec("100", "1"), rec("101", "2"), rec("101", "3"), rec("102 ", "4")}
	b := []models.ScheduleRecord{rec("100", "9"), rec("103", "1"), rec("0100", "1")}

	got := Missing(a, b)
	if len(got) != 3 {
		t.Fatalf("expected 3 missing records, got %v", got)
	}
	if got[0].ScheduleNumber != "101" || got[1].ScheduleNumber != "101" || got[2].ScheduleNumber != "102 " {
		t.Errorf("unexpected missing records %v", got)
	}

	reverse := Missing(b, a)
	if len(reverse) != 2 || reverse[0].ScheduleNumber != "103" || reverse[1].ScheduleNumber != "0100" {
		t.Errorf("unexpected reverse missing records %v", reverse)
	}

	if self := Missing(a, a); len(self) != 0 {
		t.Errorf("expected no records missing from itself, got %v", self)
	}
}

func TestMissingPartitionsUnion(t *testing.T) {
	a := []models.ScheduleRecord{rec("1", "1"), rec("2", "1"), rec("3", "1"), rec("3", "2")}
	b := []models.ScheduleRecord{rec("3", "1"), rec("4", "1"), rec("5", "1")}

	union := map[string]bool{}
	for _, r := range append(append([]models.ScheduleRecord{}, a...), b...) {
		union[r.ScheduleNumber] = true
	}

	seen := map[string]int{}
	for _, s := range DistinctSchedules(Missing(a, b)) {
		seen[s]++
	}
	for _, s := range DistinctSchedules(Missing(b, a)) {
		seen[s]++
	}
	for _, row := range CommonRows(Reconcile(Aggregate(a), Aggregate(b))) {
		seen[row.ScheduleNumber]++
	}

	if len(seen) != len(union) {
		t.Fatalf("expected %d schedules, got %d", len(union), len(seen))
	}
	for s, n := range seen {
		if n != 1 {
			t.Errorf("schedule %s appears in %d partitions", s, n)
		}
	}
}

func TestReconcileScenario(t *testing.T) {
	claims := Aggregate([]models.ScheduleRecord{rec("100", "500.00"), rec("101", "300.00")})
	finance := Aggregate([]models.ScheduleRecord{rec("100", "500.00")})

	missing := Missing([]models.ScheduleRecord{rec("100", "500.00"), rec("101", "300.00")}, []models.ScheduleRecord{rec("100", "500.00")})
	if len(missing) != 1 || missing[0].ScheduleNumber != "101" || !missing[0].Amount.Equal(dec("300")) {
		t.Errorf("unexpected missing in finance %v", missing)
	}

	rows := Reconcile(claims, finance)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.ScheduleNumber != "100" || !first.ClaimsAmount.Decimal.Equal(dec("500")) ||
		!first.FinanceAmount.Decimal.Equal(dec("500")) || !first.Difference.Valid || !first.Difference.Decimal.IsZero() {
		t.Errorf("unexpected first row %+v", first)
	}

	second := rows[1]
	if second.ScheduleNumber != "101" || !second.ClaimsAmount.Decimal.Equal(dec("300")) {
		t.Errorf("unexpected second row %+v", second)
	}
	if second.FinanceAmount.Valid || second.Difference.Valid {
		t.Errorf("expected absent finance and difference, got %+v", second)
	}
}

func TestReconcileSortsAsStrings(t *testing.T) {
	claims := []models.AggregatedSchedule{
		{ScheduleNumber: "9", TotalAmount: dec("1")},
		{ScheduleNumber: "10", TotalAmount: dec("1")},
		{ScheduleNumber: "A1", TotalAmount: dec("1")},
	}
	finance := []models.AggregatedSchedule{
		{ScheduleNumber: "100", TotalAmount: dec("1")},
		{ScheduleNumber: "0", TotalAmount: dec("1")},
	}

	rows := Reconcile(claims, finance)
	want := []string{"0", "10", "100", "9", "A1"}
	for i, row := range rows {
		if row.ScheduleNumber != want[i] {
			t.Errorf("row %d = %s, want %s", i, row.ScheduleNumber, want[i])
		}
	}
}

func TestReconcileSymmetry(t *testing.T) {
	x := []models.AggregatedSchedule{
		{ScheduleNumber: "1", TotalAmount: dec("10")},
		{ScheduleNumber: "2", TotalAmount: dec("5.25")},
	}
	y := []models.AggregatedSchedule{
		{ScheduleNumber: "2", TotalAmount: dec("7")},
		{ScheduleNumber: "3", TotalAmount: dec("1")},
	}

	xy := Reconcile(x, y)
	yx := Reconcile(y, x)
	if len(xy) != len(yx) {
		t.Fatalf("row counts differ: %d vs %d", len(xy), len(yx))
	}

	for i := range xy {
		a, b := xy[i], yx[i]
		if a.ScheduleNumber != b.ScheduleNumber {
			t.Fatalf("row %d schedules differ", i)
		}
		if !sameNull(a.ClaimsAmount, b.FinanceAmount) || !sameNull(a.FinanceAmount, b.ClaimsAmount) {
			t.Errorf("row %d: amounts not swapped: %+v vs %+v", i, a, b)
		}
		if a.Difference.Valid != b.Difference.Valid {
			t.Errorf("row %d: presence pattern differs", i)
		}
		if a.Difference.Valid && !a.Difference.Decimal.Equal(b.Difference.Decimal.Neg()) {
			t.Errorf("row %d: difference not negated: %s vs %s", i, a.Difference.Decimal, b.Difference.Decimal)
		}
	}
}

func sameNull(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func TestClassifyTolerance(t *testing.T) {
	tests := []struct {
		name    string
		claims  string
		finance string
		want    Status
	}{
		{"exact", "100.00", "100.00", StatusMatched},
		{"half cent", "100.005", "100.00", StatusMatched},
		{"at tolerance", "100.00", "100.01", StatusMatched},
		{"two cents", "100.02", "100.00", StatusAmountMismatch},
		{"negative two cents", "99.98", "100.00", StatusAmountMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Reconcile(
				[]models.AggregatedSchedule{{ScheduleNumber: "1", TotalAmount: dec(tt.claims)}},
				[]models.AggregatedSchedule{{ScheduleNumber: "1", TotalAmount: dec(tt.finance)}},
			)
			if got := Classify(rows[0], models.DefaultTolerance); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}

	missing := Reconcile([]models.AggregatedSchedule{{ScheduleNumber: "1", TotalAmount: dec("1")}}, nil)
	if got := Classify(missing[0], models.DefaultTolerance); got != StatusMissingInFinance {
		t.Errorf("expected missing in finance, got %s", got)
	}
	extra := Reconcile(nil, []models.AggregatedSchedule{{ScheduleNumber: "1", TotalAmount: dec("1")}})
	if got := Classify(extra[0], models.DefaultTolerance); got != StatusMissingInClaims {
		t.Errorf("expected missing in claims, got %s", got)
	}
}

func TestSummarize(t *testing.T) {
	claims := Aggregate([]models.ScheduleRecord{
		rec("100", "500"), rec("101", "300"), rec("102", "200"), rec("102", "50"),
	})
	finance := Aggregate([]models.ScheduleRecord{
		rec("100", "500.004"), rec("102", "240"), rec("200", "99"),
	})

	s := Summarize(Reconcile(claims, finance), models.DefaultTolerance)

	if s.TotalClaimsSchedules != 3 || s.TotalFinanceSchedules != 3 || s.CommonSchedules != 2 {
		t.Errorf("unexpected schedule counts %+v", s)
	}
	if s.MatchingSchedules != 1 || s.AmountMismatches != 1 {
		t.Errorf("expected 1 matching and 1 mismatch, got %+v", s)
	}
	if s.Discrepancies != 2 {
		t.Errorf("expected 2 discrepancies, got %d", s.Discrepancies)
	}
	if s.MissingInFinance != 1 || s.MissingInClaims != 1 {
		t.Errorf("expected one missing schedule per side, got %+v", s)
	}
	if !s.TotalClaimsAmount.Equal(dec("1050")) {
		t.Errorf("total claims = %s", s.TotalClaimsAmount)
	}
	if !s.MatchingFinanceAmount.Equal(dec("740.004")) {
		t.Errorf("matching finance = %s", s.MatchingFinanceAmount)
	}
	if !s.TotalVariance.Equal(dec("309.996")) {
		t.Errorf("total variance = %s", s.TotalVariance)
	}
	if !s.MissingInFinanceTotal.Equal(dec("300")) {
		t.Errorf("missing in finance total = %s", s.MissingInFinanceTotal)
	}
	if !s.VariancePercent.Equal(dec("29.52")) {
		t.Errorf("variance percent = %s", s.VariancePercent)
	}
}

func TestServiceRun(t *testing.T) {
	claims := models.NewTable("claims", []string{"SCH NO", "AMOUNT CLAIMED"}, [][]string{
		{"100", "250"},
		{"100", "250"},
		{"101", "300.00"},
		{"", "1"},
		{"102", "1,000.00"},
	})
	finance := models.NewTable("finance", []string{"Claim Batch No/Sch No", "Claims_Advised_Amount"}, [][]string{
		{"100", "500"},
		{"102", "1,000.02"},
		{"103", "5"},
	})

	svc, err := NewService(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Run(context.Background(), Request{
		Claims:  Source{Table: claims, ScheduleColumn: "SCH NO", AmountColumn: "AMOUNT CLAIMED"},
		Finance: Source{Table: finance, ScheduleColumn: "Claim Batch No/Sch No", AmountColumn: "Claims_Advised_Amount"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.MissingInFinanceSchedules(); len(got) != 1 || got[0] != "101" {
		t.Errorf("unexpected missing in finance %v", got)
	}
	if got := result.MissingInClaimsSchedules(); len(got) != 1 || got[0] != "103" {
		t.Errorf("unexpected missing in claims %v", got)
	}
	if len(result.AmountMismatches) != 1 || result.AmountMismatches[0].ScheduleNumber != "102" {
		t.Errorf("unexpected mismatches %v", result.AmountMismatches)
	}
	if result.ClaimsStats.EmptySchedule != 1 {
		t.Errorf("expected one dropped claims row, got %+v", result.ClaimsStats)
	}
	if result.Status(result.Rows[0]) != StatusMatched {
		t.Errorf("expected schedule 100 to match, got %s", result.Status(result.Rows[0]))
	}
}

func TestServiceRunErrors(t *testing.T) {
	good := models.NewTable("t", []string{"s", "a"}, [][]string{{"1", "1"}})
	empty := models.NewTable("t", []string{"s", "a"}, [][]string{{"", "x"}})

	svc, _ := NewService(nil)

	tests := []struct {
		name string
		req  Request
		code errors.ErrorCode
	}{
		{
			name: "missing column",
			req:  Request{Claims: Source{good, "s", "nope"}, Finance: Source{good, "s", "a"}},
			code: errors.CodeMissingColumn,
		},
		{
			name: "no usable finance rows",
			req:  Request{Claims: Source{good, "s", "a"}, Finance: Source{empty, "s", "a"}},
			code: errors.CodeEmptyInput,
		},
		{
			name: "nil table",
			req:  Request{Claims: Source{nil, "s", "a"}, Finance: Source{good, "s", "a"}},
			code: errors.CodeMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tt.req)
			if !errors.IsCode(err, tt.code) {
				t.Errorf("expected code %s, got %v", tt.code, err)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Run(ctx, Request{Claims: Source{good, "s", "a"}, Finance: Source{good, "s", "a"}}); err == nil {
		t.Errorf("expected error for cancelled context")
	}
}

func TestConfigValidate(t *testing.T) {
	if _, err := NewService(&Config{Tolerance: dec("-0.01")}); err == nil {
		t.Errorf("expected negative tolerance to be rejected")
	}
	if _, err := NewService(&Config{Tolerance: decimal.Zero}); err != nil {
		t.Errorf("unexpected error for zero tolerance: %v", err)
	}
}
