package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var (
	claimsHeader = []string{
		"SCH NO", "HOD AMOUNT", "PROVIDER CODE", "ENCOUNTER DATE (DD/MM/YYYY)",
		"DATE CLAIM RECEIVED", "ENROLLEE NAME", "MEMBER NO",
	}
	financeHeader  = []string{"Claim Batch No/Sch No", "Claims_Advised_Amount"}
	appealsHeader  = []string{"S/N", "HOSPITAL NAME", "BATCH NUMBER", "CLAIM TYPE", "AMOUNT RECOMMENDED FOR PAYMENT (N)", "NARRATION"}
	enrolleeNames  = []string{"Ada Obi", "Bola Ade", "Chi Eze", "Dayo Bello", "Efe Okoro", "Funmi Lawal", "Gbenga Musa", "Halima Sani"}
	providerCodes  = []string{"LAG/0001/P", "ABJ/0107/P", "KAN/0042/S", "OYO/0230/P", "RIV/0018/S"}
	hospitalNames  = []string{"General Hospital", "City Clinic", "Lagoon Hospital", "Reddington", "St. Nicholas"}
	dayFirstLayout = "02/01/2006"
)

// ScenarioGenerator creates weekly report workbooks with known discrepancies
type ScenarioGenerator struct {
	Seed      int64
	OutputDir string
	Schedules int
	rng       *rand.Rand
}

func main() {
	var (
		outputDir = flag.String("output-dir", "generated_scenarios", "Output directory for scenario files")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
		scenario  = flag.String("scenario", "all", "Scenario to generate: all, weekly, dates, appeals, csv")
		schedules = flag.Int("schedules", 20, "Number of Claims schedules in the weekly scenario")
	)
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	generator := &ScenarioGenerator{
		Seed:      *seed,
		OutputDir: *outputDir,
		Schedules: *schedules,
		rng:       rand.New(rand.NewSource(*seed)),
	}

	var err error
	switch *scenario {
	case "weekly":
		err = generator.GenerateWeeklyScenario()
	case "dates":
		err = generator.GenerateDateErrorScenario()
	case "appeals":
		err = generator.GenerateAppealsScenario()
	case "csv":
		err = generator.GenerateCSVScenario()
	case "all":
		err = generator.GenerateAllScenarios()
	default:
		log.Fatalf("Unknown scenario: %s", *scenario)
	}
	if err != nil {
		log.Fatalf("Failed to generate %s scenario: %v", *scenario, err)
	}

	fmt.Printf("Generated scenarios in %s\n", *outputDir)
	fmt.Printf("Seed used: %d\n", *seed)
}

// GenerateAllScenarios generates all predefined scenarios
func (sg *ScenarioGenerator) GenerateAllScenarios() error {
	fmt.Println("Generating all scenarios...")
	for _, gen := range []func() error{
		sg.GenerateWeeklyScenario,
		sg.GenerateDateErrorScenario,
		sg.GenerateAppealsScenario,
		sg.GenerateCSVScenario,
	} {
		if err := gen(); err != nil {
			return err
		}
	}
	return nil
}

// GenerateWeeklyScenario writes a Claims and a Finance workbook. Every fifth
// schedule is left out of Finance, every seventh is advised a different
// amount, and Finance carries two schedules Claims never reported.
func (sg *ScenarioGenerator) GenerateWeeklyScenario() error {
	fmt.Println("Generating weekly reconciliation scenario...")

	base := time.Date(2024, 8, 5, 0, 0, 0, 0, time.UTC)
	claims := [][]string{claimsHeader}
	finance := [][]string{financeHeader}

	for i := 1; i <= sg.Schedules; i++ {
		schedule := fmt.Sprintf("SCH%04d", i)
		total := decimal.Zero
		for c := 0; c < 1+sg.rng.Intn(4); c++ {
			amount := sg.amount(5000, 250000)
			total = total.Add(amount)
			encounter := base.AddDate(0, 0, -sg.rng.Intn(30))
			received := encounter.AddDate(0, 0, 1+sg.rng.Intn(10))
			claims = append(claims, sg.claimRow(schedule, amount, encounter, received))
		}

		switch {
		case i%5 == 0:
			continue
		case i%7 == 0:
			total = total.Add(sg.amount(100, 5000))
		}
		finance = append(finance, []string{schedule, total.StringFixed(2)})
	}
	finance = append(finance,
		[]string{fmt.Sprintf("SCH%04d", sg.Schedules+1), sg.amount(1000, 50000).StringFixed(2)},
		[]string{fmt.Sprintf("SCH%04d", sg.Schedules+2), sg.amount(1000, 50000).StringFixed(2)},
	)

	if err := sg.writeWorkbook("weekly_claims.xlsx", "Sheet1", 1, claims); err != nil {
		return err
	}
	return sg.writeWorkbook("weekly_finance.xlsx", "WEEKLY REPORT", 1, finance)
}

// GenerateDateErrorScenario writes a Claims workbook where the encounter
// date of some claims is after the date the claim was received
func (sg *ScenarioGenerator) GenerateDateErrorScenario() error {
	fmt.Println("Generating date validation scenario...")

	received := time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)
	rows := [][]string{
		claimsHeader,
		sg.claimRow("SCH0101", sg.amount(1000, 9000), received.AddDate(0, 0, -3), received),
		sg.claimRow("SCH0101", sg.amount(1000, 9000), received.AddDate(0, 0, 2), received),
		sg.claimRow("SCH0101", sg.amount(1000, 9000), received.AddDate(0, 0, 2), received),
		sg.claimRow("SCH0102", sg.amount(1000, 9000), received, received),
		sg.claimRow("SCH0103", sg.amount(1000, 9000), received.AddDate(0, 1, 0), received),
	}
	return sg.writeWorkbook("date_errors_claims.xlsx", "Sheet1", 1, rows)
}

// GenerateAppealsScenario writes appeals workbooks in the PAYMENT SUMMARY
// layout and a Finance weekly report. Schedule 203 is absent from Finance and
// Schedule 202 is advised short.
func (sg *ScenarioGenerator) GenerateAppealsScenario() error {
	fmt.Println("Generating appeals scenario...")

	dir := filepath.Join(sg.OutputDir, "appeals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	finance := [][]string{financeHeader}
	for _, schedule := range []int{201, 202, 203} {
		rows := [][]string{{"PAYMENT SUMMARY"}, appealsHeader}
		total := decimal.Zero
		for n := 1; n <= 2+sg.rng.Intn(4); n++ {
			amount := sg.amount(10000, 400000)
			total = total.Add(amount)
			rows = append(rows, []string{
				fmt.Sprint(n),
				hospitalNames[sg.rng.Intn(len(hospitalNames))],
				fmt.Sprintf("B%d-%02d", schedule, n),
				"APPEAL",
				amount.StringFixed(2),
				"Re-reviewed",
			})
		}
		rows = append(rows, []string{"TOTAL", "", "", "", total.StringFixed(2), ""})

		name := filepath.Join("appeals", fmt.Sprintf("Schedule %d.xlsx", schedule))
		if err := sg.writeWorkbook(name, "PAYMENT SUMMARY", 2, rows); err != nil {
			return err
		}

		switch schedule {
		case 202:
			total = total.Sub(decimal.NewFromInt(2500))
		case 203:
			continue
		}
		finance = append(finance, []string{fmt.Sprintf("SCH %d", schedule), total.StringFixed(2)})
	}
	return sg.writeWorkbook(filepath.Join("appeals", "finance_weekly.xlsx"), "WEEKLY REPORT", 1, finance)
}

// GenerateCSVScenario writes small CSV reports with formatted amounts
func (sg *ScenarioGenerator) GenerateCSVScenario() error {
	fmt.Println("Generating CSV scenario...")

	day := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	claims := [][]string{
		claimsHeader,
		sg.claimRow("SCH0301", decimal.RequireFromString("1500.50"), day, day.AddDate(0, 0, 4)),
		sg.claimRow("SCH0301", decimal.RequireFromString("499.50"), day, day.AddDate(0, 0, 4)),
		sg.claimRow("sch0302", decimal.RequireFromString("10000"), day, day.AddDate(0, 0, 2)),
	}
	claims[1][1] = "₦1,500.50"
	finance := [][]string{
		financeHeader,
		{"SCH0301", "2,000.00"},
		{" SCH0302 ", "9999.995"},
		{"", "10"},
	}

	if err := sg.writeCSV("claims.csv", claims); err != nil {
		return err
	}
	return sg.writeCSV("finance.csv", finance)
}

func (sg *ScenarioGenerator) claimRow(schedule string, amount decimal.Decimal, encounter, received time.Time) []string {
	member := sg.rng.Intn(len(enrolleeNames))
	return []string{
		schedule,
		amount.StringFixed(2),
		providerCodes[sg.rng.Intn(len(providerCodes))],
		encounter.Format(dayFirstLayout),
		received.Format(dayFirstLayout),
		enrolleeNames[member],
		fmt.Sprintf("NHIS/%05d/A", 100+member),
	}
}

func (sg *ScenarioGenerator) amount(min, max int64) decimal.Decimal {
	kobo := min*100 + sg.rng.Int63n((max-min)*100)
	return decimal.New(kobo, -2)
}

// writeWorkbook writes rows to a single-sheet workbook. Rows from headerRow
// on are written as numbers where they parse, like a report exported by hand.
func (sg *ScenarioGenerator) writeWorkbook(filename, sheet string, headerRow int, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}

	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
			if i >= headerRow {
				if d, err := decimal.NewFromString(v); err == nil {
					values[j] = d.InexactFloat64()
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	path := filepath.Join(sg.OutputDir, filename)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	fmt.Printf("  wrote %s (%d rows)\n", path, len(rows)-headerRow)
	return nil
}

func (sg *ScenarioGenerator) writeCSV(filename string, data [][]string) error {
	path := filepath.Join(sg.OutputDir, filename)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("  wrote %s (%d rows)\n", path, len(data)-1)
	return nil
}
