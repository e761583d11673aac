package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// DefaultDateLayouts are tried in order when a sheet cell holds a date as
// text. Day-first layouts come before the month-first layout excelize uses
// when rendering built-in date formats.
var DefaultDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02-01-2006",
	"01-02-06",
	"1/2/06 15:04",
	"02-Jan-2006",
	"2-Jan-06",
	"02 Jan 2006",
	"January 2, 2006",
}

// Largest serial number a workbook can hold (9999-12-31)
const maxExcelSerial = 2958465

var amountReplacer = strings.NewReplacer(",", "", "$", "", "₦", "", "NGN", "", " ", "", "\u00a0", "")

// ParseAmount parses a monetary cell. Thousands separators, currency markers
// and surrounding space are stripped; "(123.45)" reads as a negative amount.
// Blank cells and values that are not finite numbers are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	original := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = amountReplacer.Replace(s)
	if s == "" || strings.EqualFold(s, "nan") || strings.Contains(strings.ToLower(s), "inf") {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s'", original)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", original, err)
	}

	if negative {
		d = d.Neg()
	}
	return d, nil
}

// IsBlankValue reports whether a cell should be treated as having no value
func IsBlankValue(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "NIL") || strings.EqualFold(s, "nan")
}

// IsNumeric reports whether s parses as a finite number
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// ParseDate parses a date cell using layouts, falling back to a workbook
// serial day number. Blank and NIL cells never parse.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if IsBlankValue(s) {
		return time.Time{}, false
	}
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial < 1 || serial > maxExcelSerial {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TwoDigit left-pads n to two digits
func TwoDigit(n int) string {
	return fmt.Sprintf("%02d", n)
}

// LastTwoDigitsOfYear returns the final two characters of the year
func LastTwoDigitsOfYear(t time.Time) string {
	year := fmt.Sprintf("%04d", t.Year())
	return year[len(year)-2:]
}
