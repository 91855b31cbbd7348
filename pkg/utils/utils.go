package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

const loanIDPrefix = "LOAN"

// AddMonths moves d forward by n calendar months. When the target month is
// shorter than d's day, the result is clamped to the last day of that month
// (Jan 31 + 1 month = Feb 28 or Feb 29).
func AddMonths(d civil.Date, n int) civil.Date {
	// normalise to the first day of the target month, then clamp the day
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(loc))
}

// DateToTime converts a date to midnight UTC, the representation used for DATE columns.
func DateToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// FormatLoanID renders the public loan identifier, e.g. LOAN001.
func FormatLoanID(id int64) string {
	return fmt.Sprintf("%s%03d", loanIDPrefix, id)
}

// ParseLoanID accepts either the public form (LOAN001) or the bare numeric id.
func ParseLoanID(s string) (int64, error) {
	raw := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), loanIDPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid loan id %q", s)
	}
	return id, nil
}

// DecimalFromString converts string to decimal.Decimal
func DecimalFromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}
