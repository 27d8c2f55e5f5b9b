package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDateToken is returned when a month/day/year token fails validation.
var ErrInvalidDateToken = errors.New("invalid date token")

// dateTokenPattern matches MM/DD/YY or MM/DD/YYYY tokens on word boundaries.
var dateTokenPattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)

// TodayLayout is the shape of the date used to pad open-ended stages.
const TodayLayout = "01/02/06"

var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// IsValidDate reports whether token is a calendar-correct month/day/year date,
// windowing two-digit years into the current century.
func IsValidDate(token string) bool {
	return IsValidDateInYear(token, time.Now().Year())
}

// IsValidDateInYear is IsValidDate with an explicit current year.
func IsValidDateInYear(token string, currentYear int) bool {
	_, err := ParseDateToken(token, currentYear)
	return err == nil
}

// ParseDateToken validates token and returns the date it denotes at midnight UTC.
func ParseDateToken(token string, currentYear int) (time.Time, error) {
	groups := strings.Split(token, "/")
	if len(groups) != 3 {
		return time.Time{}, fmt.Errorf("%w %q: want month/day/year", ErrInvalidDateToken, token)
	}
	m, d, y := groups[0], groups[1], groups[2]
	if (len(y) != 2 && len(y) != 4) || len(d) > 2 || len(m) > 2 {
		return time.Time{}, fmt.Errorf("%w %q: bad group length", ErrInvalidDateToken, token)
	}

	month, okM := atoiDigits(m)
	day, okD := atoiDigits(d)
	year, okY := atoiDigits(y)
	if !okM || !okD || !okY {
		return time.Time{}, fmt.Errorf("%w %q: non-numeric group", ErrInvalidDateToken, token)
	}

	century := currentYear / 100 * 100
	if len(y) == 2 {
		year += century
	}
	if year < 1900 || year > century+999 {
		return time.Time{}, fmt.Errorf("%w %q: year %d out of range", ErrInvalidDateToken, token, year)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w %q: month %d out of range", ErrInvalidDateToken, token, month)
	}
	maxDay := daysInMonth[month-1]
	if month == 2 && IsLeapYear(year) {
		maxDay = 29
	}
	if day < 1 || day > maxDay {
		return time.Time{}, fmt.Errorf("%w %q: day %d out of range", ErrInvalidDateToken, token, day)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ExtractDateTokens returns every date-shaped substring of value, valid or not.
// The result is never nil.
func ExtractDateTokens(value string) []string {
	tokens := dateTokenPattern.FindAllString(value, -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

func atoiDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
