package core

import (
	"strings"
	"time"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

var fixedToday = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedToday }

// weekdayCounter counts Monday to Friday with no holidays, inclusive and signed.
type weekdayCounter struct{}

func (weekdayCounter) BusinessDays(start, end time.Time) int {
	sign := 1
	if end.Before(start) {
		start, end = end, start
		sign = -1
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			n++
		}
	}
	return sign * n
}

// fullDescription renders every vocabulary key with the same date.
func fullDescription(date string) string {
	var b strings.Builder
	for _, k := range DescriptionKeys() {
		b.WriteString(k.Phrase())
		b.WriteString(": ")
		b.WriteString(date)
		b.WriteString("\n")
	}
	return b.String()
}

func taskWith(id, description string) models.TaskRow {
	return models.TaskRow{ID: id, Name: "Task " + id, Site: "ACME", Description: description}
}
