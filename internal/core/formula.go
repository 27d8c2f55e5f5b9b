package core

import (
	"fmt"
	"strings"
	"time"
)

// FormulaResult maps task ID to output field to formula text.
type FormulaResult map[string]map[string]string

// FormulaFormatter renders BusinessDayCount rules as NETWORKDAYS.INTL formulas
// so the receiving workbook performs the arithmetic itself.
type FormulaFormatter struct {
	holidays string
	now      func() time.Time
}

// NewFormulaFormatter creates a FormulaFormatter. holidays is an array
// literal such as {"01/01/2025","12/25/2025"}.
func NewFormulaFormatter(holidays string, now func() time.Time) *FormulaFormatter {
	if now == nil {
		now = time.Now
	}
	return &FormulaFormatter{holidays: holidays, now: now}
}

// Formula returns the formula for one rule; "=0" when there is nothing to pair.
func (f *FormulaFormatter) Formula(rule BusinessDayCount, desc ParsedDescription) string {
	pairs := PairDates(rule, desc, f.now().Format(TodayLayout))
	if len(pairs) == 0 {
		return "=0"
	}
	terms := make([]string, len(pairs))
	for i, p := range pairs {
		// Weekend code 1 is Saturday+Sunday.
		terms[i] = fmt.Sprintf(`NETWORKDAYS.INTL("%s", "%s", 1, %s)`, p.Start, p.End, f.holidays)
	}
	return "=ABS(" + strings.Join(terms, "+") + ")"
}

// Formulas renders every BusinessDayCount rule for every non-excluded task.
func (f *FormulaFormatter) Formulas(parsed ParsedDescriptions, rules []AgeingRule, excluded map[string]struct{}) FormulaResult {
	out := make(FormulaResult, len(parsed))
	for taskID, desc := range parsed {
		if _, skip := excluded[taskID]; skip {
			continue
		}
		fields := make(map[string]string)
		for _, rule := range rules {
			if bdc, ok := rule.(BusinessDayCount); ok {
				fields[bdc.Field] = f.Formula(bdc, desc)
			}
		}
		out[taskID] = fields
	}
	return out
}
