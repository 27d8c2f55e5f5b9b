package core

import (
	"fmt"
	"strconv"
	"time"
)

// BusinessDayCounter counts working days between two dates. Implementations
// follow NETWORKDAYS.INTL: both ends are included and the count is negative
// when end precedes start.
type BusinessDayCounter interface {
	BusinessDays(start, end time.Time) int
}

// Value is a single computed output cell: a number or a text.
type Value struct {
	Number int
	Text   string
	IsText bool
}

// NumberValue wraps an integer output.
func NumberValue(n int) Value { return Value{Number: n} }

// TextValue wraps a text output.
func TextValue(s string) Value { return Value{Text: s, IsText: true} }

// Any returns the underlying int or string.
func (v Value) Any() any {
	if v.IsText {
		return v.Text
	}
	return v.Number
}

func (v Value) String() string {
	if v.IsText {
		return v.Text
	}
	return strconv.Itoa(v.Number)
}

// AgeingValues maps output field to value for one task.
type AgeingValues map[string]Value

// AgeingResult maps task ID to its computed values.
type AgeingResult map[string]AgeingValues

// AgeingReducer applies the rule table to parsed descriptions.
type AgeingReducer interface {
	// Reduce computes one value per (task, rule) for every parsed task not in
	// excluded.
	Reduce(parsed ParsedDescriptions, rules []AgeingRule, excluded map[string]struct{}) (AgeingResult, error)
	// ReduceTask computes the values of a single description.
	ReduceTask(desc ParsedDescription, rules []AgeingRule) (AgeingValues, error)
}

type ageingReducer struct {
	counter BusinessDayCounter
	now     func() time.Time
}

// NewAgeingReducer creates an AgeingReducer. now supplies "today" for stages
// that have not been exited yet; nil means time.Now.
func NewAgeingReducer(counter BusinessDayCounter, now func() time.Time) AgeingReducer {
	if now == nil {
		now = time.Now
	}
	return &ageingReducer{counter: counter, now: now}
}

func (r *ageingReducer) Reduce(parsed ParsedDescriptions, rules []AgeingRule, excluded map[string]struct{}) (AgeingResult, error) {
	result := make(AgeingResult, len(parsed))
	for taskID, desc := range parsed {
		if _, skip := excluded[taskID]; skip {
			continue
		}
		values, err := r.ReduceTask(desc, rules)
		if err != nil {
			return nil, fmt.Errorf("reducing task %s: %w", taskID, err)
		}
		result[taskID] = values
	}
	return result, nil
}

func (r *ageingReducer) ReduceTask(desc ParsedDescription, rules []AgeingRule) (AgeingValues, error) {
	now := r.now()
	today := now.Format(TodayLayout)

	values := make(AgeingValues, len(rules))
	for _, rule := range rules {
		switch rule := rule.(type) {
		case Occurrences:
			values[rule.Field] = NumberValue(len(desc.Dates(rule.Source)))
		case FirstDateValue:
			first := ""
			if dates := desc.Dates(rule.Source); len(dates) > 0 {
				first = dates[0]
			}
			values[rule.Field] = TextValue(first)
		case BusinessDayCount:
			n, err := r.businessDays(rule, desc, today, now.Year())
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rule.Field, err)
			}
			values[rule.Field] = NumberValue(n)
		default:
			return nil, fmt.Errorf("unsupported ageing rule %T", rule)
		}
	}
	return values, nil
}

func (r *ageingReducer) businessDays(rule BusinessDayCount, desc ParsedDescription, today string, year int) (int, error) {
	total := 0
	for _, pair := range PairDates(rule, desc, today) {
		start, err := ParseDateToken(pair.Start, year)
		if err != nil {
			return 0, err
		}
		end, err := ParseDateToken(pair.End, year)
		if err != nil {
			return 0, err
		}
		total += r.counter.BusinessDays(start, end)
	}
	if total < 0 {
		total = -total
	}
	return total, nil
}

// DatePair is one start/end pairing of a BusinessDayCount rule.
type DatePair struct {
	Start string
	End   string
}

// PairDates pairs the start and end dates of rule. Missing end dates are
// padded with today; when the rule has a Position only the dates at that
// index are paired. desc is not modified.
func PairDates(rule BusinessDayCount, desc ParsedDescription, today string) []DatePair {
	starts := desc.Dates(rule.Start)
	ends := append([]string{}, desc.Dates(rule.End)...)
	for len(ends) < len(starts) {
		ends = append(ends, today)
	}

	if rule.Position != nil {
		starts = atPosition(starts, *rule.Position)
		ends = atPosition(ends, *rule.Position)
	}

	n := len(starts)
	if len(ends) < n {
		n = len(ends)
	}
	pairs := make([]DatePair, n)
	for i := 0; i < n; i++ {
		pairs[i] = DatePair{Start: starts[i], End: ends[i]}
	}
	return pairs
}

func atPosition(dates []string, pos int) []string {
	if pos < 0 || pos >= len(dates) {
		return nil
	}
	return []string{dates[pos]}
}
