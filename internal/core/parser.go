package core

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/kanban-ageing/pkg/models"
)

// Issue messages recorded by the description parser.
const (
	MsgEmptyDescription = "Empty Description"
	MsgInvalidDate      = "Invalid Date"
	MsgNoAgeingInfo     = "This Task does not contain info for ageing - If this is the idea, just ignore, if not check the format"
)

// MsgKeyMalformed is recorded when a missing key's text appears on exactly one line.
func MsgKeyMalformed(k DescriptionKey) string {
	return fmt.Sprintf("The key '%s' was found on this line, but it is not properly formatted", k.Phrase())
}

// MsgKeyNotFound is recorded when a missing key's text appears on no line.
func MsgKeyNotFound(k DescriptionKey) string {
	return fmt.Sprintf("The key '%s' was not found", k.Phrase())
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DescriptionParser turns task descriptions into date sequences and records
// every formatting problem it finds in an IssueLog.
type DescriptionParser interface {
	// Parse parses every task. Tasks with an empty description get no entry.
	// When two rows share a task ID the later row wins.
	Parse(tasks []models.TaskRow, log *IssueLog) ParsedDescriptions
	// ParseTask parses a single task. ok is false when the description is empty.
	ParseTask(task models.TaskRow, log *IssueLog) (desc ParsedDescription, ok bool)
}

type descriptionParser struct {
	now     func() time.Time
	workers int
}

// NewDescriptionParser creates a DescriptionParser. now supplies the current
// year for two-digit year windowing; nil means time.Now. workers > 1 parses
// tasks in parallel while keeping the issue order of a sequential run.
func NewDescriptionParser(now func() time.Time, workers int) DescriptionParser {
	if now == nil {
		now = time.Now
	}
	if workers < 1 {
		workers = 1
	}
	return &descriptionParser{now: now, workers: workers}
}

func (p *descriptionParser) Parse(tasks []models.TaskRow, log *IssueLog) ParsedDescriptions {
	if p.workers == 1 || len(tasks) < 2 {
		result := make(ParsedDescriptions, len(tasks))
		for _, task := range tasks {
			if desc, ok := p.ParseTask(task, log); ok {
				result[task.ID] = desc
			}
		}
		return result
	}
	return p.parseParallel(tasks, log)
}

// parseParallel gives each task a private IssueLog shard and merges the
// shards in input order once every worker has finished.
func (p *descriptionParser) parseParallel(tasks []models.TaskRow, log *IssueLog) ParsedDescriptions {
	type outcome struct {
		desc   ParsedDescription
		ok     bool
		issues *IssueLog
	}
	outcomes := make([]outcome, len(tasks))

	queue := make(chan int, len(tasks))
	for i := range tasks {
		queue <- i
	}
	close(queue)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				shard := NewIssueLog()
				desc, ok := p.ParseTask(tasks[i], shard)
				outcomes[i] = outcome{desc: desc, ok: ok, issues: shard}
			}
		}()
	}
	wg.Wait()

	result := make(ParsedDescriptions, len(tasks))
	for i, o := range outcomes {
		log.Merge(o.issues)
		if o.ok {
			result[tasks[i].ID] = o.desc
		}
	}
	return result
}

func (p *descriptionParser) ParseTask(task models.TaskRow, log *IssueLog) (ParsedDescription, bool) {
	text := strings.ToLower(task.Description)
	if strings.TrimSpace(text) == "" {
		log.Info("", task, MsgEmptyDescription)
		return nil, false
	}

	year := p.now().Year()
	lines := strings.Split(text, "\n")
	desc := make(ParsedDescription)

	for _, line := range lines {
		if strings.Count(line, ":") != 1 {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(line, ":")
		key, ok := LookupDescriptionKey(collapseWhitespace(rawKey))
		if !ok {
			continue
		}

		dates := ExtractDateTokens(collapseWhitespace(rawValue))
		for _, d := range dates {
			if !IsValidDateInYear(d, year) {
				log.Error(line, task, MsgInvalidDate)
				break
			}
		}

		existing, seen := desc[key]
		if !seen {
			existing = []string{}
		}
		desc[key] = append(existing, dates...)
	}

	p.reportMissingKeys(task, lines, desc, log)
	return desc, true
}

// reportMissingKeys flags vocabulary keys that a partially filled description
// lacks. A key whose text appears on several lines is left unreported.
func (p *descriptionParser) reportMissingKeys(task models.TaskRow, lines []string, desc ParsedDescription, log *IssueLog) {
	if len(desc) == 0 {
		log.Info("", task, MsgNoAgeingInfo)
		return
	}
	if len(desc) == int(descriptionKeyCount) {
		return
	}

	for _, k := range DescriptionKeys() {
		if desc.Has(k) {
			continue
		}
		var matches []string
		for _, line := range lines {
			if strings.Contains(line, k.Phrase()) {
				matches = append(matches, line)
			}
		}
		switch len(matches) {
		case 0:
			log.Error("", task, MsgKeyNotFound(k))
		case 1:
			log.Error(matches[0], task, MsgKeyMalformed(k))
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
