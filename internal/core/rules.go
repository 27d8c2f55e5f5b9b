package core

import "fmt"

// Output columns filled by the rule table.
const (
	FieldConfigurationInProgress               = "03.Configuration In Progress"
	FieldBlocked                               = "04.Blocked"
	FieldConfigurationComplete                 = "05.Configuration Complete"
	FieldPeerReviewInProgress                  = "06.Peer Review In Progress"
	FieldPeerReviewReworkReq                   = "07.Peer Review - Rework Req."
	FieldReadyForDemo                          = "08.Ready For Demo"
	FieldDemoInProgress                        = "09.Demo In Progress"
	FieldClientReworkInProgress                = "11.Client Rework In Progress"
	FieldReadyForClientVerification            = "12.Ready For Client Verification"
	FieldVerificationInProgress                = "13.Verification In Progress"
	FieldVerificationComplete                  = "14.Verification Complete"
	FieldNumberOfPeerReviews                   = "Number of Peer Reviews"
	FieldBlockedPeerReviewReworkDays           = "Blocked Peer Review Rework Days"
	FieldNumberOfReadyForDemo                  = "Number of Ready for Demo"
	FieldNumberOfDemos                         = "Number of Demos"
	FieldDemoReworkDays                        = "Demo Rework Days"
	FieldBlockedDemoReworkDays                 = "Blocked Demo Rework Days"
	FieldNumberOfReadyForClientVerification    = "Number of Ready for Client Verification"
	FieldNumberOfClientVerification            = "Number of Client Verification"
	FieldBlockedReworkClientVerificationDays   = "Blocked Rework Client Verification Days"
	FieldVerificationCompleteDate              = "Verification Complete Date"
	FieldReadyToMigrateDate                    = "Ready To Migrate Date"
	FieldEffectiveConfigurationDays            = "Effective Configuration Days"
	FieldEffectivePeerReviewReworkDays         = "Effective Peer Review Rework Days"
	FieldEffectiveDemoReworkDays               = "Effective Demo Rework Days"
	FieldEffectiveReworkClientVerificationDays = "Effective Rework Client Verification Days"
)

// DerivedFields are template columns computed by the workbook itself from the
// rule outputs. They are blanked together with the rule outputs for excluded tasks.
var DerivedFields = []string{
	FieldEffectiveConfigurationDays,
	FieldEffectivePeerReviewReworkDays,
	FieldEffectiveDemoReworkDays,
	FieldEffectiveReworkClientVerificationDays,
}

// ReductionKind discriminates the AgeingRule variants.
type ReductionKind int

const (
	KindOccurrences ReductionKind = iota
	KindFirstDateValue
	KindBusinessDayCount
)

func (k ReductionKind) String() string {
	switch k {
	case KindOccurrences:
		return "occurrences"
	case KindFirstDateValue:
		return "first_date_value"
	case KindBusinessDayCount:
		return "business_day_count"
	default:
		return fmt.Sprintf("ReductionKind(%d)", int(k))
	}
}

// AgeingRule defines how one output column is derived from a parsed
// description. It is implemented only by Occurrences, FirstDateValue and
// BusinessDayCount.
type AgeingRule interface {
	OutputField() string
	Kind() ReductionKind
	ageingRule()
}

// Occurrences counts the dates recorded for Source.
type Occurrences struct {
	Field  string
	Source DescriptionKey
}

// FirstDateValue copies the first date recorded for Source.
type FirstDateValue struct {
	Field  string
	Source DescriptionKey
}

// BusinessDayCount sums the business days between paired Start and End dates.
// A non-nil Position restricts the pairing to the dates at that index.
type BusinessDayCount struct {
	Field    string
	Start    DescriptionKey
	End      DescriptionKey
	Position *int
}

func (r Occurrences) OutputField() string      { return r.Field }
func (r FirstDateValue) OutputField() string   { return r.Field }
func (r BusinessDayCount) OutputField() string { return r.Field }

func (Occurrences) Kind() ReductionKind      { return KindOccurrences }
func (FirstDateValue) Kind() ReductionKind   { return KindFirstDateValue }
func (BusinessDayCount) Kind() ReductionKind { return KindBusinessDayCount }

func (Occurrences) ageingRule()      {}
func (FirstDateValue) ageingRule()   {}
func (BusinessDayCount) ageingRule() {}

func firstPair() *int {
	p := 0
	return &p
}

// DefaultRuleTable returns the fixed ageing rules, grouped by workflow stage.
// A fresh slice is returned on every call.
func DefaultRuleTable() []AgeingRule {
	return []AgeingRule{
		// Configuration
		BusinessDayCount{Field: FieldConfigurationInProgress, Start: ConfigStartDate, End: ConfigEndDate},
		BusinessDayCount{Field: FieldBlocked, Start: AllConfigBlockedStartDate, End: AllConfigBlockedEndDate},

		// Peer review
		Occurrences{Field: FieldNumberOfPeerReviews, Source: AllPeerReviewStartDate},
		BusinessDayCount{Field: FieldPeerReviewInProgress, Start: AllPeerReviewStartDate, End: AllPeerReviewEndDate},
		BusinessDayCount{Field: FieldPeerReviewReworkReq, Start: AllPeerReviewReworkRequiredStartDate, End: AllPeerReviewReworkRequiredEndDate},
		BusinessDayCount{Field: FieldBlockedPeerReviewReworkDays, Start: AllPRReworkBlockedStartDate, End: AllPRReworkBlockedEndDate},

		// Demo
		Occurrences{Field: FieldNumberOfReadyForDemo, Source: AllReadyForDemoDate},
		Occurrences{Field: FieldNumberOfDemos, Source: AllDemoDate},
		BusinessDayCount{Field: FieldDemoReworkDays, Start: AllDemoReworkRequiredStartDate, End: AllDemoReworkRequiredEndDate},
		BusinessDayCount{Field: FieldBlockedDemoReworkDays, Start: AllDemoBlockedStartDate, End: AllDemoBlockedEndDate},

		// Client verification
		Occurrences{Field: FieldNumberOfReadyForClientVerification, Source: AllReadyForClientVerificationDate},
		Occurrences{Field: FieldNumberOfClientVerification, Source: AllClientVerificationStartDate},
		BusinessDayCount{Field: FieldVerificationInProgress, Start: AllClientVerificationStartDate, End: AllClientVerificationEndDate},
		BusinessDayCount{Field: FieldClientReworkInProgress, Start: AllClientReworkRequiredStartDate, End: AllClientReworkRequiredEndDate},
		BusinessDayCount{Field: FieldBlockedReworkClientVerificationDays, Start: AllClientBlockedStartDate, End: AllClientBlockedEndDate},

		// Terminal milestones
		FirstDateValue{Field: FieldVerificationCompleteDate, Source: VerificationCompleteDate},
		FirstDateValue{Field: FieldReadyToMigrateDate, Source: ReadyToMigrateDate},

		// Bucket time between the first entries of consecutive stages
		BusinessDayCount{Field: FieldConfigurationComplete, Start: AllPeerReviewStartDate, End: ConfigEndDate, Position: firstPair()},
		BusinessDayCount{Field: FieldReadyForDemo, Start: AllDemoDate, End: AllReadyForDemoDate, Position: firstPair()},
		BusinessDayCount{Field: FieldDemoInProgress, Start: AllReadyForClientVerificationDate, End: AllDemoDate, Position: firstPair()},
		BusinessDayCount{Field: FieldReadyForClientVerification, Start: AllClientVerificationStartDate, End: AllReadyForClientVerificationDate, Position: firstPair()},
		BusinessDayCount{Field: FieldVerificationComplete, Start: ReadyToMigrateDate, End: VerificationCompleteDate, Position: firstPair()},
	}
}

// RuleFields returns the output field of every rule, in table order.
func RuleFields(rules []AgeingRule) []string {
	fields := make([]string, len(rules))
	for i, r := range rules {
		fields[i] = r.OutputField()
	}
	return fields
}

// RuleSources returns the description keys a rule reads.
func RuleSources(rule AgeingRule) []DescriptionKey {
	switch r := rule.(type) {
	case Occurrences:
		return []DescriptionKey{r.Source}
	case FirstDateValue:
		return []DescriptionKey{r.Source}
	case BusinessDayCount:
		return []DescriptionKey{r.Start, r.End}
	}
	return nil
}
