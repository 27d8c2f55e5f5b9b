package core

import "encoding/json"

// DescriptionKey is one milestone of the closed description vocabulary.
type DescriptionKey int

const (
	ConfigStartDate DescriptionKey = iota
	AllConfigBlockedStartDate
	AllConfigBlockedEndDate
	ConfigEndDate
	AllPeerReviewStartDate
	AllPeerReviewEndDate
	AllPeerReviewReworkRequiredStartDate
	AllPRReworkBlockedStartDate
	AllPRReworkBlockedEndDate
	AllPeerReviewReworkRequiredEndDate
	AllReadyForDemoDate
	AllDemoDate
	AllDemoReworkRequiredStartDate
	AllDemoBlockedStartDate
	AllDemoBlockedEndDate
	AllDemoReworkRequiredEndDate
	AllReadyForClientVerificationDate
	VerificationAssignedTo
	AllClientVerificationStartDate
	AllClientVerificationEndDate
	AllClientReworkRequiredStartDate
	AllClientBlockedStartDate
	AllClientBlockedEndDate
	AllClientReworkRequiredEndDate
	VerificationCompleteDate
	ReadyToMigrateDate

	descriptionKeyCount
)

var descriptionKeyPhrases = [descriptionKeyCount]string{
	ConfigStartDate:                      "config start date",
	AllConfigBlockedStartDate:            "all config blocked start date",
	AllConfigBlockedEndDate:              "all config blocked end date",
	ConfigEndDate:                        "config end date",
	AllPeerReviewStartDate:               "all peer review start date",
	AllPeerReviewEndDate:                 "all peer review end date",
	AllPeerReviewReworkRequiredStartDate: "all peer review rework required start date",
	AllPRReworkBlockedStartDate:          "all pr rework blocked start date",
	AllPRReworkBlockedEndDate:            "all pr rework blocked end date",
	AllPeerReviewReworkRequiredEndDate:   "all peer review rework required end date",
	AllReadyForDemoDate:                  "all ready for demo date",
	AllDemoDate:                          "all demo date",
	AllDemoReworkRequiredStartDate:       "all demo rework required start date",
	AllDemoBlockedStartDate:              "all demo blocked start date",
	AllDemoBlockedEndDate:                "all demo blocked end date",
	AllDemoReworkRequiredEndDate:         "all demo rework required end date",
	AllReadyForClientVerificationDate:    "all ready for client verification date",
	VerificationAssignedTo:               "verification assigned to",
	AllClientVerificationStartDate:       "all client verification start date",
	AllClientVerificationEndDate:         "all client verification end date",
	AllClientReworkRequiredStartDate:     "all client rework required start date",
	AllClientBlockedStartDate:            "all client blocked start date",
	AllClientBlockedEndDate:              "all client blocked end date",
	AllClientReworkRequiredEndDate:       "all client rework required end date",
	VerificationCompleteDate:             "verification complete date",
	ReadyToMigrateDate:                   "ready to migrate date",
}

var descriptionKeysByPhrase = func() map[string]DescriptionKey {
	m := make(map[string]DescriptionKey, descriptionKeyCount)
	for k, phrase := range descriptionKeyPhrases {
		m[phrase] = DescriptionKey(k)
	}
	return m
}()

// DescriptionKeys returns the full vocabulary in its canonical order.
func DescriptionKeys() []DescriptionKey {
	keys := make([]DescriptionKey, descriptionKeyCount)
	for i := range keys {
		keys[i] = DescriptionKey(i)
	}
	return keys
}

// LookupDescriptionKey returns the key whose phrase is exactly phrase.
func LookupDescriptionKey(phrase string) (DescriptionKey, bool) {
	k, ok := descriptionKeysByPhrase[phrase]
	return k, ok
}

// IsValid reports whether k belongs to the vocabulary.
func (k DescriptionKey) IsValid() bool {
	return k >= 0 && k < descriptionKeyCount
}

// Phrase returns the lowercase text that introduces k in a description.
func (k DescriptionKey) Phrase() string {
	if !k.IsValid() {
		return ""
	}
	return descriptionKeyPhrases[k]
}

func (k DescriptionKey) String() string {
	if !k.IsValid() {
		return "DescriptionKey(invalid)"
	}
	return k.Phrase()
}

// MarshalText encodes k as its phrase so keyed maps serialize readably.
func (k DescriptionKey) MarshalText() ([]byte, error) {
	return []byte(k.Phrase()), nil
}

// ParsedDescription maps each key found in a description to its date tokens.
type ParsedDescription map[DescriptionKey][]string

// Has reports whether the key appeared on a well-formed line.
func (p ParsedDescription) Has(k DescriptionKey) bool {
	_, ok := p[k]
	return ok
}

// Dates returns the tokens recorded for k, or nil when k is absent.
func (p ParsedDescription) Dates(k DescriptionKey) []string {
	return p[k]
}

// Phrases returns a copy keyed by phrase, suitable for JSON and YAML output.
func (p ParsedDescription) Phrases() map[string][]string {
	out := make(map[string][]string, len(p))
	for k, dates := range p {
		out[k.Phrase()] = append([]string{}, dates...)
	}
	return out
}

func (p ParsedDescription) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Phrases())
}

// ParsedDescriptions maps task ID to its parsed description.
type ParsedDescriptions map[string]ParsedDescription
