package triage

import (
	"regexp"
	"strings"
)

// compiledFlag is a red flag rule with its compiled pattern
type compiledFlag struct {
	re    *regexp.Regexp
	label string
}

// Classifier maps a first message to an urgency score, a path and a branch
// through an ordered first-match-wins cascade. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	rules    Rules
	critical []compiledFlag
	high     []compiledFlag
	skipped  []string
}

// NewClassifier compiles the rule tables. A pattern that fails to compile
// is skipped and reported through SkippedPatterns; classification always
// proceeds with the patterns that did compile.
func NewClassifier(rules Rules) *Classifier {
	c := &Classifier{rules: rules}
	c.critical = c.compile(rules.CriticalRedFlags)
	c.high = c.compile(rules.HighRedFlags)
	return c
}

func (c *Classifier) compile(rules []RedFlagRule) []compiledFlag {
	compiled := make([]compiledFlag, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			c.skipped = append(c.skipped, rule.Pattern)
			continue
		}
		compiled = append(compiled, compiledFlag{re: re, label: rule.Label})
	}
	return compiled
}

// SkippedPatterns returns the patterns that failed to compile, in rule order
func (c *Classifier) SkippedPatterns() []string {
	return c.skipped
}

// ClassifyInitialUrgency classifies the first message of a session.
// Categories are checked in strict priority order: informational keywords,
// critical red flags, high red flags, mental health, mild symptoms, default.
// The first match terminates the cascade. Never fails: empty input gets the
// neutral default.
func (c *Classifier) ClassifyInitialUrgency(firstMessage string) UrgencyScore {
	text := strings.ToLower(strings.TrimSpace(firstMessage))
	if text == "" {
		return UrgencyScore{
			Score:            3,
			AssignedPath:     PathC,
			AssignedBranch:   BranchTriage,
			Rationale:        "Messaggio vuoto - default Path C",
			DetectedRedFlags: []string{},
		}
	}

	// Informational keywords win over everything, including red flags.
	// Known hazard: a message mixing an informational term with a critical
	// symptom phrase never reaches the safety check.
	for _, keyword := range c.rules.InfoKeywords {
		if strings.Contains(text, keyword) {
			return UrgencyScore{
				Score:            1,
				AssignedPath:     PathC, // nominal
				AssignedBranch:   BranchInformazioni,
				Rationale:        "Informational request detected: '" + keyword + "'",
				DetectedRedFlags: []string{},
			}
		}
	}

	for _, flag := range c.critical {
		if flag.re.MatchString(text) {
			return UrgencyScore{
				Score:                5,
				AssignedPath:         PathA,
				AssignedBranch:       BranchTriage,
				Rationale:            "Critical emergency: " + flag.label,
				DetectedRedFlags:     []string{flag.label},
				RequiresImmediate118: true,
			}
		}
	}

	for _, flag := range c.high {
		if flag.re.MatchString(text) {
			return UrgencyScore{
				Score:            4,
				AssignedPath:     PathA,
				AssignedBranch:   BranchTriage,
				Rationale:        "High urgency: " + flag.label,
				DetectedRedFlags: []string{flag.label},
			}
		}
	}

	for _, keyword := range c.rules.MentalHealthKeywords {
		if strings.Contains(text, keyword) {
			return UrgencyScore{
				Score:            3,
				AssignedPath:     PathB,
				AssignedBranch:   BranchTriage,
				Rationale:        "Mental health concern: '" + keyword + "'",
				DetectedRedFlags: []string{},
			}
		}
	}

	for _, symptom := range c.rules.MildSymptoms {
		if strings.Contains(text, symptom) {
			return UrgencyScore{
				Score:            2,
				AssignedPath:     PathC,
				AssignedBranch:   BranchTriage,
				Rationale:        "Mild symptom: " + symptom,
				DetectedRedFlags: []string{},
			}
		}
	}

	return UrgencyScore{
		Score:            3,
		AssignedPath:     PathC,
		AssignedBranch:   BranchTriage,
		Rationale:        "Standard triage path",
		DetectedRedFlags: []string{},
	}
}

// ScanRedFlags checks free text against the critical and high red flag
// patterns, for mid-conversation answers. Returns the matched labels and
// whether any critical pattern matched.
func (c *Classifier) ScanRedFlags(text string) (labels []string, critical bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil, false
	}
	for _, flag := range c.critical {
		if flag.re.MatchString(lower) {
			labels = append(labels, flag.label)
			critical = true
		}
	}
	for _, flag := range c.high {
		if flag.re.MatchString(lower) {
			labels = append(labels, flag.label)
		}
	}
	return labels, critical
}
