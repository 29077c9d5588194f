package extraction

import (
	"regexp"
	"strings"

	"github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
)

type employmentKeywords struct {
	category intake.Employment
	pattern  *regexp.Regexp
}

// Checked in order. The more specific sets come first so that
// "self-employed", "unemployed" and "not working" are not taken by the
// generic employed keywords.
var employmentSets = []employmentKeywords{
	{intake.EmploymentSelfEmployed, keywordPattern("self employed", "self-employed", "own business", "my business", "business owner", "contractor", "freelance", "freelancer", "1099")},
	{intake.EmploymentFixedIncome, keywordPattern("fixed income", "disability", "pension", "retirement", "retired", "social security", "ssi", "ssdi")},
	{intake.EmploymentUnemployed, keywordPattern("unemployed", "not employed", "not working", "not currently working", "no longer working",
		"don't work", "do not work", "dont work", "don't have a job", "do not have a job", "no job", "jobless", "between jobs", "laid off", "out of work")},
	{intake.EmploymentEmployed, keywordPattern("paycheck", "employed", "job", "work", "working", "salary", "wage", "wages", "full time", "part time", "w2")},
}

var (
	fourDigitPattern = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)
	digitWords       = map[string]byte{
		"zero": '0', "oh": '0', "one": '1', "two": '2', "three": '3', "four": '4',
		"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	}
)

func keywordPattern(keywords ...string) *regexp.Regexp {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Employment classifies an answer into an employment category
func Employment(text string) (intake.Employment, bool) {
	text = strings.ReplaceAll(strings.ToLower(text), "’", "'")
	for _, set := range employmentSets {
		if set.pattern.MatchString(text) {
			return set.category, true
		}
	}
	return 0, false
}

// SSNLastFour returns the first run of exactly four digits. Callers who
// read the digits out one word at a time ("four three two one") are also
// understood.
func SSNLastFour(text string) (string, bool) {
	if m := fourDigitPattern.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	var run []byte
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		d, ok := digitWords[word]
		if !ok {
			if len(run) == 4 {
				break
			}
			run = run[:0]
			continue
		}
		run = append(run, d)
	}
	if len(run) == 4 {
		return string(run), true
	}
	return "", false
}
