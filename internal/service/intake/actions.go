package intake

import (
	"regexp"
	"strings"

	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/service/extraction"
)

var namePattern = regexp.MustCompile(`(?i)\b(?:my name is|my name's|this is|call me)\s+([a-z][a-z'\-]*(?:\s+[a-z][a-z'\-]*)?)`)

// nameStopWords end a captured name ("this is about my loan")
var nameStopWords = map[string]bool{
	"about": true, "regarding": true, "for": true, "the": true, "a": true, "an": true,
	"calling": true, "correct": true, "right": true, "yes": true, "and": true, "is": true,
	"my": true, "he": true, "she": true, "they": true, "it": true, "me": true, "him": true, "her": true,
}

// collect runs the current step's collection action. It reports whether
// the answer was usable; a false result leaves the state untouched.
func collect(s *domain.State, d domain.Descriptor, utterance string, args map[string]string) bool {
	input := answerInput(d, utterance, args)

	switch d.Action {
	case domain.ActionCaptureName:
		return captureName(s, input, args[d.ArgKey] != "")
	case domain.ActionCaptureAmount:
		amount, ok := extraction.Amount(input)
		if !ok {
			return false
		}
		s.Answers.LoanAmount = &amount
		return true
	case domain.ActionCapturePurpose:
		purpose := strings.TrimSpace(input)
		if purpose == "" {
			return false
		}
		s.Answers.FundsPurpose = &purpose
		return true
	case domain.ActionCaptureEmployment:
		category, err := domain.ParseEmployment(strings.TrimSpace(strings.ToLower(input)))
		if err != nil {
			var ok bool
			if category, ok = extraction.Employment(input); !ok {
				return false
			}
		}
		s.Answers.Employment = &category
		return true
	case domain.ActionCaptureDebt:
		amount, ok := extraction.Amount(input)
		if !ok {
			if !extraction.IsExplicitZero(input) {
				return false
			}
			amount = 0
		}
		return s.SetDebt(d.Debt, amount) == nil
	case domain.ActionCaptureIncome:
		amount, ok := extraction.Amount(input)
		if !ok {
			return false
		}
		s.Answers.MonthlyIncome = &amount
		return true
	default:
		return true
	}
}

// narrate handles the pure narration steps. They always advance; the
// income confirmation additionally keeps the SSN digits if the caller gave them.
func narrate(s *domain.State, d domain.Descriptor, utterance string, args map[string]string) {
	if d.Step != domain.StepIncomeConfirmation {
		return
	}
	if digits, ok := extraction.SSNLastFour(answerInput(d, utterance, args)); ok {
		s.Answers.SSNLastFour = &digits
	}
}

// captureName accepts any acknowledgement of the greeting. A name is kept
// when the driver supplied one or the caller introduced themselves.
func captureName(s *domain.State, input string, structured bool) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	name := ""
	if structured {
		name = input
	} else if m := namePattern.FindStringSubmatch(input); m != nil {
		name = titleCase(trimStopWords(m[1]))
	}
	if name != "" {
		s.Answers.Name = &name
	} else if s.Lead != nil && s.Lead.Name != "" {
		lead := s.Lead.Name
		s.Answers.Name = &lead
	}
	return true
}

func answerInput(d domain.Descriptor, utterance string, args map[string]string) string {
	if d.ArgKey != "" {
		if v := strings.TrimSpace(args[d.ArgKey]); v != "" {
			return v
		}
	}
	return utterance
}

func trimStopWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if nameStopWords[strings.ToLower(w)] {
			return strings.Join(words[:i], " ")
		}
	}
	return s
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
