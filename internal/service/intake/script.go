package intake

import (
	"fmt"

	domain "github.com/operationseasyfi/ai-voice-agent/internal/domain/intake"
	"github.com/operationseasyfi/ai-voice-agent/internal/domain/values"
)

const reaskPrefix = "I'm sorry, I didn't quite catch that. "

// Script renders the caller-facing text for each step
type Script struct {
	AgentName   string
	CompanyName string
}

// DefaultScript is the production persona
func DefaultScript() Script {
	return Script{AgentName: "James", CompanyName: "Easy Finance"}
}

// Greeting personalizes the opening line when the CRM knows the caller
func (sc Script) Greeting(lead *domain.Lead) string {
	opening := fmt.Sprintf("Hi, this is %s with %s on a recorded line.", sc.AgentName, sc.CompanyName)
	if lead == nil || lead.Name == "" {
		return opening + " How can I help you today?"
	}

	text := fmt.Sprintf("%s Am I speaking with %s?", opening, lead.Name)
	if lead.LoanAmount != nil && *lead.LoanAmount > 0 {
		text += fmt.Sprintf(" Are you calling regarding the loan offer for %s you received?", values.FormatDollars(*lead.LoanAmount))
	}
	return text
}

// Prompt returns the text spoken on entering the state's current step
func (sc Script) Prompt(s *domain.State) string {
	d, _ := domain.Describe(s.Step)

	switch s.Step {
	case domain.StepGreeting:
		return sc.Greeting(s.Lead)
	case domain.StepDebtSummary:
		return fmt.Sprintf(d.Prompt,
			dollars(s.Answers.CreditCardDebt),
			dollars(s.Answers.PersonalLoanDebt),
			dollars(s.Answers.OtherDebt),
		)
	case domain.StepIncomeConfirmation:
		return fmt.Sprintf(d.Prompt, dollars(s.Answers.MonthlyIncome))
	default:
		return d.Prompt
	}
}

// Reask repeats the current question after an unusable answer
func (sc Script) Reask(s *domain.State) string {
	return reaskPrefix + sc.Prompt(s)
}

func dollars(v *float64) string {
	if v == nil {
		return values.FormatDollars(0)
	}
	return values.FormatDollars(*v)
}
