package intake

import "fmt"

// Step identifies a node of the intake conversation graph
type Step int

const (
	StepGreeting Step = iota
	StepIntroduction
	StepLoanAmount
	StepFundsPurpose
	StepEmployment
	StepCreditCardDebt
	StepPersonalLoanDebt
	StepOtherDebt
	StepDebtSummary
	StepMonthlyIncome
	StepIncomeConfirmation
	StepTransfer
	StepOptOut
)

var stepNames = [...]string{
	StepGreeting:           "greeting",
	StepIntroduction:       "introduction",
	StepLoanAmount:         "loan_amount",
	StepFundsPurpose:       "funds_purpose",
	StepEmployment:         "employment",
	StepCreditCardDebt:     "credit_card_debt",
	StepPersonalLoanDebt:   "personal_loan_debt",
	StepOtherDebt:          "other_debt",
	StepDebtSummary:        "debt_summary",
	StepMonthlyIncome:      "monthly_income",
	StepIncomeConfirmation: "income_confirmation",
	StepTransfer:           "transfer",
	StepOptOut:             "opt_out",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// Valid reports whether s is one of the declared steps
func (s Step) Valid() bool {
	return s >= StepGreeting && s <= StepOptOut
}

// ParseStep resolves a step name
func ParseStep(name string) (Step, error) {
	for i, n := range stepNames {
		if n == name {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("unknown intake step %q", name)
}

func (s Step) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid intake step %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	step, err := ParseStep(string(text))
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// Action is the collection action gating a step
type Action int

const (
	ActionNone Action = iota
	ActionCaptureName
	ActionCaptureAmount
	ActionCapturePurpose
	ActionCaptureEmployment
	ActionCaptureDebt
	ActionCaptureIncome
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCaptureName:
		return "capture_name"
	case ActionCaptureAmount:
		return "capture_amount"
	case ActionCapturePurpose:
		return "capture_purpose"
	case ActionCaptureEmployment:
		return "capture_employment"
	case ActionCaptureDebt:
		return "capture_debt"
	case ActionCaptureIncome:
		return "capture_income"
	default:
		return "unknown"
	}
}

// DebtComponent names one of the three unsecured debt answers
type DebtComponent int

const (
	DebtNone DebtComponent = iota
	DebtCreditCard
	DebtPersonalLoan
	DebtOther
)

func (d DebtComponent) String() string {
	switch d {
	case DebtCreditCard:
		return "credit_card_debt"
	case DebtPersonalLoan:
		return "personal_loan_debt"
	case DebtOther:
		return "other_debt"
	default:
		return "none"
	}
}

// Descriptor is one row of the static step table
type Descriptor struct {
	Step     Step
	Prompt   string
	Action   Action
	Debt     DebtComponent
	ArgKey   string // structured argument the driver may supply instead of the utterance
	Next     Step
	Terminal bool
}

// Narration reports whether the step advances on any acknowledgement
func (d Descriptor) Narration() bool {
	return !d.Terminal && d.Action == ActionNone
}

// Steps is the intake conversation graph. Every non-terminal step may also
// move to StepOptOut; that edge is implicit and not listed.
var Steps = [...]Descriptor{
	StepGreeting: {
		Step:   StepGreeting,
		Action: ActionCaptureName,
		ArgKey: "name",
		Next:   StepIntroduction,
	},
	StepIntroduction: {
		Step:   StepIntroduction,
		Prompt: "This is our secured automated intake system. It's built to make our process quick, private, and fully personalized. I'll ask a few short questions to confirm eligibility and then connect you to a senior underwriting specialist to review your actual loan options.",
		Next:   StepLoanAmount,
	},
	StepLoanAmount: {
		Step:   StepLoanAmount,
		Prompt: "What is the exact amount you are looking to borrow today?",
		Action: ActionCaptureAmount,
		ArgKey: "loan_amount",
		Next:   StepFundsPurpose,
	},
	StepFundsPurpose: {
		Step:   StepFundsPurpose,
		Prompt: "Just so I know how to help best, what are you planning to use the funds for?",
		Action: ActionCapturePurpose,
		ArgKey: "funds_purpose",
		Next:   StepEmployment,
	},
	StepEmployment: {
		Step:   StepEmployment,
		Prompt: "And are you currently earning a paycheck, self-employed, or on a fixed income?",
		Action: ActionCaptureEmployment,
		ArgKey: "employment_status",
		Next:   StepCreditCardDebt,
	},
	StepCreditCardDebt: {
		Step:   StepCreditCardDebt,
		Prompt: "About how much total unsecured credit card debt are you carrying right now?",
		Action: ActionCaptureDebt,
		Debt:   DebtCreditCard,
		ArgKey: "credit_card_debt",
		Next:   StepPersonalLoanDebt,
	},
	StepPersonalLoanDebt: {
		Step:   StepPersonalLoanDebt,
		Prompt: "And do you have any balances on unsecured personal loans?",
		Action: ActionCaptureDebt,
		Debt:   DebtPersonalLoan,
		ArgKey: "personal_loan_debt",
		Next:   StepOtherDebt,
	},
	StepOtherDebt: {
		Step:   StepOtherDebt,
		Prompt: "How about medical bills or any other balances you're aware of?",
		Action: ActionCaptureDebt,
		Debt:   DebtOther,
		ArgKey: "other_debt",
		Next:   StepDebtSummary,
	},
	StepDebtSummary: {
		Step:   StepDebtSummary,
		Prompt: "So just to summarize, you have %s in credit card debt, %s in personal loans, and %s in other debt. Does that sound right?",
		Next:   StepMonthlyIncome,
	},
	StepMonthlyIncome: {
		Step:   StepMonthlyIncome,
		Prompt: "Now, can you please provide your monthly income amount?",
		Action: ActionCaptureIncome,
		ArgKey: "monthly_income",
		Next:   StepIncomeConfirmation,
	},
	StepIncomeConfirmation: {
		Step:   StepIncomeConfirmation,
		Prompt: "Thank you, I have your monthly income as %s. Last, I will need the last 4 digits of your Social Security number to securely match your file. This will not impact your credit and does not count as an inquiry because it's a soft credit pull. Can you provide those last 4 digits?",
		ArgKey: "ssn_last_four",
		Next:   StepTransfer,
	},
	StepTransfer: {
		Step:     StepTransfer,
		Prompt:   "Thank you, I appreciate your patience. Now that I have all the necessary information, I will connect you with a senior underwriter who will go over your loan options in detail. Please hold for a moment while I transfer you.",
		Terminal: true,
	},
	StepOptOut: {
		Step:     StepOptOut,
		Prompt:   "I understand. I've removed your number from our call list and you won't be contacted again. Have a good day.",
		Terminal: true,
	},
}

// Describe returns the descriptor for a step
func Describe(s Step) (Descriptor, bool) {
	if !s.Valid() {
		return Descriptor{}, false
	}
	return Steps[s], true
}
