package intake

import "fmt"

// Tier classifies total unsecured debt and selects the transfer destination
type Tier int

const (
	TierNone Tier = iota
	TierLow
	TierMid
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "NONE"
	case TierLow:
		return "LOW"
	case TierMid:
		return "MID"
	case TierHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// ParseTier resolves a tier name
func ParseTier(name string) (Tier, error) {
	switch name {
	case "NONE", "":
		return TierNone, nil
	case "LOW":
		return TierLow, nil
	case "MID":
		return TierMid, nil
	case "HIGH":
		return TierHigh, nil
	default:
		return TierNone, fmt.Errorf("unknown tier %q", name)
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	if t < TierNone || t > TierHigh {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	tier, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// Employment is the caller's employment category
type Employment int

const (
	EmploymentEmployed Employment = iota + 1
	EmploymentSelfEmployed
	EmploymentFixedIncome
	EmploymentUnemployed
)

func (e Employment) String() string {
	switch e {
	case EmploymentEmployed:
		return "employed"
	case EmploymentSelfEmployed:
		return "self_employed"
	case EmploymentFixedIncome:
		return "fixed_income"
	case EmploymentUnemployed:
		return "unemployed"
	default:
		return "unknown"
	}
}

// ParseEmployment resolves a category name
func ParseEmployment(name string) (Employment, error) {
	for _, e := range []Employment{EmploymentEmployed, EmploymentSelfEmployed, EmploymentFixedIncome, EmploymentUnemployed} {
		if e.String() == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("unknown employment category %q", name)
}

func (e Employment) MarshalText() ([]byte, error) {
	if e < EmploymentEmployed || e > EmploymentUnemployed {
		return nil, fmt.Errorf("invalid employment category %d", int(e))
	}
	return []byte(e.String()), nil
}

func (e *Employment) UnmarshalText(text []byte) error {
	v, err := ParseEmployment(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
