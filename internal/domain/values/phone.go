package values

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// PhoneNumber is a caller or destination address normalized to E.164
type PhoneNumber struct {
	number string
}

var (
	// E.164 format regex: + followed by up to 15 digits
	e164Regex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

	// US phone number regex for parsing various formats
	usPhoneRegex = regexp.MustCompile(`^(?:\+?1[-.\s]?)?\(?([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})$`)
)

// NewPhoneNumber parses a phone number, tel: URI or sip: URI into E.164.
// Voice runtimes report caller addresses in any of these shapes.
func NewPhoneNumber(address string) (PhoneNumber, error) {
	number := stripURI(address)
	if number == "" {
		return PhoneNumber{}, PhoneValidationError{Number: address, Reason: "empty"}
	}

	cleaned := cleanPhoneNumber(number)
	if e164Regex.MatchString(cleaned) {
		return PhoneNumber{number: cleaned}, nil
	}

	if normalized, ok := parseUSPhoneNumber(number); ok {
		return PhoneNumber{number: normalized}, nil
	}

	// Bare 10 digit US national numbers arrive without separators
	if len(cleaned) == 10 && cleaned[0] != '+' {
		return PhoneNumber{number: "+1" + cleaned}, nil
	}

	return PhoneNumber{}, PhoneValidationError{Number: address, Reason: "not an E.164 or US number"}
}

// ParseCallerAddress normalizes like NewPhoneNumber when it can and otherwise
// keeps the bare address as reported: international digits without a '+',
// short codes, "anonymous". Only an empty address is rejected.
func ParseCallerAddress(address string) (PhoneNumber, error) {
	if phone, err := NewPhoneNumber(address); err == nil {
		return phone, nil
	}
	raw := strings.TrimSpace(stripURI(address))
	if raw == "" {
		return PhoneNumber{}, PhoneValidationError{Number: address, Reason: "empty"}
	}
	return PhoneNumber{number: raw}, nil
}

// MustNewPhoneNumber creates PhoneNumber and panics on error (for constants/tests)
func MustNewPhoneNumber(number string) PhoneNumber {
	phone, err := NewPhoneNumber(number)
	if err != nil {
		panic(err)
	}
	return phone
}

// String returns the phone number in E.164 format
func (p PhoneNumber) String() string {
	return p.number
}

// IsEmpty checks if the phone number is empty
func (p PhoneNumber) IsEmpty() bool {
	return p.number == ""
}

// IsE164 reports whether the number was normalized to E.164
func (p PhoneNumber) IsE164() bool {
	return e164Regex.MatchString(p.number)
}

// IsUS checks if the phone number is from US/Canada (+1)
func (p PhoneNumber) IsUS() bool {
	return strings.HasPrefix(p.number, "+1")
}

// NationalNumber returns the number without the country code for +1 numbers,
// which is the key the CRM indexes leads by.
func (p PhoneNumber) NationalNumber() string {
	if p.IsUS() {
		return p.number[2:]
	}
	return strings.TrimPrefix(p.number, "+")
}

// MarshalJSON implements JSON marshaling
func (p PhoneNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.number)
}

// UnmarshalJSON implements JSON unmarshaling
func (p *PhoneNumber) UnmarshalJSON(data []byte) error {
	var number string
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	if number == "" {
		*p = PhoneNumber{}
		return nil
	}

	phone, err := ParseCallerAddress(number)
	if err != nil {
		return err
	}

	*p = phone
	return nil
}

// Value implements driver.Valuer for database storage
func (p PhoneNumber) Value() (driver.Value, error) {
	if p.number == "" {
		return nil, nil
	}
	return p.number, nil
}

// Scan implements sql.Scanner for database retrieval
func (p *PhoneNumber) Scan(value interface{}) error {
	if value == nil {
		*p = PhoneNumber{}
		return nil
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return fmt.Errorf("cannot scan %T into PhoneNumber", value)
	}

	if str == "" {
		*p = PhoneNumber{}
		return nil
	}

	phone, err := ParseCallerAddress(str)
	if err != nil {
		return err
	}

	*p = phone
	return nil
}

func stripURI(address string) string {
	s := strings.TrimSpace(address)
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "sip:"):
		s = s[4:]
	case strings.HasPrefix(lower, "sips:"):
		s = s[5:]
	case strings.HasPrefix(lower, "tel:"):
		s = s[4:]
	}
	if at := strings.IndexByte(s, '@'); at >= 0 {
		s = s[:at]
	}
	if semi := strings.IndexByte(s, ';'); semi >= 0 {
		s = s[:semi]
	}
	return s
}

func cleanPhoneNumber(number string) string {
	var b strings.Builder
	for _, char := range number {
		if char >= '0' && char <= '9' || char == '+' {
			b.WriteRune(char)
		}
	}
	return b.String()
}

func parseUSPhoneNumber(number string) (string, bool) {
	matches := usPhoneRegex.FindStringSubmatch(strings.TrimSpace(number))
	if len(matches) != 4 {
		return "", false
	}

	// Format as E.164 (+1AAANNNNNNN)
	return "+1" + matches[1] + matches[2] + matches[3], true
}

// PhoneValidationError represents validation errors for phone numbers
type PhoneValidationError struct {
	Number string
	Reason string
}

func (e PhoneValidationError) Error() string {
	return fmt.Sprintf("invalid phone number '%s': %s", e.Number, e.Reason)
}
