// Package extraction turns transcribed caller answers into structured values.
package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	thousandsPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:thousand|k)\b`)
	millionsPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:million|m)\b`)
	numeralPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	wordSplitter     = regexp.MustCompile(`[^a-z0-9.]+`)
)

var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

const (
	hundred  = 100
	thousand = 1_000
	million  = 1_000_000
)

// Amount extracts a dollar amount from a free-text answer. It understands
// numerals ("50,000", "$1200.50"), shorthand ("50k", "1.5 million") and
// spelled-out numbers ("two hundred thousand"). A result of zero is reported
// as not found.
func Amount(text string) (float64, bool) {
	normalized := normalizeAmount(text)
	if normalized == "" {
		return 0, false
	}

	if m := thousandsPattern.FindStringSubmatch(normalized); m != nil {
		return positive(parseNumeral(m[1]) * thousand)
	}
	if m := millionsPattern.FindStringSubmatch(normalized); m != nil {
		return positive(parseNumeral(m[1]) * million)
	}
	if m := numeralPattern.FindString(normalized); m != "" {
		return positive(parseNumeral(m))
	}

	return positive(spelledAmount(normalized))
}

// IsExplicitZero reports an answer that states there is nothing owed, such
// as "zero", "none" or a bare "no".
func IsExplicitZero(text string) bool {
	words := tokenize(normalizeAmount(text))
	if len(words) == 0 {
		return false
	}

	allNegatives := true
	for _, w := range words {
		switch w {
		case "zero", "none", "nothing", "nil":
			return true
		case "no", "nope", "nah":
		default:
			if f, err := strconv.ParseFloat(w, 64); err == nil && f == 0 {
				return true
			}
			allNegatives = false
		}
	}
	return allNegatives
}

func normalizeAmount(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	return strings.NewReplacer(",", "", "$", "").Replace(text)
}

func tokenize(text string) []string {
	fields := strings.Fields(wordSplitter.ReplaceAllString(text, " "))
	words := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "."); f != "" {
			words = append(words, f)
		}
	}
	return words
}

// spelledAmount accumulates number words: units and tens add to the current
// group, "hundred" scales it, "thousand" and "million" close the group.
func spelledAmount(text string) float64 {
	var total, current float64
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		switch word {
		case "hundred":
			if current == 0 {
				current = hundred
			} else {
				current *= hundred
			}
		case "thousand", "million":
			magnitude := float64(thousand)
			if word == "million" {
				magnitude = million
			}
			if current == 0 {
				current = 1
			}
			total += current * magnitude
			current = 0
		default:
			if v, ok := numberWords[word]; ok {
				current += v
			}
		}
	}
	return total + current
}

func parseNumeral(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func positive(v float64) (float64, bool) {
	if v > 0 {
		return v, true
	}
	return 0, false
}
