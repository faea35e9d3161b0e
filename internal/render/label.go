package render

import (
	"strings"
	"unicode"
)

var acronyms = map[string]string{
	"id":   "ID",
	"nct":  "NCT",
	"ae":   "AE",
	"sae":  "SAE",
	"pk":   "PK",
	"pd":   "PD",
	"url":  "URL",
	"ecog": "ECOG",
	"bmi":  "BMI",
	"irb":  "IRB",
}

// Humanize turns a member key such as "primary_endpoint" or "armType" into
// a label such as "Primary Endpoint" or "Arm Type".
func Humanize(key string) string {
	words := splitWords(key)
	for i, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = a
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func splitWords(key string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	runes := []rune(key)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}
