// Package naming converts route segments and entity names between the casing
// conventions used for class lookups, identifiers and display text.
package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Studly upper-cases the first letter of every word and joins them: "api-keys" -> "ApiKeys".
// The remaining letters of each word keep their case.
func Studly(s string) string {
	var result strings.Builder
	for _, word := range splitWords(s) {
		result.WriteString(Ucfirst(word))
	}
	return result.String()
}

func CamelCase(s string) string {
	studly := Studly(s)
	if studly == "" {
		return studly
	}
	runes := []rune(studly)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func SnakeCase(s string) string {
	return joinLower(s, "_")
}

func KebabCase(s string) string {
	return joinLower(s, "-")
}

// Title lower-cases every word, capitalizes it and joins with spaces: "api_keys" -> "Api Keys".
func Title(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = capitalize(word)
	}
	return strings.Join(words, " ")
}

// Ucfirst upper-cases the first rune only.
func Ucfirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func Singular(s string) string {
	if s == "" {
		return s
	}
	return inflection.Singular(s)
}

func Plural(s string) string {
	if s == "" {
		return s
	}
	return inflection.Plural(s)
}

// SingularTitle is the display form of one entity: "api-keys" -> "Api Key".
func SingularTitle(entity string) string {
	return Title(Singular(entity))
}

// PluralTitle is the display form of many entities: "invoice" -> "Invoices".
func PluralTitle(entity string) string {
	return Title(Plural(entity))
}

// TrackingVariable is the shared variable holding the last touched ID of an entity:
// "api-keys" -> "last_api_keys_id".
func TrackingVariable(entity string) string {
	return "last_" + SnakeCase(entity) + "_id"
}

func joinLower(s, sep string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, sep)
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				if current.Len() > 0 {
					words = append(words, current.String())
					current.Reset()
				}
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

// ProjectName cleans an application name for use inside URLs and hostnames:
// lower case, spaces to dashes, only [a-z0-9-_], runs of separators collapsed.
func ProjectName(appName string) string {
	clean := strings.ReplaceAll(strings.ToLower(appName), " ", "-")

	var b strings.Builder
	lastSep := false
	for _, r := range clean {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSep = false
		case r == '-' || r == '_':
			if !lastSep {
				b.WriteRune('-')
			}
			lastSep = true
		}
	}

	result := strings.Trim(b.String(), "-_")
	if result == "" {
		return "project"
	}
	return result
}

// ReplaceProjectName substitutes the ${{projectName}} placeholder.
func ReplaceProjectName(s, project string) string {
	return strings.ReplaceAll(s, "${{projectName}}", project)
}
