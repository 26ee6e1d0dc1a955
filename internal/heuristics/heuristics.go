// Package heuristics holds the fuzzy text rules of the ledger. Each rule is
// a pure function with an explicit fallback so it can be replaced without
// touching the import or aggregation pipelines.
package heuristics

import (
	"strings"
	"unicode"

	"crocus/internal/config"
	"crocus/internal/models"
)

// words splits text into upper-cased alphanumeric words.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokens(text string) map[string]bool {
	ws := words(text)
	set := make(map[string]bool, len(ws))
	for _, w := range ws {
		set[w] = true
	}
	return set
}

// matches reports whether any keyword occurs in text. Single-word keywords
// must match a whole word; phrases match as substrings.
func matches(text string, set map[string]bool, keywords []string) bool {
	upper := strings.ToUpper(text)
	for _, k := range keywords {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if strings.ContainsAny(k, " -/") {
			if strings.Contains(upper, k) {
				return true
			}
			continue
		}
		if set[k] {
			return true
		}
	}
	return false
}

// PaymentMethod guesses how money moved from a statement description.
// Markers are checked in the order card, iban, cash, transfer; anything
// else is a bank movement.
func PaymentMethod(description string, kw config.PaymentKeywords) models.PaymentMethod {
	set := tokens(description)
	switch {
	case matches(description, set, kw.Card):
		return models.PaymentCard
	case matches(description, set, kw.IBAN):
		return models.PaymentIBAN
	case matches(description, set, kw.Cash):
		return models.PaymentCash
	case matches(description, set, kw.Transfer):
		return models.PaymentBank
	default:
		return models.PaymentBank
	}
}

// DetectOwner finds the single owner whose name or alias appears in text.
// No match or more than one matching owner returns false.
func DetectOwner(text string, owners []config.Owner) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	set := tokens(text)

	found := ""
	for _, o := range owners {
		names := append([]string{o.Name}, o.Aliases...)
		if !matchesName(set, names) {
			continue
		}
		if found != "" && found != o.ID {
			return "", false
		}
		found = o.ID
	}
	return found, found != ""
}

// matchesName requires every word of a multi-word name to be present.
func matchesName(set map[string]bool, names []string) bool {
	for _, n := range names {
		parts := words(n)
		if len(parts) == 0 {
			continue
		}
		all := true
		for _, p := range parts {
			if !set[p] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// IsCogs reports whether an expense category counts as cost of goods sold:
// either explicitly marked cogs or an expense whose name contains one of
// the markers.
func IsCogs(category *models.Category, markers []string) bool {
	if category == nil {
		return false
	}
	switch category.Side {
	case models.CategorySideCogs:
		return true
	case models.CategorySideExpense:
		name := strings.ToLower(category.Name)
		for _, m := range markers {
			m = strings.ToLower(strings.TrimSpace(m))
			if m != "" && strings.Contains(name, m) {
				return true
			}
		}
	}
	return false
}
