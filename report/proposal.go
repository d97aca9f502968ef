// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"strings"
	"unicode"
)

// nounToVerb maps agenda nouns to the infinitive that reads naturally after
// "who proposed" in the protocol.
var nounToVerb = map[string]string{
	"відкриття":    "відкрити",
	"запуск":       "запустити",
	"створення":    "створити",
	"завершення":   "завершити",
	"розгляд":      "розглянути",
	"припинення":   "припинити",
	"оголошення":   "оголосити",
	"затвердження": "затвердити",
	"обрання":      "обрати",
	"цифровізація": "цифровізувати",
	"цифровізацію": "цифровізувати",
}

// proposal rewrites an agenda item as the thing its proposer proposed:
// a leading "Про" is dropped and the first known noun becomes a verb.
// "Про затвердження бюджету" becomes "затвердити бюджету".
func proposal(description string) string {
	words := strings.Fields(description)
	if len(words) > 1 && lowerUK.String(words[0]) == "про" {
		words = words[1:]
	}
	for i, w := range words {
		core := strings.TrimRightFunc(w, unicode.IsPunct)
		if verb, ok := nounToVerb[lowerUK.String(core)]; ok {
			words[i] = verb + w[len(core):]
			break
		}
	}
	return strings.Join(words, " ")
}
