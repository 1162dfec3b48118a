package session

import (
	"regexp"
	"unicode/utf8"

	"github.com/capitalize-ai/sales-consultant/internal/model"
)

// minTitleWordLen drops short connectives ("de", "a", "o") from titles.
const minTitleWordLen = 3

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// DeriveTitle builds a conversation title from the first two words of the
// first user message, or returns the default title when there are fewer.
// Words shorter than three runes are skipped, so "Oi tudo bem" yields
// "tudo bem".
func DeriveTitle(text string) string {
	var words []string
	for _, w := range wordPattern.FindAllString(text, -1) {
		if utf8.RuneCountInString(w) < minTitleWordLen {
			continue
		}
		words = append(words, w)
		if len(words) == 2 {
			return words[0] + " " + words[1]
		}
	}
	return model.DefaultTitle
}
