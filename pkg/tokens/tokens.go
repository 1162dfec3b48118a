// Package tokens estimates LLM token counts without a provider tokenizer.
package tokens

import "unicode/utf8"

// Estimate returns an approximate token count for text.
// ASCII runes weigh a quarter token, everything else a full token.
func Estimate(text string) int {
	weight := 0
	for _, r := range text {
		if r <= 127 {
			weight++
		} else {
			weight += 4
		}
	}
	return (weight + 3) / 4
}

// Chars returns the number of runes in text.
func Chars(text string) int {
	return utf8.RuneCountInString(text)
}
