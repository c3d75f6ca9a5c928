package tts

import (
	"strings"
	"unicode/utf8"
)

// sentenceEnds are the runes after which a chunk may end naturally.
const sentenceEnds = ".!?;:,。！？、；：…"

// splitText breaks text into chunks of at most max runes. Whitespace runs are
// collapsed to single spaces. Breaks fall after punctuation where possible,
// otherwise between words; only words longer than max are cut mid-word.
func splitText(text string, max int) []string {
	var chunks []string
	var cur []string
	curLen := 0

	flush := func(words []string) {
		if len(words) > 0 {
			chunks = append(chunks, strings.Join(words, " "))
		}
	}

	for _, word := range strings.Fields(text) {
		wl := utf8.RuneCountInString(word)
		if wl > max {
			flush(cur)
			cur, curLen = nil, 0
			pieces := cutWord(word, max)
			chunks = append(chunks, pieces[:len(pieces)-1]...)
			last := pieces[len(pieces)-1]
			cur, curLen = []string{last}, utf8.RuneCountInString(last)
			continue
		}

		for len(cur) > 0 && curLen+1+wl > max {
			k := lastSentenceEnd(cur)
			if k < 0 || k == len(cur)-1 {
				flush(cur)
				cur, curLen = nil, 0
				break
			}
			flush(cur[:k+1])
			cur = append([]string(nil), cur[k+1:]...)
			curLen = utf8.RuneCountInString(strings.Join(cur, " "))
		}

		if len(cur) == 0 {
			cur, curLen = []string{word}, wl
		} else {
			cur = append(cur, word)
			curLen += 1 + wl
		}
	}
	flush(cur)
	return chunks
}

// lastSentenceEnd returns the index of the last word ending in punctuation, or -1.
func lastSentenceEnd(words []string) int {
	for i := len(words) - 1; i >= 0; i-- {
		r, _ := utf8.DecodeLastRuneInString(words[i])
		if strings.ContainsRune(sentenceEnds, r) {
			return i
		}
	}
	return -1
}

// cutWord splits a long run of non-space text into pieces of at most max runes,
// preferring to cut just after punctuation.
func cutWord(word string, max int) []string {
	var pieces []string
	runes := []rune(word)
	for len(runes) > max {
		cut := max
		for i := max - 1; i > max/2; i-- {
			if strings.ContainsRune(sentenceEnds, runes[i]) {
				cut = i + 1
				break
			}
		}
		pieces = append(pieces, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}
