package translation

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// Code points that only ever decorate emoji sequences.
const (
	zeroWidthJoiner     = '\u200d'
	combiningKeycap     = '\u20e3'
	emojiPresentation   = '\ufe0f'
	textPresentation    = '\ufe0e'
	tagSequenceStart    = 0xe0020
	tagSequenceEnd      = 0xe007f
	skinToneModifierMin = 0x1f3fb
	skinToneModifierMax = 0x1f3ff
)

// IsNonTranslatable reports whether s carries no text worth sending to the
// translation service: it is empty, or every grapheme cluster is whitespace,
// punctuation, a symbol or an emoji sequence.
func IsNonTranslatable(s string) bool {
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		if !isDecorativeCluster(gr.Runes()) {
			return false
		}
	}
	return true
}

// AllNonTranslatable reports whether every string in texts is non-translatable.
func AllNonTranslatable(texts []string) bool {
	for _, t := range texts {
		if !IsNonTranslatable(t) {
			return false
		}
	}
	return true
}

func isDecorativeCluster(runes []rune) bool {
	// Keycaps and emoji-presentation sequences start with a letter or digit
	// ("1️⃣", "#️⃣") but render as a single pictograph.
	for _, r := range runes {
		if r == combiningKeycap || r == emojiPresentation {
			return true
		}
	}
	for _, r := range runes {
		if !isDecorativeRune(r) {
			return false
		}
	}
	return true
}

func isDecorativeRune(r rune) bool {
	switch {
	case unicode.IsSpace(r), unicode.IsPunct(r), unicode.IsSymbol(r):
		return true
	case r == zeroWidthJoiner, r == textPresentation:
		return true
	case r >= skinToneModifierMin && r <= skinToneModifierMax:
		return true
	case r >= tagSequenceStart && r <= tagSequenceEnd:
		return true
	case unicode.Is(unicode.Cf, r), unicode.Is(unicode.Mn, r):
		return true
	}
	return false
}
