// Package matcher scores how closely an external name matches a library name.
//
// Names are normalized before comparison so that case, Latin accents, apostrophes
// and punctuation do not count against a match. The score is the normalized
// Indel similarity of the two strings on a 0-100 scale: 100 means the
// normalized names are equal.
package matcher

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MaxScore is the score of two names that are equal after normalization.
const MaxScore = 100.0

// Normalize lower-cases s, strips accents from Latin letters and drops apostrophes.
// Every other rune that is not a letter, mark or digit becomes a single space.
func Normalize(s string) string {
	folded := cases.Lower(language.Und).String(foldLatin(s))

	var b strings.Builder
	pendingSpace := false
	for _, r := range folded {
		switch {
		case isApostrophe(r):
		case unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// foldLatin removes combining diacritics (U+0300-U+036F) that follow a Latin base rune.
// Marks of other scripts carry meaning (kana voicing, viramas) and are kept.
func foldLatin(s string) string {
	var b strings.Builder
	latin := false
	for _, r := range norm.NFKD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if latin && r >= 0x0300 && r <= 0x036F {
				continue
			}
			b.WriteRune(r)
			continue
		}
		latin = unicode.Is(unicode.Latin, r)
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

func isApostrophe(r rune) bool {
	switch r {
	case '\'', '’', '‘', '`', 'ʼ', '´':
		return true
	}
	return false
}

// Score returns the similarity of a and b in the range [0, 100].
//
// Either name normalizing to the empty string scores 0.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return MaxScore
	}
	total := utf8.RuneCountInString(na) + utf8.RuneCountInString(nb)
	return 2 * MaxScore * float64(edlib.LCS(na, nb)) / float64(total)
}

// Matches reports whether a and b score at or above threshold.
func Matches(a, b string, threshold float64) bool {
	return Score(a, b) >= threshold
}

// Candidate is an item whose name scored at or above a threshold.
type Candidate[T any] struct {
	Item  T
	Score float64
}

// Rank returns the items whose name scores at or above threshold against target,
// best score first. Items with equal scores keep their input order.
func Rank[T any](items []T, name func(T) string, target string, threshold float64) []Candidate[T] {
	var ranked []Candidate[T]
	for _, item := range items {
		if score := Score(name(item), target); score >= threshold {
			ranked = append(ranked, Candidate[T]{Item: item, Score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Best returns the highest scoring item at or above threshold. The boolean is
// false when nothing qualifies.
func Best[T any](items []T, name func(T) string, target string, threshold float64) (Candidate[T], bool) {
	ranked := Rank(items, name, target, threshold)
	if len(ranked) == 0 {
		return Candidate[T]{}, false
	}
	return ranked[0], true
}
