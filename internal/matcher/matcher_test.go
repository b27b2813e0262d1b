package matcher

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tc := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lower cases", input: "HeLLo WoRLD", want: "hello world"},
		{name: "collapses whitespace", input: "  Song   Title  ", want: "song title"},
		{name: "punctuation becomes space", input: "AC/DC", want: "ac dc"},
		{name: "apostrophes are dropped", input: "Don't Stop Me Now", want: "dont stop me now"},
		{name: "curly apostrophes are dropped", input: "Rock ’n’ Roll", want: "rock n roll"},
		{name: "diacritics are folded", input: "Beyoncé – Déjà Vu", want: "beyonce deja vu"},
		{name: "digits are kept", input: "1999 (Remastered 2019)", want: "1999 remastered 2019"},
		{name: "non latin letters are kept", input: "東京事変", want: "東京事変"},
		{name: "kana voicing marks are kept", input: "ガラス", want: "ガラス"},
		{name: "devanagari signs are kept", input: "नमस्ते", want: "नमस्ते"},
		{name: "greek tonos is kept", input: "Άλφα", want: "άλφα"},
		{name: "only punctuation", input: "?!...", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tc := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "Hello", b: "Hello", want: 100},
		{name: "case only", a: "HELLO", b: "hello", want: 100},
		{name: "apostrophe only", a: "Don't Stop Me Now", b: "Dont Stop Me Now", want: 100},
		{name: "diacritics only", a: "Beyoncé", b: "Beyonce", want: 100},
		{name: "separator only", a: "AC/DC", b: "AC DC", want: 100},
		{name: "missing separator", a: "ACDC", b: "AC/DC", want: 800.0 / 9.0},
		{name: "classic pair", a: "kitten", b: "sitting", want: 800.0 / 13.0},
		{name: "suffix", a: "Hello (Remastered)", b: "Hello", want: 1000.0 / 21.0},
		{name: "kana voicing differs", a: "ガラス", b: "カラス", want: 400.0 / 6.0},
		{name: "virama differs", a: "नमस्ते", b: "नमसते", want: 1000.0 / 11.0},
		{name: "disjoint", a: "abc", b: "xyz", want: 0},
		{name: "empty side", a: "", b: "Hello", want: 0},
		{name: "punctuation only side", a: "!!!", b: "abc", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if rev := Score(tt.b, tt.a); math.Abs(rev-got) > 1e-9 {
				t.Errorf("Score is not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestMatchesHonoursThreshold(t *testing.T) {
	pairs := [][2]string{
		{"Bohemian Rhapsody", "Bohemian Rhapsody - Remastered 2011"},
		{"Stairway to Heaven", "Stairway To Heaven"},
		{"ACDC", "AC/DC"},
		{"kitten", "sitting"},
		{"abc", "xyz"},
		{"", "anything"},
	}

	for _, p := range pairs {
		score := Score(p[0], p[1])
		for threshold := 0.0; threshold <= 100; threshold++ {
			if got, want := Matches(p[0], p[1], threshold), score >= threshold; got != want {
				t.Errorf("Matches(%q, %q, %v) = %v, score %v", p[0], p[1], threshold, got, score)
			}
		}
	}
}

type named struct {
	id   string
	name string
}

func nameOf(n named) string { return n.name }

func TestRank(t *testing.T) {
	items := []named{
		{id: "1", name: "Greatest Hits"},
		{id: "2", name: "A Night at the Opera"},
		{id: "3", name: "Greatest Hits II"},
		{id: "4", name: "greatest hits"},
	}

	t.Run("exact threshold keeps only normalized equals in order", func(t *testing.T) {
		ranked := Rank(items, nameOf, "GREATEST HITS", 100)
		if len(ranked) != 2 {
			t.Fatalf("expected 2 candidates, got %d", len(ranked))
		}
		if ranked[0].Item.id != "1" || ranked[1].Item.id != "4" {
			t.Errorf("ties should keep input order, got %s then %s", ranked[0].Item.id, ranked[1].Item.id)
		}
	})

	t.Run("lower threshold orders by score", func(t *testing.T) {
		ranked := Rank(items, nameOf, "Greatest Hits", 80)
		if len(ranked) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(ranked))
		}
		if ranked[2].Item.id != "3" {
			t.Errorf("expected the partial match last, got %s", ranked[2].Item.id)
		}
		for i := 1; i < len(ranked); i++ {
			if ranked[i].Score > ranked[i-1].Score {
				t.Errorf("candidates not sorted by score: %v", ranked)
			}
		}
	})

	t.Run("nothing qualifies", func(t *testing.T) {
		if ranked := Rank(items, nameOf, "Jazz", 100); len(ranked) != 0 {
			t.Errorf("expected no candidates, got %v", ranked)
		}
	})
}

func TestBest(t *testing.T) {
	items := []named{
		{id: "a", name: "Love Song"},
		{id: "b", name: "Love Songs"},
	}

	best, ok := Best(items, nameOf, "Love Songs", 90)
	if !ok {
		t.Fatal("expected a match")
	}
	if best.Item.id != "b" || best.Score != MaxScore {
		t.Errorf("expected exact item b, got %+v", best)
	}

	if _, ok := Best(items, nameOf, "Hate Song", 100); ok {
		t.Error("expected no match")
	}

	kana := []named{{id: "karasu", name: "カラス"}, {id: "garasu", name: "ガラス"}}
	if best, ok := Best(kana, nameOf, "ガラス", 100); !ok || best.Item.id != "garasu" {
		t.Errorf("expected garasu, got %+v (ok=%v)", best, ok)
	}

	if _, ok := Best([]named{}, nameOf, "Love Song", 0); ok {
		t.Error("expected no match from empty input")
	}
}
