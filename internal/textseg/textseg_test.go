package textseg

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Corphon/PsychoPedia/internal/models"
)

func hl(text, color string) models.Highlight {
	return models.Highlight{Text: text, Color: color}
}

func TestExtractBold(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		plain    string
		expected []BoldRange
	}{
		{
			name:     "single pair",
			raw:      "The **brain** is plastic.",
			plain:    "The brain is plastic.",
			expected: []BoldRange{{Start: 4, End: 9}},
		},
		{
			name:     "several pairs keep ascending order",
			raw:      "**Id**, **ego** and **superego**",
			plain:    "Id, ego and superego",
			expected: []BoldRange{{Start: 0, End: 2}, {Start: 4, End: 7}, {Start: 12, End: 20}},
		},
		{
			name:     "no markup",
			raw:      "plain prose",
			plain:    "plain prose",
			expected: nil,
		},
		{
			name:     "unmatched delimiter stays literal",
			raw:      "a ** b",
			plain:    "a ** b",
			expected: nil,
		},
		{
			name:     "trailing open delimiter after a pair",
			raw:      "**a** and **b",
			plain:    "a and **b",
			expected: []BoldRange{{Start: 0, End: 1}},
		},
		{
			name:     "empty emphasis yields zero length range",
			raw:      "a****b",
			plain:    "ab",
			expected: []BoldRange{{Start: 1, End: 1}},
		},
		{
			name:     "only empty emphasis",
			raw:      "****",
			plain:    "",
			expected: []BoldRange{{Start: 0, End: 0}},
		},
		{
			name:     "arabic text uses byte offsets",
			raw:      "الدماغ **مرن** جداً",
			plain:    "الدماغ مرن جداً",
			expected: []BoldRange{{Start: len("الدماغ "), End: len("الدماغ مرن")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain, ranges := ExtractBold(tt.raw)
			if plain != tt.plain {
				t.Errorf("plain = %q, want %q", plain, tt.plain)
			}
			if !reflect.DeepEqual(ranges, tt.expected) {
				t.Errorf("ranges = %v, want %v", ranges, tt.expected)
			}
		})
	}
}

func TestExtractBoldRoundTrip(t *testing.T) {
	inputs := []string{
		"The **brain** is plastic.",
		"**Id**, **ego** and **superego**",
		"**start** middle **end**",
		"no markup at all",
		"**علم النفس** هو دراسة **السلوك**",
	}

	for _, raw := range inputs {
		plain, ranges := ExtractBold(raw)

		var b strings.Builder
		last := 0
		for _, r := range ranges {
			b.WriteString(plain[last:r.Start])
			b.WriteString("**")
			b.WriteString(plain[r.Start:r.End])
			b.WriteString("**")
			last = r.End
		}
		b.WriteString(plain[last:])

		if b.String() != raw {
			t.Errorf("re-inserting delimiters gave %q, want %q", b.String(), raw)
		}
	}
}

func TestLocateHighlights(t *testing.T) {
	tests := []struct {
		name       string
		plain      string
		highlights []models.Highlight
		expected   []HighlightRange
	}{
		{
			name:       "longer highlight swallows contained shorter one",
			plain:      "cats and dogs",
			highlights: []models.Highlight{hl("cats and dogs", "yellow"), hl("dogs", "green")},
			expected:   []HighlightRange{{Start: 0, End: 13, Color: "yellow"}},
		},
		{
			name:       "longer wins regardless of saved order",
			plain:      "cats and dogs",
			highlights: []models.Highlight{hl("dogs", "green"), hl("cats and dogs", "yellow")},
			expected:   []HighlightRange{{Start: 0, End: 13, Color: "yellow"}},
		},
		{
			name:       "partial overlap drops the shorter",
			plain:      "the quick brown fox",
			highlights: []models.Highlight{hl("brown fox", "green"), hl("quick brown", "yellow")},
			expected:   []HighlightRange{{Start: 4, End: 15, Color: "yellow"}},
		},
		{
			name:       "case insensitive, every occurrence",
			plain:      "Memory and MEMORY",
			highlights: []models.Highlight{hl("memory", "pink")},
			expected:   []HighlightRange{{Start: 0, End: 6, Color: "pink"}, {Start: 11, End: 17, Color: "pink"}},
		},
		{
			name:       "regex metacharacters are literal",
			plain:      "x (a+b) y",
			highlights: []models.Highlight{hl("(a+b)", "blue")},
			expected:   []HighlightRange{{Start: 2, End: 7, Color: "blue"}},
		},
		{
			name:       "blank text ignored",
			plain:      "some text",
			highlights: []models.Highlight{hl("   ", "blue"), hl("", "red")},
			expected:   nil,
		},
		{
			name:       "missing text yields nothing",
			plain:      "content was edited",
			highlights: []models.Highlight{hl("original wording", "blue")},
			expected:   nil,
		},
		{
			name:       "invalid utf-8 text is skipped",
			plain:      "abc \xff def",
			highlights: []models.Highlight{hl("\xff", "red"), hl("def", "blue")},
			expected:   []HighlightRange{{Start: 6, End: 9, Color: "blue"}},
		},
		{
			name:       "disjoint highlights are sorted by start",
			plain:      "alpha beta gamma",
			highlights: []models.Highlight{hl("gamma", "red"), hl("alpha", "blue")},
			expected:   []HighlightRange{{Start: 0, End: 5, Color: "blue"}, {Start: 11, End: 16, Color: "red"}},
		},
		{
			name:       "equal length ties keep saved order",
			plain:      "abcd",
			highlights: []models.Highlight{hl("bc", "red"), hl("ab", "blue"), hl("cd", "green")},
			expected:   []HighlightRange{{Start: 1, End: 3, Color: "red"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LocateHighlights(tt.plain, tt.highlights)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("LocateHighlights() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLocateHighlightsEmptyText(t *testing.T) {
	if got := LocateHighlights("", []models.Highlight{hl("a", "red")}); got != nil {
		t.Errorf("expected no ranges for empty text, got %v", got)
	}
}

func TestBuildSegmentsPlainText(t *testing.T) {
	text := "Nothing to style here."
	got := BuildSegments(text, nil, nil)
	want := []Segment{{Start: 0, End: len(text), Text: text}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildSegments() = %v, want %v", got, want)
	}
}

func TestBuildSegmentsEmpty(t *testing.T) {
	if got := BuildSegments("", []BoldRange{{0, 0}}, []HighlightRange{{0, 0, "red"}}); len(got) != 0 {
		t.Errorf("expected no segments, got %v", got)
	}
}

func TestProcessBrainExample(t *testing.T) {
	res := Process("The **brain** is plastic.", nil)

	if res.PlainText != "The brain is plastic." {
		t.Fatalf("plain text = %q", res.PlainText)
	}
	want := []Segment{
		{Start: 0, End: 4, Text: "The "},
		{Start: 4, End: 9, Text: "brain", IsBold: true},
		{Start: 9, End: 21, Text: " is plastic."},
	}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Errorf("segments = %v, want %v", res.Segments, want)
	}
}

func TestProcessBoldAndHighlightOverlay(t *testing.T) {
	res := Process("The **brain** is plastic.", []models.Highlight{hl("BRAIN IS", "#fff59d")})

	want := []Segment{
		{Start: 0, End: 4, Text: "The "},
		{Start: 4, End: 9, Text: "brain", IsBold: true, HighlightColor: "#fff59d"},
		{Start: 9, End: 12, Text: " is", HighlightColor: "#fff59d"},
		{Start: 12, End: 21, Text: " plastic."},
	}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Errorf("segments = %v, want %v", res.Segments, want)
	}
}

func TestProcessWholeStringHighlight(t *testing.T) {
	res := Process("cats and dogs", []models.Highlight{hl("cats and dogs", "yellow"), hl("dogs", "green")})

	want := []Segment{{Start: 0, End: 13, Text: "cats and dogs", HighlightColor: "yellow"}}
	if !reflect.DeepEqual(res.Segments, want) {
		t.Errorf("segments = %v, want %v", res.Segments, want)
	}
}

func TestProcessEmptyParagraph(t *testing.T) {
	res := Process("", []models.Highlight{hl("anything", "red")})
	if len(res.Segments) != 0 {
		t.Errorf("expected no segments, got %v", res.Segments)
	}
}

func TestSegmentsPartitionText(t *testing.T) {
	cases := []struct {
		raw        string
		highlights []models.Highlight
	}{
		{"**a** b **c**", []models.Highlight{hl("a b", "red")}},
		{"one **two three** four", []models.Highlight{hl("three four", "red"), hl("one", "blue")}},
		{"a****b", nil},
		{"**all bold**", []models.Highlight{hl("all bold", "green"), hl("bold", "red")}},
		{"overlap **across bold** edges", []models.Highlight{hl("p across", "red"), hl("bold edges", "blue")}},
		{"**التعلم** و**الذاكرة**", []models.Highlight{hl("و", "red")}},
	}

	for _, c := range cases {
		res := Process(c.raw, c.highlights)

		cursor := 0
		var rebuilt strings.Builder
		for _, seg := range res.Segments {
			if seg.Start != cursor {
				t.Fatalf("%q: segment starts at %d, expected %d", c.raw, seg.Start, cursor)
			}
			if seg.End <= seg.Start {
				t.Fatalf("%q: empty segment %v", c.raw, seg)
			}
			rebuilt.WriteString(seg.Text)
			cursor = seg.End
		}
		if cursor != len(res.PlainText) {
			t.Errorf("%q: segments end at %d, text length %d", c.raw, cursor, len(res.PlainText))
		}
		if rebuilt.String() != res.PlainText {
			t.Errorf("%q: rebuilt %q, want %q", c.raw, rebuilt.String(), res.PlainText)
		}

		for i := range res.HighlightRanges {
			for j := i + 1; j < len(res.HighlightRanges); j++ {
				a, b := res.HighlightRanges[i], res.HighlightRanges[j]
				if overlaps(a.Start, a.End, b.Start, b.End) {
					t.Errorf("%q: accepted ranges overlap: %v %v", c.raw, a, b)
				}
			}
		}
	}
}

func TestSegmentPredicates(t *testing.T) {
	if !(Segment{}).IsPlain() {
		t.Error("zero segment should be plain")
	}
	if (Segment{IsBold: true}).IsPlain() {
		t.Error("bold segment is not plain")
	}
	if !(Segment{HighlightColor: "red"}).IsHighlighted() {
		t.Error("colored segment should be highlighted")
	}
}
