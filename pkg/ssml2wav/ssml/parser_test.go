package ssml

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

const rootOpen = `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">`

func buildDoc(n int) string {
	var b strings.Builder
	b.WriteString(rootOpen)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\n  <voice name=\"en-US-JennyNeural\">Line %d</voice>", i)
	}
	b.WriteString("\n</speak>")
	return b.String()
}

func TestExtractStripsPrelude(t *testing.T) {
	body := "\n  <voice name=\"a\">Hello <break time=\"200ms\"/> world</voice>\n"
	text := "\uFEFF<?xml version=\"1.0\" encoding=\"utf-8\"?>\n<!-- <speak>not this</speak> -->\n" +
		rootOpen + body + "</speak>\n"

	doc, err := Extract(text)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if doc.Body != body {
		t.Errorf("Body = %q, want %q", doc.Body, body)
	}
	if doc.OpenTag != rootOpen || doc.CloseTag != "</speak>" {
		t.Errorf("tags = %q %q", doc.OpenTag, doc.CloseTag)
	}
	if lang, ok := doc.Attr("xml:lang"); !ok || lang != "en-US" {
		t.Errorf("xml:lang = %q, %v", lang, ok)
	}
	if got := len(doc.Attrs); got != 3 {
		t.Errorf("len(Attrs) = %d, want 3", got)
	}
}

func TestExtractDepthAware(t *testing.T) {
	text := `<speak a="1"><speak>inner</speak><voice name="x">t</voice></speak>trailing</speak>`
	doc, err := Extract(text)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	want := `<speak>inner</speak><voice name="x">t</voice>`
	if doc.Body != want {
		t.Errorf("Body = %q, want %q", doc.Body, want)
	}
}

func TestExtractIgnoresTagsInsideQuotesAndCDATA(t *testing.T) {
	text := `<speak note="</speak>"><voice name="v"><![CDATA[</speak>]]></voice></speak>`
	doc, err := Extract(text)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if doc.Body != `<voice name="v"><![CDATA[</speak>]]></voice>` {
		t.Errorf("Body = %q", doc.Body)
	}
}

func TestExtractSelfClosingRoot(t *testing.T) {
	doc, err := Extract(`<speak version="1.0" />`)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if doc.OpenTag != `<speak version="1.0">` || doc.CloseTag != "</speak>" || doc.Body != "" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestExtractStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no root", `<?xml version="1.0"?><voice name="a">x</voice>`},
		{"root only in comment", `<!-- <speak></speak> -->`},
		{"unclosed root", rootOpen + `<voice name="a">x</voice>`},
		{"nested unclosed", `<speak><speak></speak>`},
		{"unterminated comment", `<!-- <speak></speak>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.text)
			var se *ErrStructural
			if !errors.As(err, &se) {
				t.Fatalf("Extract() error = %v, want *ErrStructural", err)
			}
		})
	}
}

func TestSplitHundredVoices(t *testing.T) {
	doc, err := Extract(buildDoc(100))
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	parts, err := Split(doc, 48)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}

	wantCounts := []int{48, 48, 4}
	if len(parts) != len(wantCounts) {
		t.Fatalf("len(parts) = %d, want %d", len(parts), len(wantCounts))
	}

	var bodies strings.Builder
	var all []Voice
	for i, p := range parts {
		if p.Index != i+1 {
			t.Errorf("parts[%d].Index = %d", i, p.Index)
		}
		if p.VoiceCount != wantCounts[i] {
			t.Errorf("parts[%d].VoiceCount = %d, want %d", i, p.VoiceCount, wantCounts[i])
		}
		if p.Document.OpenTag != rootOpen || p.Document.CloseTag != "</speak>" {
			t.Errorf("parts[%d] root tags not preserved", i)
		}

		// 各パートは単体で再抽出でき、voice 数が一致する
		reparsed, err := Extract(p.Document.String())
		if err != nil {
			t.Fatalf("re-extract part %d: %v", p.Index, err)
		}
		vs, err := Voices(reparsed)
		if err != nil {
			t.Fatalf("Voices(part %d): %v", p.Index, err)
		}
		if len(vs) != p.VoiceCount {
			t.Errorf("part %d has %d voices, want %d", p.Index, len(vs), p.VoiceCount)
		}
		all = append(all, vs...)
		bodies.WriteString(p.Document.Body)
	}

	if bodies.String() != doc.Body {
		t.Error("concatenated part bodies differ from the original body")
	}
	src, _ := Voices(doc)
	if len(all) != len(src) {
		t.Fatalf("voices across parts = %d, want %d", len(all), len(src))
	}
	for i := range src {
		if all[i].Markup != src[i].Markup {
			t.Fatalf("voice %d out of order: %q", i, all[i].Markup)
		}
	}
}

func TestSplitBoundaries(t *testing.T) {
	tests := []struct {
		voices, max int
		want        []int
	}{
		{1, 48, []int{1}},
		{48, 48, []int{48}},
		{49, 48, []int{48, 1}},
		{5, 1, []int{1, 1, 1, 1, 1}},
		{7, 3, []int{3, 3, 1}},
	}
	for _, tt := range tests {
		doc, err := Extract(buildDoc(tt.voices))
		if err != nil {
			t.Fatal(err)
		}
		parts, err := Split(doc, tt.max)
		if err != nil {
			t.Fatalf("Split(%d, %d) error: %v", tt.voices, tt.max, err)
		}
		var got []int
		for _, p := range parts {
			got = append(got, p.VoiceCount)
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("Split(%d voices, max %d) = %v, want %v", tt.voices, tt.max, got, tt.want)
		}
	}
}

func TestSplitIsIdempotent(t *testing.T) {
	doc, _ := Extract(buildDoc(10))
	a, err := Split(doc, 3)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Split(doc, 3)
	if len(a) != len(b) {
		t.Fatalf("part counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Document.String() != b[i].Document.String() {
			t.Errorf("part %d differs between runs", i+1)
		}
	}
}

func TestSplitPassThroughPlacement(t *testing.T) {
	text := `<speak xml:lang="ja-JP"><mstts:backgroundaudio src="bg.wav"/>` +
		`<voice name="a">1</voice><bookmark mark="m"/><voice name="b">2</voice>` +
		`<voice name="c">3</voice><!-- end --></speak>`
	doc, err := Extract(text)
	if err != nil {
		t.Fatal(err)
	}
	parts, err := Split(doc, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d", len(parts))
	}
	wantFirst := `<mstts:backgroundaudio src="bg.wav"/><voice name="a">1</voice><bookmark mark="m"/><voice name="b">2</voice>`
	if parts[0].Document.Body != wantFirst {
		t.Errorf("first body = %q", parts[0].Document.Body)
	}
	if parts[1].Document.Body != `<voice name="c">3</voice><!-- end -->` {
		t.Errorf("last body = %q", parts[1].Document.Body)
	}
}

func TestSplitNestedVoicesStayWhole(t *testing.T) {
	text := `<speak><voice name="outer">a<voice name="inner">b</voice>c</voice>` +
		`<p><voice name="wrapped">d</voice></p><voice name="last">e</voice></speak>`
	doc, err := Extract(text)
	if err != nil {
		t.Fatal(err)
	}
	voices, err := Voices(doc)
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != 2 {
		t.Fatalf("len(voices) = %d, want 2", len(voices))
	}
	if voices[0].Markup != `<voice name="outer">a<voice name="inner">b</voice>c</voice>` {
		t.Errorf("voices[0] = %q", voices[0].Markup)
	}
	if voices[0].Name() != "outer" || voices[1].Name() != "last" {
		t.Errorf("names = %q, %q", voices[0].Name(), voices[1].Name())
	}

	parts, err := Split(doc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if !strings.Contains(parts[1].Document.Body, `<p><voice name="wrapped">d</voice></p>`) {
		t.Errorf("wrapped voice should travel with the following segment: %q", parts[1].Document.Body)
	}
}

func TestSplitCaseInsensitiveTags(t *testing.T) {
	doc, err := Extract(`<SPEAK><Voice name='a'>x</VOICE><voice NAME=b>y</voice></Speak>`)
	if err != nil {
		t.Fatal(err)
	}
	n, err := CountVoices(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("CountVoices() = %d, want 2", n)
	}
}

func TestSplitZeroVoices(t *testing.T) {
	doc, err := Extract(`<speak version="1.0">Just text.</speak>`)
	if err != nil {
		t.Fatal(err)
	}
	parts, err := Split(doc, 48)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("len(parts) = %d, want 0", len(parts))
	}
}

func TestSplitRejectsNonPositiveMax(t *testing.T) {
	doc, _ := Extract(buildDoc(2))
	for _, max := range []int{0, -1} {
		_, err := Split(doc, max)
		var ie *ErrInvalidMaxVoices
		if !errors.As(err, &ie) || ie.Value != max {
			t.Errorf("Split(max=%d) error = %v", max, err)
		}
	}
}

func TestSplitUnclosedVoice(t *testing.T) {
	doc := &Document{OpenTag: "<speak>", CloseTag: "</speak>", Body: `<voice name="a">never closed`}
	_, err := Split(doc, 48)
	var se *ErrStructural
	if !errors.As(err, &se) {
		t.Errorf("Split() error = %v, want *ErrStructural", err)
	}
}

func TestParseAttrs(t *testing.T) {
	attrs := parseAttrs(`<voice name="en-US-Jenny" effect='eq_car' flag data-x = "a > b" />`)
	want := []Attr{
		{Name: "name", Value: "en-US-Jenny"},
		{Name: "effect", Value: "eq_car"},
		{Name: "flag"},
		{Name: "data-x", Value: "a > b"},
	}
	if fmt.Sprint(attrs) != fmt.Sprint(want) {
		t.Errorf("parseAttrs() = %v, want %v", attrs, want)
	}
}
