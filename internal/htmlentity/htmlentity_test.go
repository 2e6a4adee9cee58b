package htmlentity

import "testing"

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Szpital Wojewódzki", want: "Szpital Wojewódzki"},
		{name: "quotes", input: "Szpital &quot;Pod Lipą&quot;", want: "Szpital \"Pod Lipą\""},
		{name: "decimal", input: "Przychodnia &#346;w. &#321;ukasza", want: "Przychodnia Św. Łukasza"},
		{name: "hex", input: "&#x15B;l&#x105;skie", want: "śląskie"},
		{name: "one level only", input: "A &amp;amp; B", want: "A &amp; B"},
		{name: "unknown entity kept", input: "a &foo; b", want: "a &foo; b"},
		{name: "dangling ampersand", input: "R&D", want: "R&D"},
		{name: "invalid code point kept", input: "&#0;", want: "&#0;"},
		{name: "semicolon required", input: "&copy2026 R&amp", want: "&copy2026 R&amp"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decode(tc.input); got != tc.want {
				t.Fatalf("Decode(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestDecode_IdempotentOnEntityFreeText(t *testing.T) {
	t.Parallel()

	input := "ul. Polna 1; Warszawa & okolice"
	once := Decode(input)
	if once != input || Decode(once) != once {
		t.Fatalf("expected entity-free text to be unchanged, got %q", once)
	}
}
