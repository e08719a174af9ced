package vision

import (
	"testing"

	"charmforge/internal/domain"
)

const payload = `{"label":"brass key","summary":"A tiny keepsake.","instruction":"render as gold charm"}`

func TestParseDescriptionVariants(t *testing.T) {
	want := domain.Description{
		Label:       "brass key",
		Summary:     "A tiny keepsake.",
		Instruction: "render as gold charm",
	}
	cases := []struct {
		name string
		raw  string
	}{
		{"bare", payload},
		{"fenced", "```json\n" + payload + "\n```"},
		{"fenced no tag", "```\n" + payload + "\n```"},
		{"embedded in prose", "Here is the JSON you asked for:\n" + payload + "\nLet me know if you need anything else."},
		{"array wrapped", "[" + payload + "]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDescription(tc.raw)
			if err != nil {
				t.Fatalf("ParseDescription: %v", err)
			}
			if got != want {
				t.Fatalf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseDescriptionFailures(t *testing.T) {
	for _, raw := range []string{"", "   ", "no json here at all", "{broken"} {
		if _, err := ParseDescription(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
