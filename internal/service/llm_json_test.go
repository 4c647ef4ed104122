package service

import "testing"

func TestStripLLMFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"bom prefix", "\uFEFF{\"a\":1}", `{"a":1}`},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripLLMFences(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestFirstJSONObject(t *testing.T) {
	t.Run("wrapped in prose", func(t *testing.T) {
		in := "Here you go:\n{\"key\": \"value\"}\nthanks"
		if got := firstJSONObject(in); got != `{"key": "value"}` {
			t.Fatalf("unexpected extraction: %q", got)
		}
	})

	t.Run("braces inside strings ignored", func(t *testing.T) {
		in := `{"text": "a } b { c", "n": 1}`
		if got := firstJSONObject(in); got != in {
			t.Fatalf("unexpected extraction: %q", got)
		}
	})

	t.Run("nested objects", func(t *testing.T) {
		in := `{"outer": {"inner": 2}} trailing`
		if got := firstJSONObject(in); got != `{"outer": {"inner": 2}}` {
			t.Fatalf("unexpected extraction: %q", got)
		}
	})

	t.Run("unbalanced returns empty", func(t *testing.T) {
		if got := firstJSONObject(`{"open": 1`); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
	})

	t.Run("no object returns empty", func(t *testing.T) {
		if got := firstJSONObject("nothing here"); got != "" {
			t.Fatalf("expected empty, got %q", got)
		}
	})
}

func TestExtractJSONPayloadFencedAndWrapped(t *testing.T) {
	in := "```json\nAnalysis:\n{\"top_insight\":\"x\"}\ndone\n```"
	if got := extractJSONPayload(in); got != `{"top_insight":"x"}` {
		t.Fatalf("unexpected payload: %q", got)
	}
}
