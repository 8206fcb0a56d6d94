package policy

import (
	"strings"
	"testing"
)

func TestLengthKeywordPolicy_Route(t *testing.T) {
	p := NewLengthKeywordPolicy(0, nil)

	tests := []struct {
		name   string
		prompt string
		want   Target
	}{
		{"empty", "", TargetLocal},
		{"what time is it", "what time is it", TargetLocal},
		{"length 49", strings.Repeat("a", 49), TargetLocal},
		{"length 50", strings.Repeat("a", 50), TargetCloud},
		{"80 filler", strings.Repeat("x", 80), TargetCloud},
		{"long with TIME", strings.Repeat("x", 80) + " TIME", TargetLocal},
		{"long with Time inside word", strings.Repeat("y", 60) + " sometimes", TargetLocal},
		{"multibyte under bound", strings.Repeat("é", 49), TargetLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Route(tt.prompt).Target; got != tt.want {
				t.Errorf("Route(len=%d) = %v, want %v", len(tt.prompt), got, tt.want)
			}
		})
	}
}

func TestLengthKeywordPolicy_CustomKeywords(t *testing.T) {
	p := NewLengthKeywordPolicy(10, []string{" Weather ", ""})
	if len(p.Keywords) != 1 || p.Keywords[0] != "weather" {
		t.Fatalf("Keywords = %v, want [weather]", p.Keywords)
	}

	d := p.Route("what is the WEATHER like in Lisbon today")
	if d.Target != TargetLocal || d.Reason != "keyword:weather" {
		t.Errorf("Route() = %+v, want local via keyword", d)
	}
	if got := p.Route("what time is it in Lisbon right now").Target; got != TargetCloud {
		t.Errorf("Route() = %v, want cloud once time is no longer a keyword", got)
	}
}

func TestFunc(t *testing.T) {
	var p Policy = Func(func(string) Decision { return Decision{Target: TargetCloud, Reason: "always"} })
	if got := p.Route("hi").Target; got != TargetCloud {
		t.Errorf("Route() = %v, want cloud", got)
	}
}
