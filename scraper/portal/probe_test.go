package portal

import (
	"errors"
	"testing"
)

func TestFirstMatchOrdering(t *testing.T) {
	probes := []Probe[string]{
		{Name: "first", Extract: func() (string, error) { return "", nil }},
		{Name: "errors", Extract: func() (string, error) { return "x", errors.New("boom") }},
		{
			Name:      "implausible",
			Extract:   func() (string, error) { return "nope", nil },
			Plausible: func(s string) bool { return false },
		},
		{Name: "winner", Extract: func() (string, error) { return "value", nil }},
		{Name: "never-reached", Extract: func() (string, error) { t.Fatal("probe chain did not stop"); return "", nil }},
	}
	// Give the empty-result probe a plausibility check so it misses.
	probes[0].Plausible = func(s string) bool { return s != "" }

	v, name, ok := FirstMatch(probes)
	if !ok {
		t.Fatal("expected a match")
	}
	if v != "value" || name != "winner" {
		t.Errorf("got (%q, %q), want (value, winner)", v, name)
	}
}

func TestFirstMatchNoMatch(t *testing.T) {
	probes := []Probe[int]{
		{Extract: func() (int, error) { return 0, errors.New("x") }},
		{Extract: func() (int, error) { return 7, nil }, Plausible: func(int) bool { return false }},
	}
	if _, _, ok := FirstMatch(probes); ok {
		t.Fatal("expected no match")
	}
}

func TestProbeTextFallsThroughSelectors(t *testing.T) {
	sess := newFakeSession()
	sess.pages["p"] = &fakePage{
		selectors: map[string][]*fakeElement{
			".secondary": {{text: "A long enough secondary title"}},
		},
	}
	if err := sess.Navigate("p", 0, 0); err != nil {
		t.Fatal(err)
	}

	text, selector, ok := probeText(sess, nil, []string{".primary", ".secondary"}, substantialText)
	if !ok {
		t.Fatal("expected a match from the fallback selector")
	}
	if selector != ".secondary" {
		t.Errorf("selector: got %q, want .secondary", selector)
	}
	if text != "A long enough secondary title" {
		t.Errorf("text: got %q", text)
	}
}

func TestProbeAttrSkipsElementsWithoutAttribute(t *testing.T) {
	sess := newFakeSession()
	sess.pages["p"] = &fakePage{
		selectors: map[string][]*fakeElement{
			"a": {
				{attrs: map[string]string{}},
				{attrs: map[string]string{"href": "https://x.cl/MLC-9"}},
			},
		},
	}
	if err := sess.Navigate("p", 0, 0); err != nil {
		t.Fatal(err)
	}

	href, _, ok := probeAttr(sess, nil, []string{"a"}, "href", anyText)
	if !ok || href != "https://x.cl/MLC-9" {
		t.Errorf("got (%q, %v), want the second anchor's href", href, ok)
	}
}
