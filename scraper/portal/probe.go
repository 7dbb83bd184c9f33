package portal

import (
	"strings"

	"portal-scraper/browser"
)

// Probe is one entry in a fallback chain: an extractor paired with a
// plausibility predicate. Probes are evaluated in order and the first
// plausible result wins.
type Probe[T any] struct {
	Name      string
	Extract   func() (T, error)
	Plausible func(T) bool
}

// FirstMatch runs probes in order and returns the first plausible
// result along with the name of the probe that produced it. Extractor
// errors are treated as misses, not failures.
func FirstMatch[T any](probes []Probe[T]) (T, string, bool) {
	for _, p := range probes {
		v, err := p.Extract()
		if err != nil {
			continue
		}
		if p.Plausible == nil || p.Plausible(v) {
			return v, p.Name, true
		}
	}
	var zero T
	return zero, "", false
}

// probeText tries each selector under root and returns the first text
// that passes plausible. When root is nil the whole page is searched.
func probeText(sess browser.Session, root browser.Element, selectors []string, plausible func(string) bool) (string, string, bool) {
	probes := make([]Probe[string], 0, len(selectors))
	for _, sel := range selectors {
		sel := sel
		probes = append(probes, Probe[string]{
			Name: sel,
			Extract: func() (string, error) {
				els, err := query(sess, root, sel)
				if err != nil || len(els) == 0 {
					return "", err
				}
				return sess.Text(els[0])
			},
			Plausible: func(s string) bool {
				s = strings.TrimSpace(s)
				return s != "" && plausible(s)
			},
		})
	}
	return FirstMatch(probes)
}

// probeAttr tries each selector under root and returns the first value
// of the named attribute that passes plausible.
func probeAttr(sess browser.Session, root browser.Element, selectors []string, name string, plausible func(string) bool) (string, string, bool) {
	probes := make([]Probe[string], 0, len(selectors))
	for _, sel := range selectors {
		sel := sel
		probes = append(probes, Probe[string]{
			Name: sel,
			Extract: func() (string, error) {
				els, err := query(sess, root, sel)
				if err != nil {
					return "", err
				}
				for _, el := range els {
					if v, ok := sess.Attr(el, name); ok && strings.TrimSpace(v) != "" {
						return v, nil
					}
				}
				return "", nil
			},
			Plausible: func(s string) bool {
				return s != "" && plausible(s)
			},
		})
	}
	return FirstMatch(probes)
}

func query(sess browser.Session, root browser.Element, selector string) ([]browser.Element, error) {
	if root == nil {
		return sess.QueryAll(selector)
	}
	return sess.QueryAllIn(root, selector)
}

// Common plausibility predicates.

func anyText(s string) bool { return true }

func substantialText(s string) bool {
	return len(strings.TrimSpace(s)) > 10
}

func priceLikeText(s string) bool {
	if strings.Contains(s, "$") || strings.Contains(s, "UF") || strings.Contains(s, "CLP") {
		return true
	}
	return containsDigit(s)
}

func containsDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
