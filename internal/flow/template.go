package flow

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholders: {key} must be present in the context, [[key]] may be absent.
var placeholderRe = regexp.MustCompile(`\[\[([A-Za-z0-9_]+)\]\]|\{([A-Za-z0-9_]+)\}`)

// Template is a parsed unit instruction.
type Template struct {
	text     string
	required []string
	optional []string
}

// ParseTemplate extracts the placeholders from an instruction.
func ParseTemplate(text string) Template {
	t := Template{text: text}
	seen := make(map[string]bool)
	for _, m := range placeholderRe.FindAllStringSubmatch(text, -1) {
		optional, key := m[1] != "", m[1]+m[2]
		id := key
		if optional {
			id = "[[" + key
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if optional {
			t.optional = append(t.optional, key)
		} else {
			t.required = append(t.required, key)
		}
	}
	return t
}

// Text returns the unrendered instruction.
func (t Template) Text() string { return t.text }

// Required returns keys referenced with {key}.
func (t Template) Required() []string { return append([]string(nil), t.required...) }

// Optional returns keys referenced with [[key]].
func (t Template) Optional() []string { return append([]string(nil), t.optional...) }

// Render substitutes context values. A line referencing an absent optional
// key is dropped entirely so the output never mentions it. An absent
// required key is an error.
func (t Template) Render(lookup func(key string) (string, bool)) (string, error) {
	lines := strings.Split(t.text, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		var missing string
		drop := false
		rendered := placeholderRe.ReplaceAllStringFunc(line, func(ph string) string {
			m := placeholderRe.FindStringSubmatch(ph)
			optional, key := m[1] != "", m[1]+m[2]
			v, ok := lookup(key)
			switch {
			case ok:
				return v
			case optional:
				drop = true
			default:
				if missing == "" {
					missing = key
				}
			}
			return ph
		})
		if missing != "" {
			return "", fmt.Errorf("render template: %w: %q", ErrMissingInput, missing)
		}
		if !drop {
			out = append(out, rendered)
		}
	}

	return strings.Join(out, "\n"), nil
}
