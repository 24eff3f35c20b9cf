package confirmation

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var redirectAssignment = regexp.MustCompile(`document\.location\.href\s*=\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')\s*;`)

// extractRedirect finds the target the form builder's client redirect script navigates to.
// Only the contents of script elements are searched.
func extractRedirect(confirmation string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(confirmation))

	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed markup: either way there is nothing left to read.
			return "", false

		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = atom.Lookup(name) == atom.Script

		case html.EndTagToken:
			inScript = false

		case html.TextToken:
			if !inScript {
				continue
			}
			m := redirectAssignment.FindSubmatch(z.Text())
			if m == nil {
				continue
			}
			target := unquoteTarget(m[1], m[2])
			if target == "" {
				continue
			}
			return target, true
		}
	}
}

// unquoteTarget decodes the captured redirect literal. The host writes double quoted targets as JSON strings.
func unquoteTarget(double, single []byte) string {
	if single != nil {
		return strings.ReplaceAll(string(single), `\/`, `/`)
	}
	var target string
	if err := json.Unmarshal([]byte(`"`+string(double)+`"`), &target); err != nil {
		return strings.ReplaceAll(string(double), `\/`, `/`)
	}
	return target
}
