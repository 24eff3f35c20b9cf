package confirmation

import (
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/event"
	"github.com/lvlagency/gforms-gtm/internal/forms"
	"golang.org/x/net/html"
)

// cssColor accepts hex, functional and named colors, and rejects anything able to break out of a declaration.
var cssColor = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|(rgb|rgba|hsl|hsla)\([0-9.,%\s/]+\)|var\(--[a-zA-Z0-9_-]+\))$`)

// Asset describes a stylesheet for the host to enqueue.
type Asset struct {
	Handle  string `json:"handle"`
	Path    string `json:"path"`
	Version string `json:"version"`
}

// ForceAjax returns a copy of the form render arguments with AJAX submission turned on.
// Redirect rewriting relies on the confirmation being rendered in place.
func ForceAjax(args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+1)
	maps.Copy(out, args)
	out["ajax"] = true
	return out
}

// ModifyFormTag adds the form name and composite form identifier to the form tag, for client-side tracking.
// Tags already carrying a form name are returned unchanged.
func ModifyFormTag(tag string, site event.Site, form forms.Form) string {
	if strings.Contains(tag, "data-form-name") {
		return tag
	}

	attrs := fmt.Sprintf(` data-form-name="%s" data-form-id="%s" data-formid`,
		html.EscapeString(form.Title), html.EscapeString(event.FormID(site, form.ID)))
	return strings.Replace(tag, "data-formid", attrs, 1)
}

// CSSVars returns the style block exposing the presentation settings as CSS custom properties.
func (a Adapter) CSSVars() string {
	color := a.settings.SpinnerColor()
	if !cssColor.MatchString(color) {
		a.log.Warn("Ignoring invalid spinner color", "color", color)
		color = constants.DefaultSpinnerColor
	}

	return fmt.Sprintf("<style>\n:root {%s: %s}\n</style>", constants.SpinnerColorVar, color)
}

// Stylesheet returns the stylesheet styling the interstitial.
func Stylesheet() Asset {
	return Asset{
		Handle:  constants.Namespace("styles"),
		Path:    constants.StylesheetPath,
		Version: constants.Version,
	}
}
