// Package confirmation rewrites form confirmations so every submission pushes an analytics event,
// and redirects go through a delayed client-side redirect behind an interstitial message.
package confirmation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/event"
	"github.com/lvlagency/gforms-gtm/internal/forms"
	"github.com/microcosm-cc/bluemonday"
)

// Settings are the operator-overridable presentation settings of the redirect.
type Settings interface {
	RedirectDelay() time.Duration
	InterstitialText() string
	SpinnerColor() string
}

// Defaults are the settings used when the operator does not override anything.
type Defaults struct{}

// RedirectDelay returns the default redirect delay.
func (Defaults) RedirectDelay() time.Duration { return constants.DefaultRedirectDelay }

// InterstitialText returns the default interstitial message.
func (Defaults) InterstitialText() string { return constants.DefaultInterstitialText }

// SpinnerColor returns the default spinner color.
func (Defaults) SpinnerColor() string { return constants.DefaultSpinnerColor }

// Confirmation is what the form builder is about to show after a submission:
// either inline HTML or a redirect instruction.
type Confirmation struct {
	HTML     string
	Redirect string
}

// UnmarshalJSON accepts either a JSON string (inline HTML) or an object carrying a redirect key.
func (c *Confirmation) UnmarshalJSON(data []byte) error {
	var html string
	if err := json.Unmarshal(data, &html); err == nil {
		*c = Confirmation{HTML: html}
		return nil
	}

	var redirect struct {
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(data, &redirect); err != nil {
		return fmt.Errorf("confirmation is neither HTML nor a redirect: %v", err)
	}
	*c = Confirmation{Redirect: redirect.Redirect}
	return nil
}

// Adapter renders confirmations.
type Adapter struct {
	settings Settings
	policy   *bluemonday.Policy

	log *slog.Logger
}

type options struct {
	log *slog.Logger
}

// Options represents an optional function to override Adapter default values.
type Options func(*options)

// WithLogger sets the logger used by the adapter.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// New returns a new Adapter reading its presentation settings from s.
// A nil s uses Defaults.
func New(s Settings, args ...Options) *Adapter {
	opts := options{log: slog.Default()}
	for _, opt := range args {
		opt(&opts)
	}

	if s == nil {
		s = Defaults{}
	}

	return &Adapter{
		settings: s,
		policy:   bluemonday.UGCPolicy(),
		log:      opts.log,
	}
}

// Render returns the HTML to show for the submission of entry on form.
//
// The submit event is always pushed. An explicit redirect is replaced with the interstitial, the event
// and a delayed redirect. A confirmation relying on the form builder's own client redirect has its target
// extracted and is replaced with the event and a delayed redirect; if no target can be found, the original
// HTML is kept and the event appended. Any other confirmation gets the event appended.
func (a Adapter) Render(site event.Site, c Confirmation, form forms.Form, entry forms.Entry, ajax bool) (string, error) {
	a.log.Debug("Rendering confirmation", "form", form.ID, "ajax", ajax, "redirect", c.Redirect != "")

	push, err := pushScript(event.New(site, form, entry))
	if err != nil {
		return "", fmt.Errorf("could not build submit event for form %d: %v", form.ID, err)
	}

	delay := a.settings.RedirectDelay()

	if c.Redirect != "" {
		redirect, err := redirectScript(c.Redirect, delay)
		if err != nil {
			return "", err
		}
		return a.Interstitial() + push + redirect, nil
	}

	if !strings.Contains(c.HTML, constants.RedirectMarker) {
		return c.HTML + push, nil
	}

	target, ok := extractRedirect(c.HTML)
	if !ok {
		a.log.Warn("Confirmation uses a client redirect but no target could be found, keeping it as is", "form", form.ID)
		return c.HTML + push, nil
	}

	redirect, err := redirectScript(target, delay)
	if err != nil {
		return "", err
	}
	return push + redirect, nil
}

// Interstitial returns the message block shown while a redirect is pending.
func (a Adapter) Interstitial() string {
	text := a.policy.Sanitize(a.settings.InterstitialText())

	return strings.Join([]string{
		`<div class="gform_interstitial_message">`,
		`<div class="gform_interstitial_message_spinner"></div>`,
		`<div class="gform_interstitial_message_text">` + text + `</div>`,
		`</div>`,
	}, "\n")
}

func pushScript(d event.Descriptor) (string, error) {
	// json.Marshal escapes <, > and &, so the payload can't close the script element.
	form, err := json.Marshal(d)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`
<script>
window.dataLayer = window.dataLayer || [];
dataLayer.push({
  event: %q,
  form: %s,
});
</script>
`, constants.SubmitEventName, form), nil
}

func redirectScript(target string, delay time.Duration) (string, error) {
	t, err := json.Marshal(target)
	if err != nil {
		return "", fmt.Errorf("could not encode redirect target: %v", err)
	}

	return fmt.Sprintf(`
<script>
setTimeout(function(){
  window.location.replace(%s);
}, %d);
</script>
`, t, delay.Milliseconds()), nil
}
