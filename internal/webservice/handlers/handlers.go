// Package handlers provides the HTTP handlers of the bridge serving the host extension points.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/lvlagency/gforms-gtm/internal/confirmation"
	"github.com/lvlagency/gforms-gtm/internal/event"
	"github.com/lvlagency/gforms-gtm/internal/forms"
	"github.com/lvlagency/gforms-gtm/internal/plugin"
	"github.com/lvlagency/gforms-gtm/internal/updater"
)

type options struct {
	maxBytes int64
	log      *slog.Logger
}

// Options represents an optional function to override handler default values.
type Options func(*options)

// WithMaxRequestBytes bounds the size of request bodies.
func WithMaxRequestBytes(n int64) Options {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithLogger sets the logger of the handlers.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

func newOptions(args []Options) options {
	o := options{
		maxBytes: DefaultMaxRequestBytes,
		log:      slog.Default(),
	}
	for _, opt := range args {
		opt(&o)
	}
	return o
}

// defaultSite is the site of single site installs.
const defaultSite = 1

// ConfirmationRequest is the gform_confirmation hook call.
type ConfirmationRequest struct {
	Confirmation confirmation.Confirmation `json:"confirmation"`
	Form         forms.Form                `json:"form"`
	Entry        forms.Entry               `json:"entry"`
	Ajax         bool                      `json:"ajax"`
	Site         event.Site                `json:"site"`
}

// HTMLResponse carries rendered markup.
type HTMLResponse struct {
	HTML string `json:"html"`
}

// NewConfirmation returns the handler rewriting confirmations.
func NewConfirmation(p *plugin.Plugin, args ...Options) http.Handler {
	return newJSONHandler("confirmation", newOptions(args), func(_ context.Context, req ConfirmationRequest) (any, error) {
		if req.Site.ID == 0 {
			req.Site.ID = defaultSite
		}
		html, err := p.Adapter().Render(req.Site, req.Confirmation, req.Form, req.Entry, req.Ajax)
		if err != nil {
			return nil, err
		}
		return HTMLResponse{HTML: html}, nil
	})
}

// NewFormArgs returns the handler forcing AJAX submissions.
func NewFormArgs(args ...Options) http.Handler {
	return newJSONHandler("form-args", newOptions(args), func(_ context.Context, req map[string]any) (any, error) {
		return confirmation.ForceAjax(req), nil
	})
}

// FormTagRequest is the gform_form_tag hook call.
type FormTagRequest struct {
	Tag  string     `json:"tag"`
	Form forms.Form `json:"form"`
	Site event.Site `json:"site"`
}

// FormTagResponse carries the modified form tag.
type FormTagResponse struct {
	Tag string `json:"tag"`
}

// NewFormTag returns the handler annotating form tags.
func NewFormTag(args ...Options) http.Handler {
	return newJSONHandler("form-tag", newOptions(args), func(_ context.Context, req FormTagRequest) (any, error) {
		if req.Site.ID == 0 {
			req.Site.ID = defaultSite
		}
		return FormTagResponse{Tag: confirmation.ModifyFormTag(req.Tag, req.Site, req.Form)}, nil
	})
}

// NewUpdateCheck returns the handler adding the registry update to the host update list.
func NewUpdateCheck(p *plugin.Plugin, args ...Options) http.Handler {
	return newJSONHandler("update-check", newOptions(args), func(ctx context.Context, req updater.UpdateList) (any, error) {
		return p.Checker().CheckForUpdate(ctx, req), nil
	})
}

// UpdateInfoRequest is the plugins_api or themes_api hook call.
type UpdateInfoRequest struct {
	Action string `json:"action"`
	Slug   string `json:"slug"`
	Result any    `json:"result"`
}

// NewUpdateInfo returns the handler answering package detail requests.
func NewUpdateInfo(p *plugin.Plugin, args ...Options) http.Handler {
	return newJSONHandler("update-info", newOptions(args), func(ctx context.Context, req UpdateInfoRequest) (any, error) {
		return p.Checker().PackageInfo(ctx, req.Result, req.Action, updater.InfoQuery{Slug: req.Slug}), nil
	})
}

// PreInstallRequest is the upgrader_pre_install hook call.
type PreInstallRequest struct {
	Response any                 `json:"response"`
	Args     updater.InstallArgs `json:"args"`
}

// PreInstallResponse carries the install response back.
type PreInstallResponse struct {
	Response any `json:"response"`
}

// NewPreInstall returns the handler guarding version control checkouts.
// Blocked installs are answered with 409 Conflict.
func NewPreInstall(p *plugin.Plugin, args ...Options) http.Handler {
	return newJSONHandler("pre-install", newOptions(args), func(_ context.Context, req PreInstallRequest) (any, error) {
		resp, err := p.Checker().PreInstall(req.Response, req.Args)
		if errors.Is(err, updater.ErrVCSCheckout) {
			return nil, statusError{status: http.StatusConflict, code: updater.VCSErrorCode, err: err}
		}
		if err != nil {
			return nil, err
		}
		return PreInstallResponse{Response: resp}, nil
	})
}

// Lifecycle is the handler reporting activations and deactivations.
type Lifecycle struct {
	p   *plugin.Plugin
	log *slog.Logger
}

// NewLifecycle returns the lifecycle handler. The action is read from the "action" path value.
func NewLifecycle(p *plugin.Plugin, args ...Options) *Lifecycle {
	return &Lifecycle{p: p, log: newOptions(args).log}
}

// ServeHTTP reports the lifecycle event and answers 202 Accepted, whether or not the registry got it.
func (h *Lifecycle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(w)
	action := r.PathValue("action")
	h.log.Info("Request recv'd", "req_id", reqID, "handler", "lifecycle", "action", action)

	if !slices.Contains([]string{updater.ActionActivate, updater.ActionDeactivate}, action) {
		writeError(w, reqID, statusError{
			status: http.StatusNotFound,
			code:   "unknown_action",
			err:    fmt.Errorf("unknown lifecycle action %q", action),
		})
		return
	}

	h.p.Checker().ReportLifecycleEvent(r.Context(), action)
	w.WriteHeader(http.StatusAccepted)
}
