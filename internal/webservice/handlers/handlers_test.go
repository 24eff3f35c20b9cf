package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lvlagency/gforms-gtm/internal/confirmation"
	"github.com/lvlagency/gforms-gtm/internal/plugin"
	"github.com/lvlagency/gforms-gtm/internal/registry"
	"github.com/lvlagency/gforms-gtm/internal/webservice/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slug = "gravityforms-gtm"

type mockRegistry struct {
	metadata registry.Metadata
	fetchErr error

	mu      sync.Mutex
	reports []string
}

func (m *mockRegistry) Fetch(context.Context, string) (registry.Metadata, error) {
	return m.metadata, m.fetchErr
}

func (m *mockRegistry) Report(_ context.Context, _, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, action)
	return nil
}

func (m *mockRegistry) Reports() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reports...)
}

// newPlugin returns a plugin installed in a temporary directory, optionally as a version control checkout.
func newPlugin(t *testing.T, r *mockRegistry, checkout bool) *plugin.Plugin {
	t.Helper()

	dir := filepath.Join(t.TempDir(), slug)
	require.NoError(t, os.MkdirAll(dir, 0700), "Setup: failed to create install dir")
	if checkout {
		require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0700), "Setup: failed to create VCS dir")
	}
	return plugin.New(confirmation.New(nil), r, filepath.Join(dir, slug+".php"), "1.0.0")
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "Response should be valid JSON: %s", rr.Body.String())
	return v
}

func TestConfirmation(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body string

		wantCode     int
		wantContains []string
		wantMissing  []string
	}{
		"Inline HTML": {
			body:         `{"confirmation":"<p>Thanks</p>","form":{"id":3,"title":"Contact","fields":[]},"entry":{"id":"9"},"site":{"id":2,"host":"example.org"}}`,
			wantCode:     http.StatusOK,
			wantContains: []string{"<p>Thanks</p>", "dataLayer.push", `gravity-forms:2-3`, `wordpress:example.org`},
		},
		"Explicit redirect": {
			body:         `{"confirmation":{"redirect":"https://example.com/thanks"},"form":{"id":3,"title":"Contact"},"entry":{"id":"9"},"ajax":true}`,
			wantCode:     http.StatusOK,
			wantContains: []string{"gform_interstitial_message", `window.location.replace("https://example.com/thanks")`},
		},
		"Missing site defaults to the main site": {
			body:         `{"confirmation":"ok","form":{"id":"3","title":"Contact"},"entry":{}}`,
			wantCode:     http.StatusOK,
			wantContains: []string{`gravity-forms:1-3`},
		},
		"Only eligible fields are pushed": {
			body: `{"confirmation":"ok","form":{"id":3,"title":"C","fields":[
				{"id":"1","type":"email","inputName":"email","allowsPrepopulate":true},
				{"id":"2","type":"text","inputName":"secret","allowsPrepopulate":false}]},
				"entry":{"id":"9","1":"a@b.c","2":"hunter2"}}`,
			wantCode:     http.StatusOK,
			wantContains: []string{"a@b.c"},
			wantMissing:  []string{"hunter2", "secret"},
		},

		"Error on invalid JSON":         {body: `{"confirmation":`, wantCode: http.StatusBadRequest},
		"Error on invalid confirmation": {body: `{"confirmation":12}`, wantCode: http.StatusBadRequest},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := handlers.NewConfirmation(newPlugin(t, &mockRegistry{}, false))
			rr := serve(t, h, http.MethodPost, "/confirmation", tc.body)

			require.Equal(t, tc.wantCode, rr.Code, "Unexpected status code: %s", rr.Body.String())
			_, err := uuid.Parse(rr.Header().Get(handlers.RequestIDHeader))
			require.NoError(t, err, "Response should carry a request id")
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			if tc.wantCode != http.StatusOK {
				assert.Equal(t, "invalid_json", decode[map[string]any](t, rr)["code"])
				return
			}

			html := decode[handlers.HTMLResponse](t, rr).HTML
			for _, s := range tc.wantContains {
				assert.Contains(t, html, s)
			}
			for _, s := range tc.wantMissing {
				assert.NotContains(t, html, s)
			}
		})
	}
}

func TestFormArgs(t *testing.T) {
	t.Parallel()

	rr := serve(t, handlers.NewFormArgs(), http.MethodPost, "/form-args", `{"ajax":false,"display_title":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"ajax": true, "display_title": true}, decode[map[string]any](t, rr))

	rr = serve(t, handlers.NewFormArgs(), http.MethodPost, "/form-args", `[1]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Non object arguments should be refused")
}

func TestFormTag(t *testing.T) {
	t.Parallel()

	rr := serve(t, handlers.NewFormTag(), http.MethodPost, "/form-tag",
		`{"tag":"<form data-formid=\"5\">","form":{"id":5,"title":"Quote"},"site":{"id":3}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `<form  data-form-name="Quote" data-form-id="gravity-forms:3-5" data-formid="5">`,
		decode[handlers.FormTagResponse](t, rr).Tag)
}

func TestAssets(t *testing.T) {
	t.Parallel()

	p := newPlugin(t, &mockRegistry{}, false)

	rr := serve(t, handlers.NewCSSVars(p), http.MethodGet, "/css-vars", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "<style>\n:root {--gform-redirect-spinner-color: #000}\n</style>", rr.Body.String())

	rr = serve(t, http.HandlerFunc(handlers.StylesheetHandler), http.MethodGet, "/stylesheet", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, confirmation.Stylesheet(), decode[confirmation.Asset](t, rr))

	rr = serve(t, handlers.NewHooks(p), http.MethodGet, "/hooks", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, p.Hooks(), decode[[]plugin.Hook](t, rr))

	rr = serve(t, http.HandlerFunc(handlers.VersionHandler), http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rr)["version"])
}

func TestUpdateCheck(t *testing.T) {
	t.Parallel()

	newer := registry.Metadata{Releases: []registry.Release{{Version: "1.1.0", DownloadURL: "https://cdn/1.1.0.zip"}}}

	tests := map[string]struct {
		body     string
		registry *mockRegistry

		wantUpdate bool
		wantCode   int
	}{
		"Update available": {
			body:     `{"last_checked":1,"checked":{"gravityforms-gtm/gravityforms-gtm.php":"1.0.0"},"response":{},"translations":[]}`,
			registry: &mockRegistry{metadata: newer}, wantUpdate: true, wantCode: http.StatusOK,
		},
		"Update available with host encoded empty responses": {
			body:     `{"last_checked":1,"checked":{"gravityforms-gtm/gravityforms-gtm.php":"1.0.0"},"response":[],"translations":[]}`,
			registry: &mockRegistry{metadata: newer}, wantUpdate: true, wantCode: http.StatusOK,
		},
		"Nothing pending and not listed": {
			body:     `{"checked":{"other/other.php":"1.0.0"},"response":[],"translations":[]}`,
			registry: &mockRegistry{metadata: newer}, wantCode: http.StatusOK,
		},
		"Not listed": {
			body:     `{"checked":{"other/other.php":"1.0.0"},"response":{}}`,
			registry: &mockRegistry{metadata: newer}, wantCode: http.StatusOK,
		},
		"Registry down fails open": {
			body:     `{"checked":{"gravityforms-gtm/gravityforms-gtm.php":"1.0.0"},"response":{}}`,
			registry: &mockRegistry{fetchErr: registry.ErrFetchFailure}, wantCode: http.StatusOK,
		},

		"Error on invalid list": {body: `{"checked":"nope"}`, registry: &mockRegistry{}, wantCode: http.StatusBadRequest},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rr := serve(t, handlers.NewUpdateCheck(newPlugin(t, tc.registry, false)), http.MethodPost, "/updates/check", tc.body)
			require.Equal(t, tc.wantCode, rr.Code, "Unexpected status code: %s", rr.Body.String())
			if tc.wantCode != http.StatusOK {
				return
			}

			got := decode[map[string]any](t, rr)
			response, ok := got["response"].(map[string]any)
			require.True(t, ok, "Response should carry the update list responses")
			if !tc.wantUpdate {
				assert.Empty(t, response, "No update should be added")
				return
			}
			assert.Equal(t, map[string]any{
				"slug":        slug,
				"plugin":      slug + "/" + slug + ".php",
				"new_version": "1.1.0",
				"package":     "https://cdn/1.1.0.zip",
				"url":         "",
			}, response[slug+"/"+slug+".php"])
			assert.Contains(t, got, "translations", "Unknown keys should be carried through")
		})
	}
}

func TestUpdateInfo(t *testing.T) {
	t.Parallel()

	r := &mockRegistry{metadata: registry.Metadata{Package: registry.Package{Name: "GTM"}, Releases: []registry.Release{{Version: "2.0.0"}}}}
	h := handlers.NewUpdateInfo(newPlugin(t, r, false))

	rr := serve(t, h, http.MethodPost, "/updates/info", `{"action":"plugin_information","slug":"gravityforms-gtm","result":false}`)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[map[string]any](t, rr)
	assert.Equal(t, "GTM", got["name"])
	assert.Equal(t, "2.0.0", got["version"])

	rr = serve(t, h, http.MethodPost, "/updates/info", `{"action":"plugin_information","slug":"akismet","result":{"keep":"me"}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"keep": "me"}, decode[map[string]any](t, rr), "Other packages should pass through")

	rr = serve(t, h, http.MethodPost, "/updates/info", `{"action":"plugin_information","slug":"akismet","result":null}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, "null", rr.Body.String(), "A null result should pass through as JSON null")
}

func TestPreInstall(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		checkout bool
		body     string

		wantCode int
	}{
		"Passthrough":               {body: `{"response":true,"args":{"plugin":"gravityforms-gtm/gravityforms-gtm.php"}}`, wantCode: http.StatusOK},
		"Other package in checkout": {checkout: true, body: `{"response":true,"args":{"plugin":"other/other.php"}}`, wantCode: http.StatusOK},
		"Checkout is blocked":       {checkout: true, body: `{"response":true,"args":{"plugin":"gravityforms-gtm/gravityforms-gtm.php"}}`, wantCode: http.StatusConflict},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := handlers.NewPreInstall(newPlugin(t, &mockRegistry{}, tc.checkout))
			rr := serve(t, h, http.MethodPost, "/updates/pre-install", tc.body)
			require.Equal(t, tc.wantCode, rr.Code, "Unexpected status code: %s", rr.Body.String())

			got := decode[map[string]any](t, rr)
			if tc.wantCode == http.StatusConflict {
				assert.Equal(t, "git_present", got["code"])
				assert.Contains(t, got["message"], slug)
				assert.Equal(t, rr.Header().Get(handlers.RequestIDHeader), got["req_id"])
				return
			}
			assert.Equal(t, map[string]any{"response": true}, got)
		})
	}
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		action string

		wantCode    int
		wantReports []string
	}{
		"Activate":   {action: "activate", wantCode: http.StatusAccepted, wantReports: []string{"activate"}},
		"Deactivate": {action: "deactivate", wantCode: http.StatusAccepted, wantReports: []string{"deactivate"}},

		"Error on unknown action": {action: "uninstall", wantCode: http.StatusNotFound},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := &mockRegistry{}
			mux := http.NewServeMux()
			mux.Handle("POST /lifecycle/{action}", handlers.NewLifecycle(newPlugin(t, r, false)))

			rr := serve(t, mux, http.MethodPost, "/lifecycle/"+tc.action, "")
			require.Equal(t, tc.wantCode, rr.Code, "Unexpected status code: %s", rr.Body.String())
			assert.Equal(t, tc.wantReports, r.Reports())
		})
	}
}

func TestMaxRequestBytes(t *testing.T) {
	t.Parallel()

	h := handlers.NewFormArgs(handlers.WithMaxRequestBytes(16))
	body := `{"padding":"` + string(bytes.Repeat([]byte("x"), 64)) + `"}`

	rr := serve(t, h, http.MethodPost, "/form-args", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, "Oversized bodies should be refused")
	assert.Equal(t, "too_large", decode[map[string]any](t, rr)["code"])
}
