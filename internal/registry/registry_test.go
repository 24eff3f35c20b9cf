package registry_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/lvlagency/gforms-gtm/internal/environment"
	"github.com/lvlagency/gforms-gtm/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEnv = environment.Environment{
	RuntimeVersion:  "8.2.12",
	PlatformVersion: "6.5.3",
	DatabaseVersion: "8.0.36",
	Hostname:        "example.org",
	ServerSoftware:  "Apache",
}

// recorder is a fake registry recording the requests it serves.
type recorder struct {
	status int
	body   string
	delay  time.Duration

	mu       sync.Mutex
	requests []recorded
}

type recorded struct {
	method string
	path   string
	query  url.Values
	header http.Header
	form   url.Values
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	form, _ := url.ParseQuery(string(body))

	r.mu.Lock()
	r.requests = append(r.requests, recorded{
		method: req.Method,
		path:   req.URL.Path,
		query:  req.URL.Query(),
		header: req.Header.Clone(),
		form:   form,
	})
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-req.Context().Done():
			return
		}
	}

	w.WriteHeader(r.status)
	_, _ = io.WriteString(w, r.body)
}

func (r *recorder) Requests() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.requests...)
}

func newServer(t *testing.T, rec *recorder) string {
	t.Helper()
	ts := httptest.NewServer(rec)
	t.Cleanup(ts.Close)
	return ts.URL + "/api/packages"
}

func TestFetch(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status  int
		body    string
		delay   time.Duration
		offline bool

		want    registry.Metadata
		wantErr bool
	}{
		"Full metadata": {
			status: http.StatusOK,
			body: `{"package":{"name":"Gravity Forms GTM"},"releases":[
				{"version":"1.2.0","tag_name":"v1.2.0","download_url":"https://cdn/1.2.0.zip","html_url":"https://gh/1.2.0",
				 "published_at":"2024-05-01T10:00:00Z","author":{"login":"dev","url":"https://gh/dev"},"notes":{"html":"<p>new</p>"}},
				{"version":"1.1.0","tag_name":"v1.1.0"}]}`,
			want: registry.Metadata{
				Package: registry.Package{Name: "Gravity Forms GTM"},
				Releases: []registry.Release{
					{
						Version: "1.2.0", TagName: "v1.2.0", DownloadURL: "https://cdn/1.2.0.zip", HTMLURL: "https://gh/1.2.0",
						PublishedAt: "2024-05-01T10:00:00Z", Author: registry.Author{Login: "dev", URL: "https://gh/dev"},
						Notes: registry.Notes{HTML: "<p>new</p>"},
					},
					{Version: "1.1.0", TagName: "v1.1.0"},
				},
			},
		},
		"Empty object": {
			status: http.StatusOK,
			body:   `{}`,
			want:   registry.Metadata{},
		},
		"Numeric version is accepted": {
			status: http.StatusOK,
			body:   `{"releases":[{"version":2}]}`,
			want:   registry.Metadata{Releases: []registry.Release{{Version: "2"}}},
		},
		"Missing objects encoded as empty lists": {
			status: http.StatusOK,
			body:   `{"package":[],"releases":[{"version":"1.0.0","author":[],"notes":false}]}`,
			want:   registry.Metadata{Releases: []registry.Release{{Version: "1.0.0"}}},
		},
		"No releases encoded as false": {
			status: http.StatusOK,
			body:   `{"package":{"name":"x"},"releases":false}`,
			want:   registry.Metadata{Package: registry.Package{Name: "x"}, Releases: []registry.Release{}},
		},
		"Unknown fields are ignored": {
			status: http.StatusOK,
			body:   `{"package":{"name":"x","extra":1},"other":true}`,
			want:   registry.Metadata{Package: registry.Package{Name: "x"}},
		},

		// Error cases
		"Error on not found":    {status: http.StatusNotFound, body: `{}`, wantErr: true},
		"Error on server error": {status: http.StatusInternalServerError, wantErr: true},
		"Error on no content":   {status: http.StatusNoContent, wantErr: true},
		"Error on invalid JSON": {status: http.StatusOK, body: `{"releases":`, wantErr: true},
		"Error on null body":    {status: http.StatusOK, body: `null`, wantErr: true},
		"Error on array body":   {status: http.StatusOK, body: `[]`, wantErr: true},
		"Error on wrong layout": {status: http.StatusOK, body: `{"releases":[{"author":"dev"}]}`, wantErr: true},
		"Error on timeout":      {status: http.StatusOK, body: `{}`, delay: time.Second, wantErr: true},
		"Error when offline":    {offline: true, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{status: tc.status, body: tc.body, delay: tc.delay}
			base := "http://127.0.0.1:0/api/packages"
			if !tc.offline {
				base = newServer(t, rec)
			}

			c := registry.New(testEnv, registry.WithBaseURL(base), registry.WithTimeouts(100*time.Millisecond, 100*time.Millisecond))
			got, err := c.Fetch(context.Background(), "gravityforms-gtm")
			if tc.wantErr {
				require.ErrorIs(t, err, registry.ErrFetchFailure, "Fetch should fail with ErrFetchFailure")
				return
			}
			require.NoError(t, err, "Fetch should not return an error")
			assert.Equal(t, tc.want, got, "Fetch returned unexpected metadata")
		})
	}
}

func TestFetchRequest(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		env environment.Environment

		wantSoftware string
	}{
		"Known server software":          {env: testEnv, wantSoftware: "Apache"},
		"Unknown server software":        {env: environment.Environment{RuntimeVersion: "8.1"}, wantSoftware: "?"},
		"Default environment is unknown": {env: environment.Default(), wantSoftware: "?"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{status: http.StatusOK, body: `{}`}
			c := registry.New(tc.env, registry.WithBaseURL(newServer(t, rec)+"/"))

			_, err := c.Fetch(context.Background(), "gravityforms-gtm")
			require.NoError(t, err, "Fetch should not return an error")

			reqs := rec.Requests()
			require.Len(t, reqs, 1, "Fetch should send exactly one request")
			r := reqs[0]

			assert.Equal(t, http.MethodGet, r.method, "Fetch should GET the metadata")
			assert.Equal(t, "/api/packages/gravityforms-gtm", r.path, "Fetch should target the package endpoint")
			assert.Equal(t, "version_check", r.query.Get("action"), "Fetch should ask for a version check")

			assert.Equal(t, "application/json", r.header.Get("Accept"))
			assert.Equal(t, "Lvl/WordPress/Updater", r.header.Get("User-Agent"))
			assert.Equal(t, tc.env.PlatformVersion, r.header.Get("X-WordPress-Version"))
			assert.Equal(t, tc.env.RuntimeVersion, r.header.Get("X-PHP-Version"))
			assert.Equal(t, tc.env.DatabaseVersion, r.header.Get("X-MySQL-Version"))
			assert.Equal(t, tc.env.Hostname, r.header.Get("X-WordPress-Hostname"))
			assert.Equal(t, tc.wantSoftware, r.header.Get("X-Server-Software"))
		})
	}
}

func TestFetchCancelledContext(t *testing.T) {
	t.Parallel()

	rec := &recorder{status: http.StatusOK, body: `{}`}
	c := registry.New(testEnv, registry.WithBaseURL(newServer(t, rec)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "gravityforms-gtm")
	require.ErrorIs(t, err, registry.ErrFetchFailure, "Fetch should fail on a cancelled context")
	assert.Empty(t, rec.Requests(), "Fetch should not reach the registry")
}

func TestReport(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		action  string
		status  int
		offline bool

		wantErr bool
	}{
		"Activate":                {action: "activate", status: http.StatusOK},
		"Deactivate":              {action: "deactivate", status: http.StatusOK},
		"Accepted is a success":   {action: "activate", status: http.StatusAccepted},
		"No content is a success": {action: "activate", status: http.StatusNoContent},

		"Error on server error": {action: "activate", status: http.StatusInternalServerError, wantErr: true},
		"Error when offline":    {action: "activate", offline: true, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder{status: tc.status}
			base := "http://127.0.0.1:0/api/packages"
			if !tc.offline {
				base = newServer(t, rec)
			}

			c := registry.New(testEnv, registry.WithBaseURL(base))
			err := c.Report(context.Background(), "gravityforms-gtm", tc.action)
			if tc.wantErr {
				require.ErrorIs(t, err, registry.ErrReportFailure, "Report should fail with ErrReportFailure")
				return
			}
			require.NoError(t, err, "Report should not return an error")

			reqs := rec.Requests()
			require.Len(t, reqs, 1, "Report should send exactly one request")
			r := reqs[0]
			assert.Equal(t, http.MethodPost, r.method, "Report should POST the event")
			assert.Equal(t, "/api/packages/gravityforms-gtm/analytics/"+tc.action, r.path, "Report should target the analytics endpoint")
			assert.Equal(t, "8.2.12", r.form.Get("php_version"), "Report should send the runtime version")
			assert.Equal(t, "application/x-www-form-urlencoded", r.header.Get("Content-Type"))
			assert.Equal(t, "Lvl/WordPress/Updater", r.header.Get("User-Agent"))
			assert.Equal(t, "example.org", r.header.Get("X-WordPress-Hostname"))
		})
	}
}

func TestMetadataLatest(t *testing.T) {
	t.Parallel()

	_, ok := registry.Metadata{}.Latest()
	assert.False(t, ok, "Latest should report no release on empty metadata")

	got, ok := registry.Metadata{Releases: []registry.Release{{Version: "2.0.0"}, {Version: "3.0.0"}}}.Latest()
	require.True(t, ok, "Latest should report a release")
	assert.Equal(t, "2.0.0", got.Version, "Latest should be the first listed release")
}

func TestDecodeMetadataMatchesKeysCaseInsensitively(t *testing.T) {
	t.Parallel()

	got, err := registry.DecodeMetadata([]byte(`{"Package":{"Name":"x"}}`))
	require.NoError(t, err, "DecodeMetadata should not return an error")
	assert.Equal(t, "x", got.Package.Name, "DecodeMetadata should match keys case-insensitively")
}
