package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// maxBodySize bounds how much of a registry response is read.
const maxBodySize = 4 << 20

// Metadata is what the registry knows about a package.
type Metadata struct {
	Package  Package   `json:"package" mapstructure:"package"`
	Releases []Release `json:"releases" mapstructure:"releases"`
}

// Package describes the package itself.
type Package struct {
	Name string `json:"name" mapstructure:"name"`
}

// Release is a published version of a package. The registry lists the latest release first.
type Release struct {
	Version     string `json:"version" mapstructure:"version"`
	TagName     string `json:"tag_name" mapstructure:"tag_name"`
	DownloadURL string `json:"download_url" mapstructure:"download_url"`
	HTMLURL     string `json:"html_url" mapstructure:"html_url"`
	PublishedAt string `json:"published_at" mapstructure:"published_at"`
	Author      Author `json:"author" mapstructure:"author"`
	Notes       Notes  `json:"notes" mapstructure:"notes"`
}

// Author is the publisher of a release.
type Author struct {
	Login string `json:"login" mapstructure:"login"`
	URL   string `json:"url" mapstructure:"url"`
}

// Notes are the release notes.
type Notes struct {
	HTML string `json:"html" mapstructure:"html"`
}

// Latest returns the most recent release, if any.
func (m Metadata) Latest() (Release, bool) {
	if len(m.Releases) == 0 {
		return Release{}, false
	}
	return m.Releases[0], true
}

// Fetch retrieves the metadata of the package slug.
// Any transport error, non-200 status or unreadable body is reported as ErrFetchFailure.
func (c Client) Fetch(ctx context.Context, slug string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	url := c.endpoint(slug) + "?action=version_check"
	c.log.Debug("Fetching package metadata", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Metadata{}, errors.Join(ErrFetchFailure, fmt.Errorf("failed to create request: %v", err))
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Metadata{}, errors.Join(ErrFetchFailure, fmt.Errorf("failed to send HTTP request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Metadata{}, errors.Join(ErrFetchFailure, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Metadata{}, errors.Join(ErrFetchFailure, fmt.Errorf("failed to read body: %v", err))
	}

	m, err := decodeMetadata(body)
	if err != nil {
		return Metadata{}, errors.Join(ErrFetchFailure, err)
	}
	return m, nil
}

// decodeMetadata reads a registry response. Scalars are weakly typed, so a numeric version is accepted.
func decodeMetadata(body []byte) (Metadata, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Metadata{}, fmt.Errorf("invalid JSON body: %v", err)
	}
	if _, ok := raw.(map[string]any); !ok {
		return Metadata{}, fmt.Errorf("expected a JSON object, got %T", raw)
	}

	var m Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       emptyAsZeroHook,
		WeaklyTypedInput: true,
		Result:           &m,
	})
	if err != nil {
		return Metadata{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Metadata{}, fmt.Errorf("unexpected metadata layout: %v", err)
	}
	return m, nil
}

// emptyAsZeroHook maps false and empty lists onto the zero value of the expected object or list,
// as the registry encodes missing values either way.
func emptyAsZeroHook(_, to reflect.Type, data any) (any, error) {
	if b, ok := data.(bool); ok && !b {
		switch to.Kind() {
		case reflect.Struct:
			return map[string]any{}, nil
		case reflect.Slice:
			return []any{}, nil
		}
	}
	if l, ok := data.([]any); ok && len(l) == 0 && to.Kind() == reflect.Struct {
		return map[string]any{}, nil
	}
	return data, nil
}

// IsZero reports whether the registry returned nothing about the package.
func (m Metadata) IsZero() bool {
	return m.Package == (Package{}) && len(m.Releases) == 0
}
