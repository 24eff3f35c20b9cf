package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Report sends a lifecycle event, such as activate or deactivate, of the package slug.
func (c Client) Report(ctx context.Context, slug, action string) error {
	ctx, cancel := context.WithTimeout(ctx, c.reportTimeout)
	defer cancel()

	u := c.endpoint(slug, "analytics", url.PathEscape(action))
	form := url.Values{"php_version": {c.env.RuntimeVersion}}
	c.log.Debug("Reporting lifecycle event", "url", u, "action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Join(ErrReportFailure, fmt.Errorf("failed to create request: %v", err))
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(ErrReportFailure, fmt.Errorf("failed to send HTTP request: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Join(ErrReportFailure, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}
	return nil
}
