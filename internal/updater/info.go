package updater

import (
	"context"
	"strings"

	"github.com/lvlagency/gforms-gtm/internal/registry"
)

// Host actions requesting package details.
const (
	ActionPluginInformation = "plugin_information"
	ActionThemeInformation  = "theme_information"
)

// InfoQuery is the host request for package details.
type InfoQuery struct {
	Slug string `json:"slug"`
}

// Info are the package details shown by the host.
type Info struct {
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Version       string   `json:"version"`
	Author        string   `json:"author"`
	AuthorProfile string   `json:"author_profile"`
	Homepage      string   `json:"homepage"`
	DownloadLink  string   `json:"download_link"`
	Trunk         string   `json:"trunk"`
	LastUpdated   string   `json:"last_updated"`
	Sections      Sections `json:"sections"`
}

// Sections are the tabs of the package details.
type Sections struct {
	Description string `json:"description"`
	Changelog   string `json:"changelog"`
}

// PackageInfo returns the package details when the host asks for this package with action,
// or result unchanged otherwise or when the registry cannot be reached.
func (c *Checker) PackageInfo(ctx context.Context, result any, action string, q InfoQuery) any {
	expected := ActionPluginInformation
	if c.packageType == Theme {
		expected = ActionThemeInformation
	}
	if action != expected || q.Slug != c.slug {
		return result
	}

	m, err := c.remoteData(ctx)
	if err != nil {
		c.log.Warn("Could not fetch package details", "slug", c.slug, "error", err)
		return result
	}
	if m.IsZero() {
		c.log.Debug("Registry returned no package details", "slug", c.slug)
		return result
	}

	latest, _ := m.Latest()

	info := Info{
		Name:          m.Package.Name,
		Slug:          c.slug,
		Version:       latest.Version,
		Author:        latest.Author.Login,
		AuthorProfile: latest.Author.URL,
		Homepage:      latest.HTMLURL,
		DownloadLink:  latest.DownloadURL,
		Trunk:         latest.DownloadURL,
		LastUpdated:   latest.PublishedAt,
		Sections: Sections{
			Description: m.Package.Name,
			Changelog:   changelog(m.Releases),
		},
	}
	if info.Name == "" {
		info.Name = c.slug
	}
	if info.Version == "" {
		info.Version = c.version
	}
	return info
}

// changelog renders the notes of every release, titled by tag, in registry order.
func changelog(releases []registry.Release) string {
	var b strings.Builder
	for _, r := range releases {
		if r.Notes.HTML == "" {
			continue
		}
		b.WriteString("<h3>" + r.TagName + "</h3>" + r.Notes.HTML)
	}
	return b.String()
}
