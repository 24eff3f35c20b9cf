package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"

	"github.com/Masterminds/semver/v3"
	"github.com/go-viper/mapstructure/v2"
)

// UpdateList is the host list of installed packages and available updates.
// Keys the checker does not use are carried through unchanged.
type UpdateList struct {
	LastChecked int64
	// Checked maps package identifiers to their installed version.
	Checked map[string]string
	// Response maps package identifiers to their available update.
	Response map[string]any

	extra map[string]json.RawMessage
}

// Update describes an available update in an UpdateList.
type Update struct {
	Slug       string `json:"slug,omitempty"`
	Plugin     string `json:"plugin,omitempty"`
	Theme      string `json:"theme,omitempty"`
	NewVersion string `json:"new_version"`
	Package    string `json:"package"`
	URL        string `json:"url"`
}

type updateListJSON struct {
	LastChecked int64             `mapstructure:"last_checked"`
	Checked     map[string]string `mapstructure:"checked"`
	Response    map[string]any    `mapstructure:"response"`
}

// UnmarshalJSON reads an update list, keeping unknown keys.
// Versions are weakly typed and an empty list or false stands for an empty map, as the host encodes them.
func (l *UpdateList) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	raw := make(map[string]any, 3)
	for _, k := range []string{"last_checked", "checked", "response"} {
		v, ok := all[k]
		if !ok {
			continue
		}
		delete(all, k)
		var value any
		if err := json.Unmarshal(v, &value); err != nil {
			return err
		}
		raw[k] = value
	}

	var known updateListJSON
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       emptyAsMapHook,
		WeaklyTypedInput: true,
		Result:           &known,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("unexpected update list layout: %v", err)
	}

	*l = UpdateList{
		LastChecked: known.LastChecked,
		Checked:     known.Checked,
		Response:    known.Response,
		extra:       all,
	}
	return nil
}

// emptyAsMapHook maps false and empty lists onto an empty map.
func emptyAsMapHook(_, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Map {
		return data, nil
	}
	switch v := data.(type) {
	case bool:
		if !v {
			return map[string]any{}, nil
		}
	case []any:
		if len(v) == 0 {
			return map[string]any{}, nil
		}
	}
	return data, nil
}

// MarshalJSON writes an update list, including the unknown keys it was read with.
func (l UpdateList) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.extra)+3)
	for k, v := range l.extra {
		out[k] = v
	}
	if l.LastChecked != 0 {
		out["last_checked"] = l.LastChecked
	}
	out["checked"] = l.Checked
	out["response"] = l.Response
	return json.Marshal(out)
}

func (l UpdateList) clone() UpdateList {
	out := l
	out.Checked = maps.Clone(l.Checked)
	out.Response = maps.Clone(l.Response)
	if out.Response == nil {
		out.Response = make(map[string]any)
	}
	out.extra = maps.Clone(l.extra)
	return out
}

// CheckForUpdate returns list with the package update added to its responses when the registry publishes
// a newer version. list is returned unchanged when the package is not listed, the registry is unreachable
// or no newer version exists. list itself is never modified.
func (c *Checker) CheckForUpdate(ctx context.Context, list UpdateList) UpdateList {
	if len(list.Checked) == 0 {
		return list
	}

	id := c.Identifier()
	if _, ok := list.Checked[id]; !ok {
		return list
	}

	update, ok, err := c.Available(ctx)
	if err != nil {
		c.log.Warn("Could not check for updates", "slug", c.slug, "error", err)
		return list
	}
	if !ok {
		return list
	}

	c.log.Info("Update available", "slug", c.slug, "installed", c.version, "available", update.NewVersion)
	out := list.clone()
	out.Response[id] = update
	return out
}

// Available returns the update to the latest registry release, and whether that release is newer than
// the installed version. An error is returned only when the registry metadata cannot be retrieved.
func (c *Checker) Available(ctx context.Context) (Update, bool, error) {
	m, err := c.remoteData(ctx)
	if err != nil {
		return Update{}, false, err
	}

	release, ok := m.Latest()
	if !ok || release.Version == "" {
		c.log.Debug("Registry has no release", "slug", c.slug)
		return Update{}, false, nil
	}
	if !c.isNewer(release.Version) {
		return Update{}, false, nil
	}

	update := Update{
		NewVersion: release.Version,
		Package:    release.DownloadURL,
		URL:        release.HTMLURL,
	}
	if c.packageType == Plugin {
		update.Slug = c.slug
		update.Plugin = c.Identifier()
	} else {
		update.Theme = c.slug
	}
	return update, true, nil
}

// isNewer reports whether remote is strictly greater than the installed version.
// Unparsable versions never count as newer.
func (c *Checker) isNewer(remote string) bool {
	installed, err := semver.NewVersion(c.version)
	if err != nil {
		c.log.Warn("Installed version is not a valid version", "slug", c.slug, "version", c.version, "error", err)
		return false
	}
	available, err := semver.NewVersion(remote)
	if err != nil {
		c.log.Warn("Registry version is not a valid version", "slug", c.slug, "version", remote, "error", err)
		return false
	}
	return available.GreaterThan(installed)
}
