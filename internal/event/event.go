// Package event builds the analytics event pushed to the client-side data layer after a form submission.
package event

import (
	"fmt"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/forms"
)

// Site identifies where a submission happened.
type Site struct {
	// ID is the site (blog) identifier in a multisite install; 1 otherwise.
	ID int `json:"id"`
	// Host is the host name of the current request.
	Host string `json:"host"`
}

// Descriptor is the form object carried by the submit event.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Platform duplicates Provider for consumers reading the former key.
	Platform    string         `json:"platform"`
	Provider    string         `json:"provider"`
	FieldValues map[string]any `json:"field_values"`
}

// New builds the descriptor of a submission of form on site.
func New(site Site, form forms.Form, entry forms.Entry) Descriptor {
	provider := ProviderID(site)
	return Descriptor{
		ID:          FormID(site, form.ID),
		Name:        form.Title,
		Platform:    provider,
		Provider:    provider,
		FieldValues: ExtractFields(form, entry),
	}
}

// FormID returns the composite form identifier, unique across sites.
func FormID(site Site, formID int) string {
	return fmt.Sprintf("%s%d-%d", constants.FormIDPrefix, site.ID, formID)
}

// ProviderID returns the composite identifier of the site.
func ProviderID(site Site) string {
	return constants.ProviderPrefix + site.Host
}
