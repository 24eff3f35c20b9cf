package event

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/lvlagency/gforms-gtm/internal/constants"
	"github.com/lvlagency/gforms-gtm/internal/forms"
)

// coreMeta are the entry meta keys always reported when set.
var coreMeta = []string{
	"payment_status",
	"payment_amount",
	"payment_method",
	"transaction_id",
	"transaction_type",
	"currency",
}

// ExtractFields returns the submission values safe to hand to client-side analytics, nested by dotted keys.
//
// Only fields allowing prepopulation are read from the schema: every other field value stays out of the payload.
func ExtractFields(form forms.Form, entry forms.Entry) map[string]any {
	data := map[string]any{
		"entry_id": entry["id"],
	}

	for _, key := range coreMeta {
		if v, ok := entry.Value(key); ok {
			data[key] = v
		}
	}

	for _, key := range slices.Sorted(maps.Keys(entry)) {
		name, found := strings.CutPrefix(key, constants.CustomEntryPrefix)
		if !found {
			continue
		}
		// lvl:utm:source is reported as utm.
		name, _, _ = strings.Cut(name, ":")
		data[name] = entry[key]
	}

	for _, field := range form.Fields {
		if !field.AllowsPrepopulate {
			continue
		}

		if field.Composite() {
			extractComposite(data, field, entry)
			continue
		}

		v, ok := entry.Value(field.ID)
		if !ok {
			continue
		}
		if field.Type == forms.TypeMultiselect {
			v = decodeMultiselect(v)
		}
		data[field.InputName] = v
	}

	return Expand(data)
}

func extractComposite(data map[string]any, field forms.Field, entry forms.Entry) {
	for _, input := range field.Inputs {
		v, ok := entry.Value(input.ID)
		if !ok {
			continue
		}

		switch field.Type {
		case forms.TypeCheckbox:
			values, _ := data[field.InputName].([]any)
			data[field.InputName] = append(values, v)
		case forms.TypeAddress, forms.TypeName:
			data[field.Type+PathSeparator+input.Name] = v
		default:
			data[input.Name] = v
		}
	}
}

// decodeMultiselect decodes the JSON list the form builder stores multiselect values as.
// Values which are not valid JSON are kept as submitted.
func decodeMultiselect(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return v
	}
	return decoded
}
