// Package forms holds the submission context handed over by the form builder: the form schema and the stored entry.
//
// The host serializes its own objects, which are loosely typed: identifiers may be numbers or strings,
// booleans may be "1" or "", and empty input lists may be false. Decoding is weakly typed to absorb that.
package forms

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Field types with specific extraction rules.
const (
	TypeCheckbox    = "checkbox"
	TypeAddress     = "address"
	TypeName        = "name"
	TypeMultiselect = "multiselect"
)

// Form is a form definition.
type Form struct {
	ID     int     `json:"id" mapstructure:"id"`
	Title  string  `json:"title" mapstructure:"title"`
	Fields []Field `json:"fields" mapstructure:"fields"`
}

// Field is one field of a form.
// Composite fields (name, address, checkbox groups) carry one Input per sub-value.
type Field struct {
	ID                string  `json:"id" mapstructure:"id"`
	Type              string  `json:"type" mapstructure:"type"`
	InputName         string  `json:"inputName" mapstructure:"inputName"`
	AllowsPrepopulate bool    `json:"allowsPrepopulate" mapstructure:"allowsPrepopulate"`
	Inputs            []Input `json:"inputs" mapstructure:"inputs"`
}

// Input is a sub-input of a composite field.
type Input struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// Entry is a stored submission: field or input identifiers, and meta keys, to submitted values.
type Entry map[string]any

// Composite reports whether the field has sub-inputs.
func (f Field) Composite() bool {
	return len(f.Inputs) > 0
}

// Decode decodes a loosely typed form object, as produced by the host, into a Form.
func Decode(raw any) (Form, error) {
	var f Form
	if err := decode(raw, &f); err != nil {
		return Form{}, err
	}
	return f, nil
}

// UnmarshalJSON decodes the host representation of a form.
func (f *Form) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return decode(raw, f)
}

// Value returns the entry value for key and whether it holds something worth reporting.
func (e Entry) Value(key string) (any, bool) {
	v, ok := e[key]
	if !ok {
		return nil, false
	}
	return v, !isEmpty(v)
}

func decode(raw, target any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       falseAsEmptyHook,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return fmt.Errorf("could not create form decoder: %v", err)
	}
	if err := d.Decode(raw); err != nil {
		return fmt.Errorf("could not decode form: %v", err)
	}
	return nil
}

// falseAsEmptyHook maps a false value onto an empty slice: the host uses false for "no inputs".
func falseAsEmptyHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice {
		return data, nil
	}
	if b, ok := data.(bool); ok && !b {
		return []any{}, nil
	}
	return data, nil
}

// isEmpty reports whether a submitted value is absent: nil, "" and "0", false, zero numbers and empty collections.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == "0"
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case json.Number:
		return t.String() == "0"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
