package jailconf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// MarshalJSON implements json.Marshaler for Document.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}

// ToMap converts the document to a native Go map for structured export.
// Each block name maps to a map of its parameters; top-level parameters
// appear directly at the root. Within one map, a presence statement
// becomes true, '=' becomes a string (later statements override earlier
// ones), and repeated '+=' statements accumulate into a []string. This
// is a consumer view: the Document itself keeps every statement separate.
//
// Blocks sharing a name fold into one map entry here; use Blocks to see
// the distinct definitions.
func (d *Document) ToMap() map[string]any {
	result := make(map[string]any)

	for _, p := range d.Globals {
		applyParam(result, p)
	}

	for _, b := range d.Blocks {
		params, ok := result[b.Name].(map[string]any)
		if !ok {
			params = make(map[string]any)
		}

		for _, p := range b.Params {
			applyParam(params, p)
		}

		result[b.Name] = params
	}

	return result
}

// applyParam folds one parameter statement into a map view.
func applyParam(m map[string]any, p *Parameter) {
	switch p.Op {
	case OpPresence:
		m[p.Key] = true

	case OpSet:
		if value, ok := p.Value(); ok {
			m[p.Key] = value
		}

	case OpAppend:
		value, ok := p.Value()
		if !ok {
			return
		}

		switch prev := m[p.Key].(type) {
		case []string:
			m[p.Key] = append(prev, value)

		case string:
			m[p.Key] = []string{prev, value}

		default:
			m[p.Key] = []string{value}
		}
	}
}

// FormatJSON writes the document as JSON to the writer.
// An indent of 0 produces compact output.
func (d *Document) FormatJSON(
	_ context.Context,
	w io.Writer,
	indent int,
) error {
	var (
		data []byte
		err  error
	)

	if indent > 0 {
		data, err = json.MarshalIndent(d, "", strings.Repeat(" ", indent))
	} else {
		data, err = json.Marshal(d)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}

// FormatYAML writes the document as YAML to the writer.
// An indent of 0 produces flow-style output.
func (d *Document) FormatYAML(
	ctx context.Context,
	w io.Writer,
	indent int,
) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	data, err := yaml.MarshalContext(ctx, d.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(data))

	return err
}
