// Package sweep loads and expands parameter-sweep definitions into the
// per-run parameter sets submitted to the platform.
package sweep

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"capsulectl/pkg/api"
)

// Definition describes one sweep: the capsule to run and the parameter
// space to cover. Combinations can be given explicitly (Parameters) or as
// named axes whose cross product is taken (Axes); both may be combined.
type Definition struct {
	CapsuleID    string           `json:"capsule_id" validate:"required"`
	Parameters   []map[string]any `json:"parameters,omitempty" validate:"required_without=Axes"`
	Axes         map[string][]any `json:"axes,omitempty" validate:"required_without=Parameters"`
	OutputPrefix string           `json:"output_prefix,omitempty"`
}

// Combination is one fully specified run: its position in the sweep, the
// derived job key, and the stringified parameter values.
type Combination struct {
	Index  int
	Key    string
	Params map[string]string
}

var validate = validator.New()

// Load reads and validates a sweep definition from a JSON file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sweep file: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse sweep file %s: %w", path, err)
	}

	if err := validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("invalid sweep definition: %w", err)
	}
	return &def, nil
}

// Expand produces the ordered list of combinations for the sweep:
// explicit parameter sets first, then the cross product of the axes in
// sorted axis-name order. The order is deterministic across runs.
func (d *Definition) Expand() ([]Combination, error) {
	var combos []Combination

	add := func(params map[string]string) {
		idx := len(combos)
		combos = append(combos, Combination{
			Index:  idx,
			Key:    JobKey(idx, params),
			Params: params,
		})
	}

	for _, set := range d.Parameters {
		if len(set) == 0 {
			return nil, fmt.Errorf("empty parameter set at position %d", len(combos))
		}
		params := make(map[string]string, len(set))
		for k, v := range set {
			params[k] = formatValue(v)
		}
		add(params)
	}

	if len(d.Axes) > 0 {
		names := make([]string, 0, len(d.Axes))
		for name, values := range d.Axes {
			if len(values) == 0 {
				return nil, fmt.Errorf("axis %q has no values", name)
			}
			names = append(names, name)
		}
		sort.Strings(names)

		// Odometer over the axes, last axis varying fastest.
		counters := make([]int, len(names))
		for {
			params := make(map[string]string, len(names))
			for i, name := range names {
				params[name] = formatValue(d.Axes[name][counters[i]])
			}
			add(params)

			i := len(names) - 1
			for ; i >= 0; i-- {
				counters[i]++
				if counters[i] < len(d.Axes[names[i]]) {
					break
				}
				counters[i] = 0
			}
			if i < 0 {
				break
			}
		}
	}

	return combos, nil
}

// NamedParams converts a combination into the wire-format parameter list,
// appending a derived per-run output directory when a prefix is set.
func (c Combination) NamedParams(outputPrefix string) []api.NamedRunParam {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	params := make([]api.NamedRunParam, 0, len(keys)+1)
	for _, k := range keys {
		params = append(params, api.NamedRunParam{ParamName: k, Value: c.Params[k]})
	}
	if outputPrefix != "" {
		params = append(params, api.NamedRunParam{
			ParamName: "base_output_dir",
			Value:     path.Join(outputPrefix, c.Key),
		})
	}
	return params
}

// JobKey derives the human-readable key for one run, for example
// "run_2_batch_size=128_learning_rate=5e-5".
func JobKey(idx int, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return fmt.Sprintf("run_%d_%s", idx, strings.Join(parts, "_"))
}

// formatValue stringifies a sweep value. json.Number keeps the literal as
// written in the sweep file, so 5e-5 stays 5e-5.
func formatValue(v any) string {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
