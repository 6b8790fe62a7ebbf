package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanqian/exoplanet-classifier/internal/domain/classifier"
)

// parameterFlags collects a ParameterSet from the command line.
type parameterFlags struct {
	preset string
	file   string
	values []string
}

func (p *parameterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.preset, "preset", "p", classifier.PresetEarth, "starting preset (earth, hot_jupiter, super_earth)")
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "JSON file holding a full parameter set")
	cmd.Flags().StringSliceVarP(&p.values, "set", "s", nil, "parameter overrides as name=value (canonical names or abbreviations)")
}

// build applies the preset, the file and the overrides in that order.
func (p *parameterFlags) build() (*classifier.ParameterStore, error) {
	store := classifier.NewParameterStore()
	if p.preset != "" {
		if err := store.ApplyPreset(p.preset); err != nil {
			return nil, err
		}
	}
	if p.file != "" {
		raw, err := os.ReadFile(p.file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p.file, err)
		}
		var params classifier.ParameterSet
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p.file, err)
		}
		if err := store.Replace(params); err != nil {
			return nil, err
		}
	}
	for _, assignment := range p.values {
		name, value, err := parseAssignment(assignment)
		if err != nil {
			return nil, err
		}
		if f, ok := classifier.LookupField(name); ok && f.IsFlag() {
			state, err := classifier.ParseTriState(value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if err := store.SetFlag(f, state); err != nil {
				return nil, err
			}
			continue
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", name, value)
		}
		if err := store.SetByName(name, v); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func parseAssignment(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, "=")
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)
	if !ok || name == "" || value == "" {
		return "", "", fmt.Errorf("invalid assignment %q (expected name=value)", raw)
	}
	return name, value, nil
}
