package classifier

import (
	apperrors "github.com/yanqian/exoplanet-classifier/pkg/errors"
)

// ParameterStore holds the parameters being edited for one classification.
// It re-validates after every change. It is not safe for concurrent use.
type ParameterStore struct {
	params ParameterSet
	errs   []ValidationError
}

// NewParameterStore starts from the Earth-like preset.
func NewParameterStore() *ParameterStore {
	s := &ParameterStore{}
	s.Reset()
	return s
}

// Reset restores the Earth-like preset and clears advanced values.
func (s *ParameterStore) Reset() {
	s.params = DefaultParameters()
	s.revalidate()
}

// ApplyPreset replaces the required values with a named preset. Advanced
// values are kept.
func (s *ParameterStore) ApplyPreset(name string) error {
	preset, ok := Preset(name)
	if !ok {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "unknown preset "+name, nil)
	}
	preset.Optional = s.params.Optional
	preset.Flags = s.params.Flags
	s.params = preset
	s.revalidate()
	return nil
}

// Replace swaps in a full parameter set.
func (s *ParameterStore) Replace(params ParameterSet) error {
	if err := params.CheckFields(); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid parameters", err)
	}
	s.params = params.Clone()
	s.revalidate()
	return nil
}

// Set updates a required value.
func (s *ParameterStore) Set(f Field, v float64) error {
	ref := s.params.ref(f)
	if ref == nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "unknown parameter "+string(f), nil)
	}
	*ref = v
	s.revalidate()
	return nil
}

// SetOptional stores an optional numeric value.
func (s *ParameterStore) SetOptional(f Field, v float64) error {
	if !f.IsOptional() {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "unknown optional parameter "+string(f), nil)
	}
	if s.params.Optional == nil {
		s.params.Optional = make(map[Field]Optional)
	}
	s.params.Optional[f] = Some(v)
	return nil
}

// ClearOptional marks an optional value as absent.
func (s *ParameterStore) ClearOptional(f Field) {
	delete(s.params.Optional, f)
}

// SetFlag stores a tri-state flag. Unset removes it.
func (s *ParameterStore) SetFlag(f Field, state TriState) error {
	if !f.IsFlag() {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "unknown flag "+string(f), nil)
	}
	if state == Unset {
		delete(s.params.Flags, f)
		return nil
	}
	if s.params.Flags == nil {
		s.params.Flags = make(map[Field]TriState)
	}
	s.params.Flags[f] = state
	return nil
}

// SetByName routes a value to the right setter based on the field kind. Both
// canonical names and domain abbreviations are accepted.
func (s *ParameterStore) SetByName(name string, v float64) error {
	f, ok := LookupField(name)
	if !ok {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "unknown parameter "+name, nil)
	}
	switch {
	case f.IsRequired():
		return s.Set(f, v)
	case f.IsFlag():
		state := False
		if v != 0 {
			state = True
		}
		return s.SetFlag(f, state)
	default:
		return s.SetOptional(f, v)
	}
}

// Snapshot returns a copy of the current parameters.
func (s *ParameterStore) Snapshot() ParameterSet {
	return s.params.Clone()
}

// Errors returns the validation errors for the current parameters.
func (s *ParameterStore) Errors() []ValidationError {
	out := make([]ValidationError, len(s.errs))
	copy(out, s.errs)
	return out
}

// Submittable reports whether the current parameters pass validation.
func (s *ParameterStore) Submittable() bool {
	return len(s.errs) == 0
}

func (s *ParameterStore) revalidate() {
	s.errs = Validate(s.params)
}
