package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Settings is the full, persisted state of a task.
//
// It is the single source of truth: anything observable about a task that is
// not a runtime handle lives here.
type Settings struct {
	Name         string
	Label        string
	Icon         string
	IsActive     bool
	Interval     int // seconds; periodic tasks only
	SelectedRace string
	CaptureCount int
}

// Patch is a partial Settings. A nil field means the key is absent.
type Patch struct {
	Label        *string
	Icon         *string
	IsActive     *bool
	Interval     *int
	SelectedRace *string
	CaptureCount *int
}

func Bool(v bool) *bool       { return &v }
func Int(v int) *int          { return &v }
func String(v string) *string { return &v }

// Apply shallow-merges p into s.
func (s *Settings) Apply(p Patch) {
	if p.Label != nil {
		s.Label = *p.Label
	}
	if p.Icon != nil {
		s.Icon = *p.Icon
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.Interval != nil {
		s.Interval = *p.Interval
	}
	if p.SelectedRace != nil {
		s.SelectedRace = *p.SelectedRace
	}
	if p.CaptureCount != nil {
		s.CaptureCount = *p.CaptureCount
	}
}

// Patch returns a patch carrying every field of s.
func (s Settings) Patch() Patch {
	return Patch{
		Label:        String(s.Label),
		Icon:         String(s.Icon),
		IsActive:     Bool(s.IsActive),
		Interval:     Int(s.Interval),
		SelectedRace: String(s.SelectedRace),
		CaptureCount: Int(s.CaptureCount),
	}
}

// wireSettings is the stored JSON shape. Key names match what earlier
// versions of the automation wrote, so old snapshots keep loading.
type wireSettings struct {
	Name         string  `json:"name"`
	Label        string  `json:"label,omitempty"`
	Icon         string  `json:"icon,omitempty"`
	IsActive     bool    `json:"isActive"`
	Interval     int     `json:"interval,omitempty"`
	SelectedRace *string `json:"selectedRace,omitempty"`
	CaptureCount int     `json:"captureCount,omitempty"`
}

// EncodeSettings serializes a settings snapshot for the store.
func EncodeSettings(s Settings) ([]byte, error) {
	w := wireSettings{
		Name:         s.Name,
		Label:        s.Label,
		Icon:         s.Icon,
		IsActive:     s.IsActive,
		Interval:     s.Interval,
		CaptureCount: s.CaptureCount,
	}
	if s.SelectedRace != "" {
		w.SelectedRace = String(s.SelectedRace)
	}
	return json.Marshal(w)
}

// DecodeSnapshot parses a stored snapshot into a patch.
//
// Missing keys stay nil so defaults survive. A null selectedRace means "no
// selection" and is kept as a present, empty value. Fields with the wrong type
// or an out-of-range value are left out of the patch and reported in the
// returned error; the remaining fields are still returned. Unknown keys are
// ignored. name is not part of the patch: the store key is authoritative.
func DecodeSnapshot(raw []byte) (Patch, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Patch{}, ErrEmptySnapshot
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Patch{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var (
		p    Patch
		errs []error
	)
	field := func(key string, dst any) bool {
		v, ok := m[key]
		if !ok {
			return false
		}
		if err := json.Unmarshal(v, dst); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return false
		}
		return true
	}

	var label, icon string
	if field("label", &label) {
		p.Label = &label
	}
	if field("icon", &icon) {
		p.Icon = &icon
	}
	var active bool
	if field("isActive", &active) {
		p.IsActive = &active
	}
	var interval int
	if field("interval", &interval) {
		if interval > 0 {
			p.Interval = &interval
		} else {
			errs = append(errs, fmt.Errorf("interval: must be > 0, got %d", interval))
		}
	}
	if v, ok := m["selectedRace"]; ok {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			p.SelectedRace = String("")
		} else {
			var race string
			if field("selectedRace", &race) {
				p.SelectedRace = &race
			}
		}
	}
	var captures int
	if field("captureCount", &captures) {
		if captures >= 0 {
			p.CaptureCount = &captures
		} else {
			errs = append(errs, fmt.Errorf("captureCount: must be >= 0, got %d", captures))
		}
	}

	if len(errs) > 0 {
		return p, fmt.Errorf("%w: %w", ErrInvalidSnapshot, errors.Join(errs...))
	}
	return p, nil
}
