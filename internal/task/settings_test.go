package task

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestEncodeSettingsShape(t *testing.T) {
	raw, err := EncodeSettings(Settings{Name: "trade", IsActive: true, Interval: 240})
	if err != nil {
		t.Fatalf("EncodeSettings: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["name"] != "trade" || m["isActive"] != true || m["interval"] != float64(240) {
		t.Fatalf("unexpected shape: %s", raw)
	}
	if _, ok := m["selectedRace"]; ok {
		t.Fatalf("empty race should be omitted: %s", raw)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr error
		check   func(t *testing.T, p Patch)
	}{
		{
			name:    "empty",
			in:      "  ",
			wantErr: ErrEmptySnapshot,
		},
		{
			name:    "null",
			in:      "null",
			wantErr: ErrEmptySnapshot,
		},
		{
			name: "missing keys stay nil",
			in:   `{"isActive":true}`,
			check: func(t *testing.T, p Patch) {
				if p.IsActive == nil || !*p.IsActive || p.Interval != nil || p.Label != nil {
					t.Fatalf("patch = %+v", p)
				}
			},
		},
		{
			name: "null race clears selection",
			in:   `{"selectedRace":null}`,
			check: func(t *testing.T, p Patch) {
				if p.SelectedRace == nil || *p.SelectedRace != "" {
					t.Fatalf("race = %v", p.SelectedRace)
				}
			},
		},
		{
			name:    "wrong type reported, rest kept",
			in:      `{"interval":"soon","captureCount":3}`,
			wantErr: ErrInvalidSnapshot,
			check: func(t *testing.T, p Patch) {
				if p.Interval != nil || p.CaptureCount == nil || *p.CaptureCount != 3 {
					t.Fatalf("patch = %+v", p)
				}
			},
		},
		{
			name:    "negative captures rejected",
			in:      `{"captureCount":-1}`,
			wantErr: ErrInvalidSnapshot,
			check: func(t *testing.T, p Patch) {
				if p.CaptureCount != nil {
					t.Fatalf("captureCount = %d", *p.CaptureCount)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := DecodeSnapshot([]byte(tc.in))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.check != nil {
				tc.check(t, p)
			}
		})
	}
}

func TestDecodeSnapshotRejectsNonObject(t *testing.T) {
	_, err := DecodeSnapshot([]byte(`[1]`))
	if err == nil || errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("err = %v", err)
	}
}

func TestEncodeDecodeKeepsRace(t *testing.T) {
	raw, _ := EncodeSettings(Settings{Name: "trade", SelectedRace: "zebras", CaptureCount: 2})
	p, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	var s Settings
	s.Apply(p)
	if s.SelectedRace != "zebras" || s.CaptureCount != 2 {
		t.Fatalf("settings = %+v", s)
	}
}
