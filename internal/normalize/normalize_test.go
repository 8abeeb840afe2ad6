package normalize

import (
	"errors"
	"math"
	"testing"
	"time"

	apperrors "github.com/MDValleLogic/netrunner-dashboard/internal/errors"
)

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }
func bptr(v bool) *bool       { return &v }

var receivedAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestNormalizeRequiresURL(t *testing.T) {
	for _, url := range []string{"", "   ", "\t\n"} {
		_, err := Normalize(&RawProbe{URL: url}, "pi-1", receivedAt)
		if !errors.Is(err, apperrors.ErrMissingField) {
			t.Errorf("url %q: got %v, want ErrMissingField", url, err)
		}
	}
}

func TestNormalizeLatencyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		raw  RawProbe
		want *float64
	}{
		{
			name: "unified field wins over http_ms",
			raw:  RawProbe{URL: "https://a", LatencyMs: fptr(100), HTTPMs: fptr(200)},
			want: fptr(100),
		},
		{
			name: "http_ms used when unified absent",
			raw:  RawProbe{URL: "https://a", HTTPMs: fptr(200)},
			want: fptr(200),
		},
		{
			name: "zero latency is a value, not absence",
			raw:  RawProbe{URL: "https://a", LatencyMs: fptr(0), HTTPMs: fptr(200)},
			want: fptr(0),
		},
		{
			name: "non-finite unified falls through to http_ms",
			raw:  RawProbe{URL: "https://a", LatencyMs: fptr(math.NaN()), HTTPMs: fptr(200)},
			want: fptr(200),
		},
		{
			name: "no finite source yields null",
			raw:  RawProbe{URL: "https://a", LatencyMs: fptr(math.Inf(1))},
			want: nil,
		},
		{
			name: "absent everywhere yields null",
			raw:  RawProbe{URL: "https://a"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Normalize(&tt.raw, "pi-1", receivedAt)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			switch {
			case tt.want == nil && m.LatencyMs != nil:
				t.Errorf("latency = %v, want nil", *m.LatencyMs)
			case tt.want != nil && m.LatencyMs == nil:
				t.Errorf("latency = nil, want %v", *tt.want)
			case tt.want != nil && *m.LatencyMs != *tt.want:
				t.Errorf("latency = %v, want %v", *m.LatencyMs, *tt.want)
			}
		})
	}
}

func TestNormalizeErrorPrecedence(t *testing.T) {
	m, err := Normalize(&RawProbe{
		URL:     "https://a",
		Error:   sptr("timeout"),
		HTTPErr: sptr("status 500"),
	}, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if m.Error == nil || *m.Error != "timeout" {
		t.Errorf("error = %v, want timeout", m.Error)
	}

	m, err = Normalize(&RawProbe{URL: "https://a", HTTPErr: sptr("status 500")}, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if m.Error == nil || *m.Error != "status 500" {
		t.Errorf("error = %v, want status 500", m.Error)
	}

	// Whitespace-only error counts as absent.
	m, err = Normalize(&RawProbe{URL: "https://a", Error: sptr("  ")}, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if m.Error != nil {
		t.Errorf("error = %q, want nil", *m.Error)
	}
}

func TestNormalizeSuccess(t *testing.T) {
	tests := []struct {
		name string
		raw  RawProbe
		want bool
	}{
		{"no error with latency means success", RawProbe{URL: "https://a", LatencyMs: fptr(50)}, true},
		{"error means failure", RawProbe{URL: "https://a", Error: sptr("timeout")}, false},
		{"neither error nor latency means failure", RawProbe{URL: "https://a"}, false},
		{"non-finite latency does not count as recorded", RawProbe{URL: "https://a", LatencyMs: fptr(math.NaN())}, false},
		{"explicit success overrides error", RawProbe{URL: "https://a", Error: sptr("x"), Success: bptr(true)}, true},
		{"explicit success overrides missing latency", RawProbe{URL: "https://a", Success: bptr(true)}, true},
		{"explicit failure overrides clean payload", RawProbe{URL: "https://a", LatencyMs: fptr(50), Success: bptr(false)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Normalize(&tt.raw, "pi-1", receivedAt)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if m.Success != tt.want {
				t.Errorf("success = %v, want %v", m.Success, tt.want)
			}
		})
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	m, err := Normalize(&RawProbe{URL: "https://a", TS: sptr("2026-08-30T09:30:00+02:00")}, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := time.Date(2026, 8, 30, 7, 30, 0, 0, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("ts = %v, want %v", m.Timestamp, want)
	}

	m, err = Normalize(&RawProbe{URL: "https://a"}, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !m.Timestamp.Equal(receivedAt) {
		t.Errorf("ts = %v, want receive time %v", m.Timestamp, receivedAt)
	}

	_, err = Normalize(&RawProbe{URL: "https://a", TS: sptr("yesterday")}, "pi-1", receivedAt)
	if !errors.Is(err, apperrors.ErrInvalidTimestamp) {
		t.Errorf("got %v, want ErrInvalidTimestamp", err)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := RawProbe{
		URL:       "  https://a  ",
		TS:        sptr("2026-08-30T10:00:00Z"),
		LatencyMs: fptr(42.5),
		DNSMs:     fptr(3.1),
	}
	a, err := Normalize(&raw, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	b, err := Normalize(&raw, "pi-1", receivedAt)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if a.URL != "https://a" {
		t.Errorf("url = %q, want trimmed", a.URL)
	}
	if a.URL != b.URL || !a.Timestamp.Equal(b.Timestamp) ||
		*a.LatencyMs != *b.LatencyMs || *a.DNSMs != *b.DNSMs || a.Success != b.Success {
		t.Error("repeated normalization of the same payload diverged")
	}
}
