package timeutil

import (
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, got time.Time)
	}{
		{
			name:  "empty string returns now",
			input: "",
			check: func(t *testing.T, got time.Time) {
				if time.Since(got) > time.Second {
					t.Error("expected time close to now")
				}
			},
		},
		{
			name:  "now returns current time",
			input: "now",
			check: func(t *testing.T, got time.Time) {
				if time.Since(got) > time.Second {
					t.Error("expected time close to now")
				}
			},
		},
		{
			name:  "RFC3339 format",
			input: "2025-01-15T10:30:00Z",
			check: func(t *testing.T, got time.Time) {
				expected := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
				if !got.Equal(expected) {
					t.Errorf("got %v, want %v", got, expected)
				}
			},
		},
		{
			name:  "compact vendor format",
			input: "20200615120000",
			check: func(t *testing.T, got time.Time) {
				expected := time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC)
				if !got.Equal(expected) {
					t.Errorf("got %v, want %v", got, expected)
				}
			},
		},
		{
			name:  "epoch milliseconds",
			input: "1592222400000",
			check: func(t *testing.T, got time.Time) {
				expected := time.Date(2020, 6, 15, 12, 0, 0, 0, time.UTC)
				if !got.Equal(expected) {
					t.Errorf("got %v, want %v", got, expected)
				}
			},
		},
		{
			name:  "relative minutes",
			input: "30m",
			check: func(t *testing.T, got time.Time) {
				diff := time.Since(got)
				if diff < 29*time.Minute || diff > 31*time.Minute {
					t.Errorf("expected ~30m ago, got diff of %v", diff)
				}
			},
		},
		{
			name:  "relative hours",
			input: "2h",
			check: func(t *testing.T, got time.Time) {
				diff := time.Since(got)
				if diff < 119*time.Minute || diff > 121*time.Minute {
					t.Errorf("expected ~2h ago, got diff of %v", diff)
				}
			},
		},
		{
			name:  "relative days",
			input: "7d",
			check: func(t *testing.T, got time.Time) {
				diff := time.Since(got)
				expectedDiff := 7 * 24 * time.Hour
				if diff < expectedDiff-time.Minute || diff > expectedDiff+time.Minute {
					t.Errorf("expected ~7d ago, got diff of %v", diff)
				}
			},
		},
		{
			name:    "invalid format",
			input:   "invalid",
			wantErr: true,
		},
		{
			name:    "invalid relative unit",
			input:   "5x",
			wantErr: true,
		},
		{
			name:    "digit count with no meaning",
			input:   "202006151200",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestParseCompactRoundTrip(t *testing.T) {
	tests := []string{
		"20200615120000",
		"20231231235959",
		"19700101000000",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			got, err := ParseCompact(input)
			if err != nil {
				t.Fatalf("ParseCompact(%q) error = %v", input, err)
			}
			if back := FormatCompact(got); back != input {
				t.Errorf("round trip = %q, want %q", back, input)
			}
		})
	}

	if _, err := ParseCompact("2020x615120000"); err == nil {
		t.Error("expected error for malformed compact timestamp")
	}
}

func TestCompactEpochEquivalence(t *testing.T) {
	got, err := ParseCompact("20200615120000")
	if err != nil {
		t.Fatal(err)
	}
	if ms := ToMillis(got); ms != 1592222400000 {
		t.Errorf("ToMillis = %d, want 1592222400000", ms)
	}
}

func TestFloorToHourMS(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want int64
	}{
		{"already aligned", 1592222400000, 1592222400000},
		{"mid hour", 1592224230123, 1592222400000},
		{"one ms past hour", 1592222400001, 1592222400000},
		{"zero", 0, 0},
		{"negative clamps to zero", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FloorToHourMS(tt.ms)
			if got != tt.want {
				t.Errorf("FloorToHourMS(%d) = %d, want %d", tt.ms, got, tt.want)
			}
			if got%MillisPerHour != 0 {
				t.Errorf("result %d is not hour-aligned", got)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Minute, "30m"},
		{90 * time.Minute, "1.5h"},
		{2 * time.Hour, "2.0h"},
		{24 * time.Hour, "1.0d"},
		{36 * time.Hour, "1.5d"},
	}

	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			got := FormatDuration(tt.d)
			if got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := FormatBytes(tt.bytes)
			if got != tt.want {
				t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}

func TestValidateTimeRange(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		start        time.Time
		end          time.Time
		wantWarnings int
		checkMessage string // Optional substring to look for in warnings
	}{
		{
			name:         "valid range - last day",
			start:        now.Add(-24 * time.Hour),
			end:          now,
			wantWarnings: 0,
		},
		{
			name:         "end time in future",
			start:        now.Add(-2 * time.Hour),
			end:          now.Add(24 * time.Hour),
			wantWarnings: 1,
			checkMessage: "in the future",
		},
		{
			name:         "start time in future",
			start:        now.Add(1 * time.Hour),
			end:          now.Add(2 * time.Hour),
			wantWarnings: 2, // Both start and end in future
			checkMessage: "no archives will be returned",
		},
		{
			name:         "very large range",
			start:        now.Add(-60 * 24 * time.Hour),
			end:          now,
			wantWarnings: 1,
			checkMessage: "catch-up",
		},
		{
			name:         "sub-hour range",
			start:        now.Add(-30 * time.Minute),
			end:          now,
			wantWarnings: 1,
			checkMessage: "floored to the hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := ValidateTimeRange(tt.start, tt.end)
			if len(warnings) != tt.wantWarnings {
				t.Errorf("ValidateTimeRange() returned %d warnings, want %d", len(warnings), tt.wantWarnings)
				for _, w := range warnings {
					t.Logf("  warning: %s", w.Message)
				}
			}
			if tt.checkMessage != "" && len(warnings) > 0 {
				found := false
				for _, w := range warnings {
					if strings.Contains(w.Message, tt.checkMessage) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected warning containing %q, got: %v", tt.checkMessage, warnings)
				}
			}
		})
	}
}
