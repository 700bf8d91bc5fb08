package loghub

import "testing"

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bracketed time prefix",
			in:   "[12:34:56] Loading world",
			want: "Loading world",
		},
		{
			name: "bracketed date-time prefix",
			in:   "[2024-01-02 15:04:05] Update check complete",
			want: "Update check complete",
		},
		{
			name: "bracketed date-time with T separator",
			in:   "[2024-01-02T15:04:05] Update check complete",
			want: "Update check complete",
		},
		{
			name: "bracketed time with fractional seconds",
			in:   "[12:34:56.789] chunk saved",
			want: "chunk saved",
		},
		{
			name: "bare time inside message",
			in:   "session started at 09:15:30 by user",
			want: "session started at  by user",
		},
		{
			name: "multiple timestamps",
			in:   "[08:00:00] retry [08:00:05] retry",
			want: "retry  retry",
		},
		{
			name: "no timestamp",
			in:   "plain message",
			want: "plain message",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "   padded   ",
			want: "padded",
		},
		{
			name: "timestamp-only line normalizes to empty",
			in:   "[12:34:56]",
			want: "",
		},
		{
			name: "blank line normalizes to empty",
			in:   "   ",
			want: "",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "short numeric runs untouched",
			in:   "version 1.20.4 ready",
			want: "version 1.20.4 ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeMessage(tt.in); got != tt.want {
				t.Errorf("normalizeMessage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
