package calc

import "testing"

func TestPercent(t *testing.T) {
	tests := []struct {
		name       string
		downloaded int64
		total      int64
		want       float64
		wantNil    bool
	}{
		{name: "half", downloaded: 50, total: 100, want: 50},
		{name: "complete", downloaded: 100, total: 100, want: 100},
		{name: "zero total is unknown", downloaded: 10, total: 0, wantNil: true},
		{name: "negative total is unknown", downloaded: 10, total: -1, wantNil: true},
		{name: "overshoot clamps to 100", downloaded: 150, total: 100, want: 100},
		{name: "negative downloaded clamps to 0", downloaded: -5, total: 100, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(tt.downloaded, tt.total)

			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil percent, got %v", *got)
				}

				return
			}

			if got == nil {
				t.Fatalf("expected %v, got nil", tt.want)
			}
			if *got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, *got)
			}
		})
	}
}

func TestETA(t *testing.T) {
	tests := []struct {
		name       string
		downloaded int64
		total      int64
		speed      float64
		want       int64
	}{
		{name: "remaining at steady speed", downloaded: 500, total: 1000, speed: 100, want: 5},
		{name: "unknown total", downloaded: 500, total: 0, speed: 100, want: 0},
		{name: "zero speed", downloaded: 500, total: 1000, speed: 0, want: 0},
		{name: "already done", downloaded: 1000, total: 1000, speed: 100, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ETA(tt.downloaded, tt.total, tt.speed); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512.00 B"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := HumanBytes(tt.in); got != tt.want {
			t.Errorf("HumanBytes(%d): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
