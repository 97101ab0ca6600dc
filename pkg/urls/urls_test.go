package urls

import "testing"

func TestIsURLValid(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"http://youtu.be/dQw4w9WgXcQ", true},
		{"ftp://example.com/file", false},
		{"youtube.com/watch?v=dQw4w9WgXcQ", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsURLValid(tt.raw); got != tt.want {
			t.Errorf("IsURLValid(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}

func TestFixURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"youtube.com/watch", "https://youtube.com/watch"},
		{"https://youtube.com/watch", "https://youtube.com/watch"},
	}
	for _, tt := range tests {
		if got := FixURL(tt.raw); got != tt.want {
			t.Errorf("FixURL(%q): expected %q, got %q", tt.raw, tt.want, got)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"shorts url", "https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"embed url", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch url with playlist", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123", "dQw4w9WgXcQ"},
		{"no id", "https://example.com/video.mp4", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVideoID(tt.raw); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
