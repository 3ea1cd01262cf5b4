package scraper

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestShouldBlock(t *testing.T) {
	blocked := blockedTypes([]string{"Font", "Image", "Bogus"})
	if len(blocked) != 2 {
		t.Fatalf("len(blocked) = %d, want 2", len(blocked))
	}

	tests := []struct {
		rt   proto.NetworkResourceType
		url  string
		want bool
	}{
		{proto.NetworkResourceTypeFont, "https://fonts.gstatic.com/s/roboto.woff2", true},
		{proto.NetworkResourceTypeImage, "https://lh5.googleusercontent.com/p/photo.jpg", true},
		{proto.NetworkResourceTypeImage, "https://www.google.com/maps/vt?pb=tile", false},
		{proto.NetworkResourceTypeScript, "https://www.google.com/maps/_/js/app.js", false},
	}
	for _, tt := range tests {
		if got := shouldBlock(blocked, tt.rt, tt.url); got != tt.want {
			t.Errorf("shouldBlock(%s, %q) = %v, want %v", tt.rt, tt.url, got, tt.want)
		}
	}
}
