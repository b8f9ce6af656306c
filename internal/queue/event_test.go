package queue

import (
	"encoding/json"
	"testing"
)

func TestNotificationUnmarshal(t *testing.T) {
	raw := `{
		"detail": {
			"canonicalUrl": "https://tenant7.hubletix.com/hero.jpg",
			"imageKey": "tenant-7/img9"
		},
		"detail-type": "HeroImageChanged",
		"source": "hubletix.web",
		"time": "2025-06-01T12:00:00Z"
	}`

	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if n.Detail.ImageKey != "tenant-7/img9" {
		t.Errorf("ImageKey = %q", n.Detail.ImageKey)
	}
	if n.Detail.CanonicalURL != "https://tenant7.hubletix.com/hero.jpg" {
		t.Errorf("CanonicalURL = %q", n.Detail.CanonicalURL)
	}
	if n.DetailType != "HeroImageChanged" {
		t.Errorf("DetailType = %q", n.DetailType)
	}
	if n.Source != "hubletix.web" {
		t.Errorf("Source = %q", n.Source)
	}
	if n.Time != "2025-06-01T12:00:00Z" {
		t.Errorf("Time = %q", n.Time)
	}
}
