package icons

import "testing"

func TestRowModes(t *testing.T) {
	if got := New(None, 1).Row("speaker", "Speakers"); got != "Speakers" {
		t.Errorf("none mode = %q", got)
	}
	if got := New(Font, 2).Row("speaker", "Speakers"); got != "\U000f04c3  Speakers" {
		t.Errorf("font mode = %q", got)
	}
	if got := New(Xdg, 1).Row("speaker", "Speakers"); got != "Speakers\x00icon\x1faudio-speakers-symbolic" {
		t.Errorf("xdg mode = %q", got)
	}
	// Unknown keys degrade to plain text.
	if got := New(Font, 1).Row("nope", "Text"); got != "Text" {
		t.Errorf("unknown key = %q", got)
	}
}

func TestCleanRoundTrip(t *testing.T) {
	for _, mode := range []Mode{None, Font, Xdg} {
		s := New(mode, 2)
		row := s.Row("headphones", "USB Headset [40%]")
		if got := s.Clean(row); got != "USB Headset [40%]" {
			t.Errorf("mode %d: Clean(%q) = %q", mode, row, got)
		}
	}
}

func TestCleanStripsDefaultMarker(t *testing.T) {
	s := New(Font, 1)
	row := s.Row("speaker", "Speakers") + " " + DefaultMarker
	if got := s.Clean(row); got != "Speakers" {
		t.Errorf("Clean(%q) = %q", row, got)
	}
}

func TestDeviceKey(t *testing.T) {
	tests := []struct {
		label, key string
		input      bool
		want       string
	}{
		{"Family 17h HD Audio Controller", "alsa_output.pci", false, "output"},
		{"USB Headset", "alsa_output.usb-headset", false, "headphones"},
		{"HDMI Audio", "hdmi-stereo", false, "hdmi"},
		{"Built-in Speakers", "", false, "speaker"},
		{"Internal Microphone", "", true, "microphone"},
		{"WH-1000XM4", "bluez_output.cc", false, "bluetooth"},
		{"Webcam Analog Stereo", "", true, "analog"},
		{"Some Capture", "", true, "input"},
	}
	for _, tt := range tests {
		if got := DeviceKey(tt.label, tt.key, tt.input); got != tt.want {
			t.Errorf("DeviceKey(%q, %q, %v) = %q, want %q", tt.label, tt.key, tt.input, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for s, want := range map[string]Mode{"": None, "none": None, "font": Font, "xdg": Xdg} {
		got, err := ParseMode(s)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseMode("emoji"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
