// Package icons decorates menu rows for the launcher. Font mode prepends a
// nerd-font glyph, xdg mode appends the rofi icon escape, none leaves rows as
// plain text. The default-device marker is plain unicode and shows in every
// mode.
package icons

import (
	"fmt"
	"strings"
)

type Mode uint8

const (
	None Mode = iota
	Font
	Xdg
)

// ParseMode maps a config string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "none":
		return None, nil
	case "font":
		return Font, nil
	case "xdg":
		return Xdg, nil
	}
	return None, fmt.Errorf("unknown icon mode %q", s)
}

// DefaultMarker tags the current default device in lists.
const DefaultMarker = "⏺"

var fontGlyphs = map[string]string{
	"output":             "\U000f1120",
	"input":              "\U000f036c",
	"virtual":            "\U000f0471",
	"monitor":            "\uf1dd",
	"refresh":            "\U000f0450",
	"set_default":        "\U000f05e0",
	"switch_profile":     "\U000f0ea2",
	"profile":            "\U000f0384",
	"output_volume":      "\U000f057e",
	"output_volume_up":   "\U000f075d",
	"output_volume_down": "\U000f075e",
	"output_mute":        "\U000f0e08",
	"output_unmute":      "\U000f057e",
	"input_volume":       "\U000f057e",
	"input_volume_up":    "\U000f08b4",
	"input_volume_down":  "\U000f08b3",
	"input_mute":         "\U000f036d",
	"input_unmute":       "\U000f036c",
	"headphones":         "\U000f02cb",
	"speaker":            "\U000f04c3",
	"hdmi":               "\U000f0841",
	"microphone":         "\U000f036c",
	"analog":             "\U000f1543",
	"digital":            "\U000f0697",
	"bluetooth":          "\U000f00af",
	"usb":                "\U000f11f0",
	"back":               "\U000f004d",
}

var xdgIcons = map[string]string{
	"output":             "audio-speakers-symbolic",
	"input":              "audio-input-microphone-symbolic",
	"virtual":            "applications-multimedia-symbolic",
	"monitor":            "video-display-symbolic",
	"refresh":            "view-refresh-symbolic",
	"set_default":        "emblem-default-symbolic",
	"switch_profile":     "multimedia-equalizer-symbolic",
	"profile":            "audio-x-generic-symbolic",
	"output_volume":      "audio-volume-high-symbolic",
	"output_volume_up":   "value-increase-symbolic",
	"output_volume_down": "value-decrease-symbolic",
	"output_mute":        "audio-volume-muted-symbolic",
	"output_unmute":      "audio-speakers-symbolic",
	"input_volume":       "microphone-sensitivity-high-symbolic",
	"input_volume_up":    "value-increase-symbolic",
	"input_volume_down":  "value-decrease-symbolic",
	"input_mute":         "microphone-sensitivity-muted-symbolic",
	"input_unmute":       "audio-input-microphone-symbolic",
	"headphones":         "audio-headphones-symbolic",
	"speaker":            "audio-speakers-symbolic",
	"hdmi":               "video-display-symbolic",
	"microphone":         "audio-input-microphone-symbolic",
	"analog":             "audio-card-symbolic",
	"digital":            "computer-symbolic",
	"bluetooth":          "bluetooth-symbolic",
	"usb":                "media-removable-symbolic",
	"back":               "go-previous-symbolic",
}

// Set renders rows for one configured mode.
type Set struct {
	mode   Mode
	spaces int
}

func New(mode Mode, spaces int) *Set {
	if spaces < 0 {
		spaces = 1
	}
	return &Set{mode: mode, spaces: spaces}
}

// Row decorates text with the icon registered under key.
func (s *Set) Row(key, text string) string {
	switch s.mode {
	case Font:
		g, ok := fontGlyphs[key]
		if !ok {
			return text
		}
		return g + strings.Repeat(" ", s.spaces) + text
	case Xdg:
		name, ok := xdgIcons[key]
		if !ok {
			return text
		}
		return text + "\x00icon\x1f" + name
	}
	return text
}

// Clean strips row decoration from a launcher selection so it can be matched
// against the undecorated text the menu was built from.
func (s *Set) Clean(sel string) string {
	if i := strings.IndexByte(sel, 0); i >= 0 {
		sel = sel[:i]
	}
	for _, g := range fontGlyphs {
		if strings.HasPrefix(sel, g) {
			sel = strings.TrimPrefix(sel, g)
			break
		}
	}
	sel = strings.TrimSuffix(strings.TrimSpace(sel), DefaultMarker)
	return strings.TrimSpace(sel)
}

// DeviceKey classifies a device by its name and label, falling back to the
// direction's generic icon.
func DeviceKey(label, key string, input bool) string {
	s := strings.ToLower(label + " " + key)
	switch {
	case strings.Contains(s, "headphone") || strings.Contains(s, "headset"):
		return "headphones"
	case strings.Contains(s, "hdmi"):
		return "hdmi"
	case strings.Contains(s, "speaker"):
		return "speaker"
	case strings.Contains(s, "mic"):
		return "microphone"
	case strings.Contains(s, "bluetooth") || strings.Contains(s, "bluez"):
		return "bluetooth"
	case strings.Contains(s, "usb"):
		return "usb"
	case strings.Contains(s, "monitor"):
		return "monitor"
	case strings.Contains(s, "analog"):
		return "analog"
	case strings.Contains(s, "digital") || strings.Contains(s, "iec958"):
		return "digital"
	}
	if input {
		return "input"
	}
	return "output"
}
