// Package notify sends desktop notifications for state changes triggered
// through the menu. Notification failures are logged and swallowed; a broken
// notification daemon must not break audio control.
package notify

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"pamenu/graph"
	"pamenu/log"
)

func init() {
	beeep.AppName = "pamenu"
}

// Notifier sends notifications when enabled; the zero value is disabled.
type Notifier struct {
	enabled bool
}

func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

func (n *Notifier) send(title, body, icon string) {
	if !n.enabled {
		return
	}
	if err := beeep.Notify(title, body, icon); err != nil {
		log.Warnf("notification failed: %v", err)
	}
}

// DefaultChanged announces a new default device.
func (n *Notifier) DefaultChanged(node graph.Node) {
	icon := "audio-speakers-symbolic"
	if node.Direction == graph.Input {
		icon = "audio-input-microphone-symbolic"
	}
	n.send(
		fmt.Sprintf("Default %s changed", node.Direction),
		fmt.Sprintf("%s is now the default %s", node.Label, node.Direction),
		icon,
	)
}

// VolumeChanged announces a volume or mute change.
func (n *Notifier) VolumeChanged(node graph.Node, level float64, muted bool) {
	if muted {
		n.send(fmt.Sprintf("%s muted", node.Label), "", volumeIcon(node.Direction, 0, true))
		return
	}
	pct := int(level * 100)
	n.send(fmt.Sprintf("Volume set to %d%%", pct), node.Label, volumeIcon(node.Direction, pct, false))
}

// ProfileSwitched announces a card profile change.
func (n *Notifier) ProfileSwitched(card graph.Card, profile string) {
	n.send("Profile switched", fmt.Sprintf("%s: %s", card.Label, profile), "audio-card-symbolic")
}

func volumeIcon(d graph.Direction, pct int, muted bool) string {
	if d == graph.Input {
		switch {
		case muted:
			return "microphone-sensitivity-muted-symbolic"
		case pct > 70:
			return "microphone-sensitivity-high-symbolic"
		case pct > 30:
			return "microphone-sensitivity-medium-symbolic"
		}
		return "microphone-sensitivity-low-symbolic"
	}
	switch {
	case muted:
		return "audio-volume-muted-symbolic"
	case pct > 70:
		return "audio-volume-high-symbolic"
	case pct > 30:
		return "audio-volume-medium-symbolic"
	}
	return "audio-volume-low-symbolic"
}
