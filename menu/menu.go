// Package menu drives the interactive selection loop: render a snapshot of
// the audio graph into launcher rows, block on the user's pick, dispatch the
// matching action, re-render. Cancelling the picker at any depth ends the
// loop cleanly.
package menu

import (
	"context"
	"errors"
	"fmt"
	"math"

	"pamenu/graph"
	"pamenu/icons"
	"pamenu/launcher"
	"pamenu/log"
	"pamenu/pa"
)

// Commander issues control requests. Effects are observed through the model,
// not through return values.
type Commander interface {
	SetDefault(ref graph.Ref) error
	SetVolume(ref graph.Ref, level float64) error
	SetMute(ref graph.Ref, muted bool) error
	SetCardProfile(cardID uint32, profile string) error
}

// Picker shows rows and returns the selected one.
type Picker interface {
	Pick(ctx context.Context, prompt string, rows []string) (string, error)
}

// Notifier announces state changes the user triggered.
type Notifier interface {
	DefaultChanged(node graph.Node)
	VolumeChanged(node graph.Node, level float64, muted bool)
	ProfileSwitched(card graph.Card, profile string)
}

type Controller struct {
	model  *graph.Model
	cmd    Commander
	picker Picker
	icons  *icons.Set
	notify Notifier
	step   float64 // volume step per menu action, normalized
}

func New(model *graph.Model, cmd Commander, picker Picker, ic *icons.Set, n Notifier, step float64) *Controller {
	if step <= 0 || step > 1 {
		step = 0.05
	}
	return &Controller{model: model, cmd: cmd, picker: picker, icons: ic, notify: n, step: step}
}

// Run drives the menu until the user cancels or a fatal error occurs.
// Cancellation is normal termination, not an error.
func (c *Controller) Run(ctx context.Context) error {
	err := c.rootMenu(ctx)
	if errors.Is(err, launcher.ErrCancelled) {
		log.Debug("menu dismissed")
		return nil
	}
	return err
}

const backLabel = "Back"

// page pairs decorated launcher rows with a cleaned-text lookup back to the
// action tag each row stands for.
type page struct {
	icons *icons.Set
	rows  []string
	tags  map[string]string
}

func (c *Controller) newPage() *page {
	return &page{icons: c.icons, tags: make(map[string]string)}
}

func (p *page) add(iconKey, text, tag string) {
	p.rows = append(p.rows, p.icons.Row(iconKey, text))
	key := p.icons.Clean(text)
	if _, dup := p.tags[key]; !dup {
		p.tags[key] = tag
	}
}

// pick runs the launcher and maps the selection back to a tag. Free-text or
// otherwise unmatched input counts as cancellation.
func (c *Controller) pick(ctx context.Context, prompt string, p *page) (string, error) {
	sel, err := c.picker.Pick(ctx, prompt, p.rows)
	if err != nil {
		return "", err
	}
	tag, ok := p.tags[c.icons.Clean(sel)]
	if !ok {
		return "", launcher.ErrCancelled
	}
	return tag, nil
}

func (c *Controller) rootMenu(ctx context.Context) error {
	for {
		p := c.newPage()
		p.add("output", "Outputs", "outputs")
		p.add("input", "Inputs", "inputs")
		p.add("output_volume", "Playback streams", "playback")
		p.add("input_volume", "Recording streams", "recording")

		tag, err := c.pick(ctx, "Audio", p)
		if err != nil {
			return err
		}
		switch tag {
		case "outputs":
			err = c.deviceList(ctx, graph.Output)
		case "inputs":
			err = c.deviceList(ctx, graph.Input)
		case "playback":
			err = c.streamList(ctx, graph.Output)
		case "recording":
			err = c.streamList(ctx, graph.Input)
		}
		if err != nil {
			return err
		}
	}
}

// deviceLabel is the undecorated row text for a node: label, volume or mute
// state, and the default marker.
func deviceLabel(snap graph.Snapshot, n graph.Node) string {
	text := n.Label
	if n.Muted {
		text += " [muted]"
	} else {
		text += fmt.Sprintf(" [%d%%]", percent(n.Volume))
	}
	if snap.IsDefault(n) {
		text += " " + icons.DefaultMarker
	}
	return text
}

func percent(level float64) int {
	return int(math.Round(level * 100))
}

func (c *Controller) deviceList(ctx context.Context, dir graph.Direction) error {
	for {
		snap := c.model.Snapshot()
		p := c.newPage()
		p.add("refresh", "Refresh", "refresh")

		byTag := make(map[string]graph.Ref)
		for i, n := range snap.Devices(dir) {
			tag := fmt.Sprintf("dev:%d", i)
			byTag[tag] = n.Ref()
			p.add(icons.DeviceKey(n.Label, n.Key, dir == graph.Input), deviceLabel(snap, n), tag)
		}
		p.add("back", backLabel, "back")

		prompt := "Select output"
		if dir == graph.Input {
			prompt = "Select input"
		}
		tag, err := c.pick(ctx, prompt, p)
		if err != nil {
			return err
		}
		switch tag {
		case "refresh":
			continue
		case "back":
			return nil
		}
		if err := c.deviceActions(ctx, byTag[tag]); err != nil {
			return err
		}
	}
}

func (c *Controller) deviceActions(ctx context.Context, ref graph.Ref) error {
	for {
		snap := c.model.Snapshot()
		n, ok := snap.Node(ref)
		if !ok {
			// Removed while the list was open.
			return nil
		}

		p := c.newPage()
		if !snap.IsDefault(n) {
			p.add("set_default", "Set as default", "default")
		}
		p.add("output_volume", "Adjust volume", "volume")
		if card, ok := snap.Card(n.CardID); ok && len(card.Profiles) > 1 {
			p.add("switch_profile", "Switch profile", "profile")
		}
		p.add("back", backLabel, "back")

		tag, err := c.pick(ctx, n.Label, p)
		if err != nil {
			return err
		}
		switch tag {
		case "back":
			return nil
		case "default":
			if done, err := c.dispatch(c.cmd.SetDefault(ref)); done || err != nil {
				return err
			}
			c.notify.DefaultChanged(n)
		case "volume":
			if err := c.volumeMenu(ctx, ref); err != nil {
				return err
			}
		case "profile":
			if err := c.profileMenu(ctx, n.CardID); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) volumeMenu(ctx context.Context, ref graph.Ref) error {
	stepPct := percent(c.step)
	for {
		snap := c.model.Snapshot()
		n, ok := snap.Node(ref)
		if !ok {
			return nil
		}

		upKey, downKey, muteKey, unmuteKey := "output_volume_up", "output_volume_down", "output_mute", "output_unmute"
		if n.Direction == graph.Input {
			upKey, downKey, muteKey, unmuteKey = "input_volume_up", "input_volume_down", "input_mute", "input_unmute"
		}

		p := c.newPage()
		p.add(upKey, fmt.Sprintf("Volume up +%d%%", stepPct), "up")
		p.add(downKey, fmt.Sprintf("Volume down -%d%%", stepPct), "down")
		if n.Muted {
			p.add(unmuteKey, "Unmute", "unmute")
		} else {
			p.add(muteKey, "Mute", "mute")
		}
		p.add("back", backLabel, "back")

		prompt := deviceLabel(snap, n)
		tag, err := c.pick(ctx, prompt, p)
		if err != nil {
			return err
		}

		switch tag {
		case "back":
			return nil
		case "up", "down":
			level := n.Volume + c.step
			if tag == "down" {
				level = n.Volume - c.step
			}
			level = math.Max(0, math.Min(1, level))
			if done, err := c.dispatch(c.cmd.SetVolume(ref, level)); done || err != nil {
				return err
			}
			c.notify.VolumeChanged(n, level, false)
		case "mute", "unmute":
			muted := tag == "mute"
			if done, err := c.dispatch(c.cmd.SetMute(ref, muted)); done || err != nil {
				return err
			}
			c.notify.VolumeChanged(n, n.Volume, muted)
		}
	}
}

func (c *Controller) profileMenu(ctx context.Context, cardID uint32) error {
	for {
		snap := c.model.Snapshot()
		card, ok := snap.Card(cardID)
		if !ok {
			return nil
		}

		p := c.newPage()
		byTag := make(map[string]string)
		for i, prof := range card.Profiles {
			if !prof.Available {
				continue
			}
			text := prof.Description
			if text == "" {
				text = prof.Name
			}
			if prof.Name == card.ActiveProfile {
				text += " " + icons.DefaultMarker
			}
			tag := fmt.Sprintf("prof:%d", i)
			byTag[tag] = prof.Name
			p.add("profile", text, tag)
		}
		p.add("back", backLabel, "back")

		tag, err := c.pick(ctx, "Select profile", p)
		if err != nil {
			return err
		}
		if tag == "back" {
			return nil
		}
		name := byTag[tag]
		if done, err := c.dispatch(c.cmd.SetCardProfile(cardID, name)); done || err != nil {
			return err
		}
		c.notify.ProfileSwitched(card, name)
	}
}

func (c *Controller) streamList(ctx context.Context, dir graph.Direction) error {
	for {
		snap := c.model.Snapshot()
		p := c.newPage()
		p.add("refresh", "Refresh", "refresh")

		byTag := make(map[string]graph.Ref)
		iconKey := "output_volume"
		if dir == graph.Input {
			iconKey = "input_volume"
		}
		for i, n := range snap.Streams(dir) {
			tag := fmt.Sprintf("stream:%d", i)
			byTag[tag] = n.Ref()
			p.add(iconKey, deviceLabel(snap, n), tag)
		}
		p.add("back", backLabel, "back")

		prompt := "Playback streams"
		if dir == graph.Input {
			prompt = "Recording streams"
		}
		tag, err := c.pick(ctx, prompt, p)
		if err != nil {
			return err
		}
		switch tag {
		case "refresh":
			continue
		case "back":
			return nil
		}
		if err := c.volumeMenu(ctx, byTag[tag]); err != nil {
			return err
		}
	}
}

// dispatch absorbs UnknownNode from a command: the target vanished, so the
// current page should fold back to its list. done=true means leave the
// current state; any other error is fatal.
func (c *Controller) dispatch(err error) (done bool, _ error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, pa.ErrUnknownNode) {
		log.Debugf("target vanished: %v", err)
		return true, nil
	}
	return false, err
}
