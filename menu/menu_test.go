package menu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pamenu/graph"
	"pamenu/icons"
	"pamenu/launcher"
	"pamenu/pa"
)

type pickCall struct {
	prompt string
	rows   []string
}

// scriptedPicker plays back canned selections and records every page it was
// shown. An exhausted script cancels, like a user hitting escape.
type scriptedPicker struct {
	script []string
	err    error
	calls  []pickCall
}

func (p *scriptedPicker) Pick(_ context.Context, prompt string, rows []string) (string, error) {
	p.calls = append(p.calls, pickCall{prompt: prompt, rows: rows})
	if p.err != nil {
		return "", p.err
	}
	if len(p.script) == 0 {
		return "", launcher.ErrCancelled
	}
	sel := p.script[0]
	p.script = p.script[1:]
	return sel, nil
}

type volumeCall struct {
	ref   graph.Ref
	level float64
}

type fakeCommander struct {
	defaults []graph.Ref
	volumes  []volumeCall
	mutes    []graph.Ref
	profiles []string
	err      error
}

func (f *fakeCommander) SetDefault(ref graph.Ref) error {
	if f.err != nil {
		return f.err
	}
	f.defaults = append(f.defaults, ref)
	return nil
}

func (f *fakeCommander) SetVolume(ref graph.Ref, level float64) error {
	if f.err != nil {
		return f.err
	}
	f.volumes = append(f.volumes, volumeCall{ref, level})
	return nil
}

func (f *fakeCommander) SetMute(ref graph.Ref, muted bool) error {
	if f.err != nil {
		return f.err
	}
	f.mutes = append(f.mutes, ref)
	return nil
}

func (f *fakeCommander) SetCardProfile(_ uint32, profile string) error {
	if f.err != nil {
		return f.err
	}
	f.profiles = append(f.profiles, profile)
	return nil
}

type nopNotify struct{}

func (nopNotify) DefaultChanged(graph.Node)               {}
func (nopNotify) VolumeChanged(graph.Node, float64, bool) {}
func (nopNotify) ProfileSwitched(graph.Card, string)      {}

func output(id uint32, key, label string, vol float64) graph.Node {
	return graph.Node{
		ID: id, Key: key, Label: label,
		Kind: graph.Device, Direction: graph.Output,
		Volume: vol, Channels: 2, CardID: graph.NoCard,
	}
}

func controller(m *graph.Model, cmd Commander, p Picker) *Controller {
	return New(m, cmd, p, icons.New(icons.None, 1), nopNotify{}, 0.05)
}

func TestDefaultDeviceSortsFirst(t *testing.T) {
	m := graph.NewModel()
	m.Upsert(output(10, "headphones", "Headphones", 0.5))
	m.Upsert(output(42, "speakers", "Speakers", 0.8))
	m.SetDefaults("speakers", "")

	picker := &scriptedPicker{script: []string{"Outputs", "Back"}}
	c := controller(m, &fakeCommander{}, picker)
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, picker.calls, 3) // root, device list, root again
	list := picker.calls[1]
	require.Equal(t, "Select output", list.prompt)
	want := []string{
		"Refresh",
		"Speakers [80%] " + icons.DefaultMarker,
		"Headphones [50%]",
		"Back",
	}
	require.Equal(t, want, list.rows)
}

func TestVolumeUpClamps(t *testing.T) {
	m := graph.NewModel()
	m.Upsert(output(42, "speakers", "Speakers", 0.98))

	picker := &scriptedPicker{script: []string{
		"Outputs",
		"Speakers [98%]",
		"Adjust volume",
		"Volume up +5%",
		"Back", "Back", "Back",
	}}
	cmd := &fakeCommander{}
	c := controller(m, cmd, picker)
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, cmd.volumes, 1)
	require.Equal(t, graph.Ref{Kind: graph.Device, Direction: graph.Output, ID: 42}, cmd.volumes[0].ref)
	require.Equal(t, 1.0, cmd.volumes[0].level)
}

func TestMuteToggleFollowsState(t *testing.T) {
	m := graph.NewModel()
	n := output(42, "speakers", "Speakers", 0.5)
	n.Muted = true
	m.Upsert(n)

	picker := &scriptedPicker{script: []string{
		"Outputs",
		"Speakers [muted]",
		"Adjust volume",
	}}
	c := controller(m, &fakeCommander{}, picker)
	require.NoError(t, c.Run(context.Background()))

	volPage := picker.calls[len(picker.calls)-1]
	require.Contains(t, volPage.rows, "Unmute")
	require.NotContains(t, volPage.rows, "Mute")
}

func TestUnknownNodeFallsBackToList(t *testing.T) {
	m := graph.NewModel()
	m.Upsert(output(7, "gone", "Gone", 0.5))

	picker := &scriptedPicker{script: []string{
		"Outputs",
		"Gone [50%]",
		"Set as default",
		"Back",
	}}
	cmd := &fakeCommander{err: pa.ErrUnknownNode}
	c := controller(m, cmd, picker)
	require.NoError(t, c.Run(context.Background()))

	// After the failed command the controller must land back on the device
	// list, not crash or exit.
	require.Equal(t, "Select output", picker.calls[3].prompt)
	require.Empty(t, cmd.defaults)
}

func TestVanishedDeviceSkipsActions(t *testing.T) {
	m := graph.NewModel()
	m.Upsert(output(7, "gone", "Gone", 0.5))

	// Remove the node after the list rendered but before the selection is
	// dispatched: the picker callback is the suspension point.
	inner := &scriptedPicker{script: []string{"Outputs", "Gone [50%]", "Back"}}
	removed := false
	picker := &removeOnSecondPick{inner: inner, model: m, removed: &removed}
	c := controller(m, &fakeCommander{}, picker)
	require.NoError(t, c.Run(context.Background()))
}

// removeOnSecondPick deletes node 7 while the device list is on screen.
type removeOnSecondPick struct {
	inner   *scriptedPicker
	model   *graph.Model
	removed *bool
}

func (r *removeOnSecondPick) Pick(ctx context.Context, prompt string, rows []string) (string, error) {
	if prompt == "Select output" && !*r.removed {
		r.model.Remove(graph.Ref{Kind: graph.Device, Direction: graph.Output, ID: 7})
		*r.removed = true
	}
	return r.inner.Pick(ctx, prompt, rows)
}

func TestUnmatchedSelectionCancels(t *testing.T) {
	m := graph.NewModel()
	picker := &scriptedPicker{script: []string{"No such row"}}
	c := controller(m, &fakeCommander{}, picker)
	require.NoError(t, c.Run(context.Background()))
	require.Len(t, picker.calls, 1)
}

func TestLauncherFailurePropagates(t *testing.T) {
	m := graph.NewModel()
	picker := &scriptedPicker{err: launcher.ErrUnavailable}
	c := controller(m, &fakeCommander{}, picker)
	require.ErrorIs(t, c.Run(context.Background()), launcher.ErrUnavailable)
}

func TestProfileMenu(t *testing.T) {
	m := graph.NewModel()
	n := output(3, "hdmi", "HDMI", 0.5)
	n.CardID = 9
	m.Upsert(n)
	m.UpsertCard(graph.Card{
		ID: 9, Key: "pci-card", Label: "PCI Card",
		ActiveProfile: "analog-stereo",
		Profiles: []graph.Profile{
			{Name: "analog-stereo", Description: "Analog Stereo", Available: true},
			{Name: "hdmi-stereo", Description: "HDMI Stereo", Available: true},
			{Name: "off", Description: "Off", Available: false},
		},
	})

	picker := &scriptedPicker{script: []string{
		"Outputs",
		"HDMI [50%]",
		"Switch profile",
		"HDMI Stereo",
		"Back", "Back", "Back",
	}}
	cmd := &fakeCommander{}
	c := controller(m, cmd, picker)
	require.NoError(t, c.Run(context.Background()))

	require.Equal(t, []string{"hdmi-stereo"}, cmd.profiles)

	// Unavailable profiles are hidden, the active one is marked.
	profPage := picker.calls[3]
	require.Equal(t, []string{
		"Analog Stereo " + icons.DefaultMarker,
		"HDMI Stereo",
		"Back",
	}, profPage.rows)
}

func TestStreamListControlsVolume(t *testing.T) {
	m := graph.NewModel()
	m.Upsert(graph.Node{
		ID: 21, Kind: graph.Stream, Direction: graph.Output,
		Label: "Music", Volume: 0.6, Channels: 2, CardID: graph.NoCard,
	})

	picker := &scriptedPicker{script: []string{
		"Playback streams",
		"Music [60%]",
		"Mute",
		"Back", "Back",
	}}
	cmd := &fakeCommander{}
	c := controller(m, cmd, picker)
	require.NoError(t, c.Run(context.Background()))

	require.Equal(t, []graph.Ref{{Kind: graph.Stream, Direction: graph.Output, ID: 21}}, cmd.mutes)
}

func TestRefreshRerendersList(t *testing.T) {
	m := graph.NewModel()
	m.Upsert(output(1, "a", "First", 0.5))

	picker := &rerenderPicker{model: m}
	c := controller(m, &fakeCommander{}, picker)
	require.NoError(t, c.Run(context.Background()))

	// The list after Refresh must include the device added in between.
	last := picker.calls[len(picker.calls)-1]
	require.Contains(t, last.rows, "Second [30%]")
}

// rerenderPicker selects Outputs, adds a device, picks Refresh, then bails.
type rerenderPicker struct {
	model *graph.Model
	step  int
	calls []pickCall
}

func (r *rerenderPicker) Pick(_ context.Context, prompt string, rows []string) (string, error) {
	r.calls = append(r.calls, pickCall{prompt: prompt, rows: rows})
	r.step++
	switch r.step {
	case 1:
		return "Outputs", nil
	case 2:
		r.model.Upsert(graph.Node{
			ID: 2, Key: "b", Label: "Second", Kind: graph.Device,
			Direction: graph.Output, Volume: 0.3, Channels: 2, CardID: graph.NoCard,
		})
		return "Refresh", nil
	}
	return "", launcher.ErrCancelled
}
