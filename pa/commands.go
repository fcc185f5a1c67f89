package pa

import (
	"fmt"

	"github.com/jfreymuth/pulse/proto"

	"pamenu/graph"
	"pamenu/log"
)

// Commands issues control requests against the live graph. Every method
// resolves its target in the current snapshot first, so a node that vanished
// since the menu was rendered yields ErrUnknownNode instead of a protocol
// error. State changes are not applied locally; the confirmed values arrive
// through the event bridge.
type Commands struct {
	do    func(args proto.RequestArgs, reply proto.Reply) error
	model *graph.Model
}

// SetDefault makes the device the server default for its direction.
func (c *Commands) SetDefault(ref graph.Ref) error {
	n, ok := c.model.Snapshot().Node(ref)
	if !ok || n.Kind != graph.Device {
		return fmt.Errorf("%w: %s #%d", ErrUnknownNode, ref.Direction, ref.ID)
	}
	log.Debugf("set default %s: %s", n.Direction, n.Key)
	if n.Direction == graph.Input {
		return c.do(&proto.SetDefaultSource{SourceName: n.Key}, nil)
	}
	return c.do(&proto.SetDefaultSink{SinkName: n.Key}, nil)
}

// SetVolume sets the node's volume to a normalized level, replicated across
// its channels. Out-of-range levels are clamped.
func (c *Commands) SetVolume(ref graph.Ref, level float64) error {
	n, ok := c.model.Snapshot().Node(ref)
	if !ok {
		return fmt.Errorf("%w: %s #%d", ErrUnknownNode, ref.Direction, ref.ID)
	}
	cv := volumeToNative(level, n.Channels)
	log.Debugf("set volume %s %s #%d: %d%%", kindName(n.Kind), n.Direction, n.ID, int(clampLevel(level)*100))
	switch {
	case n.Kind == graph.Device && n.Direction == graph.Output:
		return c.do(&proto.SetSinkVolume{SinkIndex: n.ID, ChannelVolumes: cv}, nil)
	case n.Kind == graph.Device && n.Direction == graph.Input:
		return c.do(&proto.SetSourceVolume{SourceIndex: n.ID, ChannelVolumes: cv}, nil)
	case n.Kind == graph.Stream && n.Direction == graph.Output:
		return c.do(&proto.SetSinkInputVolume{SinkInputIndex: n.ID, ChannelVolumes: cv}, nil)
	default:
		return c.do(&proto.SetSourceOutputVolume{SourceOutputIndex: n.ID, ChannelVolumes: cv}, nil)
	}
}

// SetMute mutes or unmutes the node.
func (c *Commands) SetMute(ref graph.Ref, muted bool) error {
	n, ok := c.model.Snapshot().Node(ref)
	if !ok {
		return fmt.Errorf("%w: %s #%d", ErrUnknownNode, ref.Direction, ref.ID)
	}
	log.Debugf("set mute %s %s #%d: %v", kindName(n.Kind), n.Direction, n.ID, muted)
	switch {
	case n.Kind == graph.Device && n.Direction == graph.Output:
		return c.do(&proto.SetSinkMute{SinkIndex: n.ID, Mute: muted}, nil)
	case n.Kind == graph.Device && n.Direction == graph.Input:
		return c.do(&proto.SetSourceMute{SourceIndex: n.ID, Mute: muted}, nil)
	case n.Kind == graph.Stream && n.Direction == graph.Output:
		return c.do(&proto.SetSinkInputMute{SinkInputIndex: n.ID, Mute: muted}, nil)
	default:
		return c.do(&proto.SetSourceOutputMute{SourceOutputIndex: n.ID, Mute: muted}, nil)
	}
}

// SetCardProfile switches a sound card to the named profile.
func (c *Commands) SetCardProfile(cardID uint32, profile string) error {
	card, ok := c.model.Snapshot().Card(cardID)
	if !ok {
		return fmt.Errorf("%w: card #%d", ErrUnknownNode, cardID)
	}
	log.Debugf("set card profile %s: %s", card.Key, profile)
	return c.do(&proto.SetCardProfile{CardIndex: card.ID, ProfileName: profile}, nil)
}
