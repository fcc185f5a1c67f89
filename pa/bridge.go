// Package pa talks the PulseAudio native protocol to the sound server
// (PipeWire's pipewire-pulse speaks the same protocol). The Bridge keeps a
// graph.Model in sync with the server's change-event feed; Commands
// translates user intents into control requests on the same connection.
package pa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse/proto"

	"pamenu/graph"
	"pamenu/log"
)

var (
	// ErrConnectionLost means the server connection is gone. Fatal to the
	// bridge; reconnecting is the caller's decision.
	ErrConnectionLost = errors.New("connection to sound server lost")

	// ErrUnknownNode means a command target is absent from the current
	// snapshot, usually because it was removed while a menu was open.
	ErrUnknownNode = errors.New("unknown audio node")
)

// Subscription mask and event encoding, native protocol values.
const (
	maskSink         = 0x0001
	maskSource       = 0x0002
	maskSinkInput    = 0x0004
	maskSourceOutput = 0x0008
	maskServer       = 0x0080
	maskCard         = 0x0200

	subscribeMask = maskSink | maskSource | maskSinkInput | maskSourceOutput | maskServer | maskCard
)

const (
	facilityMask         = 0x000f
	facilitySink         = 0x0000
	facilitySource       = 0x0001
	facilitySinkInput    = 0x0002
	facilitySourceOutput = 0x0003
	facilityServer       = 0x0007
	facilityCard         = 0x0009

	eventTypeMask = 0x0030
	eventChange   = 0x0010
	eventRemove   = 0x0020
)

type requester interface {
	Request(args proto.RequestArgs, reply proto.Reply) error
}

// Bridge owns the server connection. Its Run goroutine is the only writer of
// the model; the protocol client's reader goroutine only enqueues events.
type Bridge struct {
	model  *graph.Model
	client requester
	conn   io.Closer

	events chan *proto.SubscribeEvent
	kick   chan struct{}
	missed atomic.Bool

	failOnce sync.Once
	fatal    chan error
}

// Connect dials the sound server (autodetected when server is empty) and
// announces the client. No events flow until Run subscribes.
func Connect(server string, model *graph.Model) (*Bridge, error) {
	client, conn, err := proto.Connect(server)
	if err != nil {
		return nil, fmt.Errorf("connect to sound server: %w", err)
	}
	props := proto.PropList{
		"application.name":      proto.PropListString("pamenu"),
		"application.icon_name": proto.PropListString("audio-volume-high"),
	}
	if err := client.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set client name: %w", err)
	}
	b := newBridge(client, conn, model)
	client.Callback = b.onMessage
	return b, nil
}

func newBridge(client requester, conn io.Closer, model *graph.Model) *Bridge {
	return &Bridge{
		model:  model,
		client: client,
		conn:   conn,
		events: make(chan *proto.SubscribeEvent, 64),
		kick:   make(chan struct{}, 1),
		fatal:  make(chan error, 1),
	}
}

// Commands returns the command issuer bound to this connection.
func (b *Bridge) Commands() *Commands {
	return &Commands{do: b.do, model: b.model}
}

// onMessage runs on the protocol client's reader goroutine. It must not
// block: on overflow the whole model is resynced instead.
func (b *Bridge) onMessage(msg interface{}) {
	ev, ok := msg.(*proto.SubscribeEvent)
	if !ok {
		return
	}
	select {
	case b.events <- ev:
	default:
		b.missed.Store(true)
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Run subscribes to server events, performs the initial sync, calls onReady,
// and then applies events until ctx is cancelled or the connection fails.
// All model mutation happens on this goroutine.
func (b *Bridge) Run(ctx context.Context, onReady func()) error {
	if err := b.do(&proto.Subscribe{Mask: subscribeMask}, nil); err != nil {
		return err
	}
	if err := b.resync(); err != nil {
		return err
	}
	if onReady != nil {
		onReady()
	}
	for {
		select {
		case <-ctx.Done():
			b.conn.Close()
			return nil
		case err := <-b.fatal:
			return err
		case ev := <-b.events:
			if err := b.handleEvent(ev); err != nil {
				return err
			}
		case <-b.kick:
			if b.missed.Swap(false) {
				log.Warn("event queue overflowed, resyncing")
				if err := b.resync(); err != nil {
					return err
				}
			}
		}
	}
}

// do issues a request and classifies failures: transport-level errors are
// fatal (ErrConnectionLost), anything else is a server-side logical error
// the caller may absorb.
func (b *Bridge) do(args proto.RequestArgs, reply proto.Reply) error {
	err := b.client.Request(args, reply)
	if err == nil {
		return nil
	}
	if isConnErr(err) {
		b.fail(err)
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return err
}

func (b *Bridge) fail(err error) {
	b.failOnce.Do(func() {
		b.fatal <- fmt.Errorf("%w: %v", ErrConnectionLost, err)
	})
}

func isConnErr(err error) bool {
	var ne net.Error
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.As(err, &ne)
}

func (b *Bridge) handleEvent(ev *proto.SubscribeEvent) error {
	typ := uint32(ev.Event) & eventTypeMask
	switch ev.Event & facilityMask {
	case facilityServer:
		return b.refreshDefaults()
	case facilitySink:
		return b.refreshNode(graph.Ref{Kind: graph.Device, Direction: graph.Output, ID: ev.Index}, typ)
	case facilitySource:
		return b.refreshNode(graph.Ref{Kind: graph.Device, Direction: graph.Input, ID: ev.Index}, typ)
	case facilitySinkInput:
		return b.refreshNode(graph.Ref{Kind: graph.Stream, Direction: graph.Output, ID: ev.Index}, typ)
	case facilitySourceOutput:
		return b.refreshNode(graph.Ref{Kind: graph.Stream, Direction: graph.Input, ID: ev.Index}, typ)
	case facilityCard:
		if typ == eventRemove {
			b.model.RemoveCard(ev.Index)
			return nil
		}
		return b.refreshCard(ev.Index)
	}
	return nil
}

// refreshNode applies one add/change/remove event. Events carry no object
// data, so add/change means re-querying the object; a query that fails for
// one object means it vanished in between and is treated as a removal.
func (b *Bridge) refreshNode(ref graph.Ref, typ uint32) error {
	if typ == eventRemove {
		b.model.Remove(ref)
		log.Debugf("removed %s %s #%d", kindName(ref.Kind), ref.Direction, ref.ID)
		return nil
	}
	n, err := b.queryNode(ref)
	if err != nil {
		if errors.Is(err, ErrConnectionLost) {
			return err
		}
		b.model.Remove(ref)
		return nil
	}
	b.model.Upsert(n)
	return nil
}

func (b *Bridge) queryNode(ref graph.Ref) (graph.Node, error) {
	switch {
	case ref.Kind == graph.Device && ref.Direction == graph.Output:
		var rep proto.GetSinkInfoReply
		if err := b.do(&proto.GetSinkInfo{SinkIndex: ref.ID}, &rep); err != nil {
			return graph.Node{}, err
		}
		return nodeFromSink(&rep), nil
	case ref.Kind == graph.Device && ref.Direction == graph.Input:
		var rep proto.GetSourceInfoReply
		if err := b.do(&proto.GetSourceInfo{SourceIndex: ref.ID}, &rep); err != nil {
			return graph.Node{}, err
		}
		return nodeFromSource(&rep), nil
	case ref.Kind == graph.Stream && ref.Direction == graph.Output:
		var rep proto.GetSinkInputInfoReply
		if err := b.do(&proto.GetSinkInputInfo{SinkInputIndex: ref.ID}, &rep); err != nil {
			return graph.Node{}, err
		}
		return nodeFromSinkInput(&rep), nil
	default:
		var rep proto.GetSourceOutputInfoReply
		if err := b.do(&proto.GetSourceOutputInfo{SourceOutpuIndex: ref.ID}, &rep); err != nil {
			return graph.Node{}, err
		}
		return nodeFromSourceOutput(&rep), nil
	}
}

func (b *Bridge) refreshCard(id uint32) error {
	var rep proto.GetCardInfoReply
	if err := b.do(&proto.GetCardInfo{CardIndex: id}, &rep); err != nil {
		if errors.Is(err, ErrConnectionLost) {
			return err
		}
		b.model.RemoveCard(id)
		return nil
	}
	b.model.UpsertCard(cardFromInfo(&rep))
	return nil
}

func (b *Bridge) refreshDefaults() error {
	var info proto.GetServerInfoReply
	if err := b.do(&proto.GetServerInfo{}, &info); err != nil {
		return err
	}
	b.model.SetDefaults(info.DefaultSinkName, info.DefaultSourceName)
	return nil
}

// resync replaces the model contents with full list queries. Used for the
// initial population and after event-queue overflow.
func (b *Bridge) resync() error {
	if err := b.refreshDefaults(); err != nil {
		return err
	}

	seen := make(map[graph.Ref]bool)

	var sinks proto.GetSinkInfoListReply
	if err := b.do(&proto.GetSinkInfoList{}, &sinks); err != nil {
		return err
	}
	for _, info := range sinks {
		n := nodeFromSink(info)
		b.model.Upsert(n)
		seen[n.Ref()] = true
	}

	var sources proto.GetSourceInfoListReply
	if err := b.do(&proto.GetSourceInfoList{}, &sources); err != nil {
		return err
	}
	for _, info := range sources {
		n := nodeFromSource(info)
		b.model.Upsert(n)
		seen[n.Ref()] = true
	}

	var inputs proto.GetSinkInputInfoListReply
	if err := b.do(&proto.GetSinkInputInfoList{}, &inputs); err != nil {
		return err
	}
	for _, info := range inputs {
		n := nodeFromSinkInput(info)
		b.model.Upsert(n)
		seen[n.Ref()] = true
	}

	var outputs proto.GetSourceOutputInfoListReply
	if err := b.do(&proto.GetSourceOutputInfoList{}, &outputs); err != nil {
		return err
	}
	for _, info := range outputs {
		n := nodeFromSourceOutput(info)
		b.model.Upsert(n)
		seen[n.Ref()] = true
	}

	var cards proto.GetCardInfoListReply
	if err := b.do(&proto.GetCardInfoList{}, &cards); err != nil {
		return err
	}
	seenCards := make(map[uint32]bool)
	for _, info := range cards {
		c := cardFromInfo(info)
		b.model.UpsertCard(c)
		seenCards[c.ID] = true
	}

	snap := b.model.Snapshot()
	for _, n := range snap.Nodes() {
		if !seen[n.Ref()] {
			b.model.Remove(n.Ref())
		}
	}
	for _, c := range snap.Cards() {
		if !seenCards[c.ID] {
			b.model.RemoveCard(c.ID)
		}
	}

	log.Debugf("synced %d nodes, %d cards", len(seen), len(seenCards))
	return nil
}

func nodeFromSink(info *proto.GetSinkInfoReply) graph.Node {
	return graph.Node{
		ID:        info.SinkIndex,
		Key:       info.SinkName,
		Direction: graph.Output,
		Kind:      graph.Device,
		Label:     labelOr(info.Device, info.SinkName),
		Volume:    volumeFromNative(info.ChannelVolumes),
		Channels:  len(info.ChannelVolumes),
		Muted:     info.Mute,
		CardID:    info.CardIndex,
	}
}

func nodeFromSource(info *proto.GetSourceInfoReply) graph.Node {
	return graph.Node{
		ID:        info.SourceIndex,
		Key:       info.SourceName,
		Direction: graph.Input,
		Kind:      graph.Device,
		Label:     labelOr(info.Device, info.SourceName),
		Volume:    volumeFromNative(info.ChannelVolumes),
		Channels:  len(info.ChannelVolumes),
		Muted:     info.Mute,
		CardID:    info.CardIndex,
	}
}

func nodeFromSinkInput(info *proto.GetSinkInputInfoReply) graph.Node {
	return graph.Node{
		ID:        info.SinkInputIndex,
		Direction: graph.Output,
		Kind:      graph.Stream,
		Label:     labelOr(info.MediaName, fmt.Sprintf("stream #%d", info.SinkInputIndex)),
		Volume:    volumeFromNative(info.ChannelVolumes),
		Channels:  len(info.ChannelVolumes),
		Muted:     info.Muted,
		CardID:    graph.NoCard,
	}
}

func nodeFromSourceOutput(info *proto.GetSourceOutputInfoReply) graph.Node {
	return graph.Node{
		ID:        info.SourceOutpuIndex,
		Direction: graph.Input,
		Kind:      graph.Stream,
		Label:     labelOr(info.MediaName, fmt.Sprintf("stream #%d", info.SourceOutpuIndex)),
		Volume:    volumeFromNative(info.ChannelVolumes),
		Channels:  len(info.ChannelVolumes),
		Muted:     info.Muted,
		CardID:    graph.NoCard,
	}
}

func cardFromInfo(info *proto.GetCardInfoReply) graph.Card {
	c := graph.Card{
		ID:            info.CardIndex,
		Key:           info.CardName,
		Label:         info.CardName,
		ActiveProfile: info.ActiveProfileName,
	}
	for _, p := range info.Profiles {
		c.Profiles = append(c.Profiles, graph.Profile{
			Name:        p.Name,
			Description: p.Description,
			Available:   p.Available != 0,
		})
	}
	return c
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

func kindName(k graph.Kind) string {
	if k == graph.Stream {
		return "stream"
	}
	return "device"
}
