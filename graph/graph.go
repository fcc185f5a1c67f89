// Package graph holds the local mirror of the sound server's object graph.
// A single writer (the event bridge) mutates the model; everyone else reads
// point-in-time snapshots.
package graph

import (
	"sort"
	"sync"
)

// Direction tells playback endpoints (sinks) apart from capture endpoints
// (sources). It never changes for a live object; the server reports a
// direction change as remove+add.
type Direction uint8

const (
	Output Direction = iota
	Input
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Kind separates physical/virtual device endpoints from application streams
// (sink-inputs and source-outputs).
type Kind uint8

const (
	Device Kind = iota
	Stream
)

// NoCard marks a node that does not belong to a sound card.
const NoCard = 0xffffffff

// Ref identifies one node. Server indexes are only unique per facility, so
// the kind and direction are part of the identity.
type Ref struct {
	Kind      Kind
	Direction Direction
	ID        uint32
}

// Node is one audio endpoint or stream.
type Node struct {
	ID        uint32
	Key       string // server-unique object name; default pointers use names
	Direction Direction
	Kind      Kind
	Label     string
	Volume    float64 // normalized, 0.0-1.0
	Channels  int
	Muted     bool
	CardID    uint32 // NoCard when not card-backed

	seq uint64 // discovery order, assigned by the model
}

func (n Node) Ref() Ref {
	return Ref{Kind: n.Kind, Direction: n.Direction, ID: n.ID}
}

// Profile is one switchable configuration of a sound card.
type Profile struct {
	Name        string
	Description string
	Available   bool
}

// Card is a sound card with its profiles.
type Card struct {
	ID            uint32
	Key           string
	Label         string
	Profiles      []Profile
	ActiveProfile string
}

// Update is a partial node update. Nil fields are left untouched.
type Update struct {
	Label    *string
	Volume   *float64
	Channels *int
	Muted    *bool
	CardID   *uint32
}

// Model is the aggregate. All mutation must come from one goroutine; reads
// may come from anywhere via Snapshot.
type Model struct {
	mu    sync.RWMutex
	nodes map[Ref]Node
	cards map[uint32]Card

	// Server-reported default device names. Deliberately left stale when the
	// named node disappears: remove and default-change events are unordered
	// relative to each other, so "is default" is always resolved by lookup.
	defaultOutput string
	defaultInput  string

	seq uint64
}

func NewModel() *Model {
	return &Model{
		nodes: make(map[Ref]Node),
		cards: make(map[uint32]Card),
	}
}

// Upsert inserts n, or replaces the node with the same identity. A node that
// reappears after removal is a fresh object and gets a new discovery slot.
func (m *Model) Upsert(n Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := n.Ref()
	if old, ok := m.nodes[ref]; ok {
		n.seq = old.seq
	} else {
		m.seq++
		n.seq = m.seq
	}
	m.nodes[ref] = n
}

// Apply merges a partial update into an existing node. Applying the same
// update twice yields the same state as applying it once. Returns false when
// the node is unknown.
func (m *Model) Apply(ref Ref, u Update) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[ref]
	if !ok {
		return false
	}
	if u.Label != nil {
		n.Label = *u.Label
	}
	if u.Volume != nil {
		n.Volume = *u.Volume
	}
	if u.Channels != nil {
		n.Channels = *u.Channels
	}
	if u.Muted != nil {
		n.Muted = *u.Muted
	}
	if u.CardID != nil {
		n.CardID = *u.CardID
	}
	m.nodes[ref] = n
	return true
}

// Remove deletes the node. Default pointers naming it are not cleared.
func (m *Model) Remove(ref Ref) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, ref)
}

// SetDefaults records the server's default sink and source names as
// reported, whether or not matching nodes exist yet.
func (m *Model) SetDefaults(output, input string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultOutput = output
	m.defaultInput = input
}

func (m *Model) UpsertCard(c Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
}

func (m *Model) RemoveCard(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cards, id)
}

// Snapshot returns an immutable point-in-time copy.
func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		nodes:         make([]Node, 0, len(m.nodes)),
		cards:         make(map[uint32]Card, len(m.cards)),
		DefaultOutput: m.defaultOutput,
		DefaultInput:  m.defaultInput,
	}
	for _, n := range m.nodes {
		s.nodes = append(s.nodes, n)
	}
	sort.Slice(s.nodes, func(i, j int) bool { return s.nodes[i].seq < s.nodes[j].seq })
	for id, c := range m.cards {
		cp := c
		cp.Profiles = append([]Profile(nil), c.Profiles...)
		s.cards[id] = cp
	}
	return s
}

// Snapshot is a consistent read-only view of the model.
type Snapshot struct {
	nodes []Node // discovery order
	cards map[uint32]Card

	DefaultOutput string
	DefaultInput  string
}

// Nodes returns every node in discovery order.
func (s Snapshot) Nodes() []Node {
	return append([]Node(nil), s.nodes...)
}

// Cards returns every sound card.
func (s Snapshot) Cards() []Card {
	out := make([]Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Node looks up one node.
func (s Snapshot) Node(ref Ref) (Node, bool) {
	for _, n := range s.nodes {
		if n.Ref() == ref {
			return n, true
		}
	}
	return Node{}, false
}

// Devices returns device nodes for one direction, default first, the rest in
// discovery order.
func (s Snapshot) Devices(d Direction) []Node {
	return s.ordered(Device, d)
}

// Streams returns application streams for one direction in discovery order.
func (s Snapshot) Streams(d Direction) []Node {
	return s.ordered(Stream, d)
}

func (s Snapshot) ordered(k Kind, d Direction) []Node {
	var out []Node
	for _, n := range s.nodes {
		if n.Kind == k && n.Direction == d {
			out = append(out, n)
		}
	}
	if k == Device {
		sort.SliceStable(out, func(i, j int) bool {
			return s.IsDefault(out[i]) && !s.IsDefault(out[j])
		})
	}
	return out
}

// Default resolves the default device for a direction by existence lookup.
// A default name with no live node reports not-ok, never a stale Node.
func (s Snapshot) Default(d Direction) (Node, bool) {
	name := s.defaultName(d)
	if name == "" {
		return Node{}, false
	}
	for _, n := range s.nodes {
		if n.Kind == Device && n.Direction == d && n.Key == name {
			return n, true
		}
	}
	return Node{}, false
}

// IsDefault reports whether n is the current default device for its
// direction.
func (s Snapshot) IsDefault(n Node) bool {
	return n.Kind == Device && n.Key != "" && n.Key == s.defaultName(n.Direction)
}

func (s Snapshot) defaultName(d Direction) string {
	if d == Input {
		return s.DefaultInput
	}
	return s.DefaultOutput
}

// Card looks up one sound card.
func (s Snapshot) Card(id uint32) (Card, bool) {
	c, ok := s.cards[id]
	return c, ok
}
