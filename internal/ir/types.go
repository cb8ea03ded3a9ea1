package ir

import (
	"encoding/json"
	"fmt"
)

// ElementID identifies an element within its enclosing package.
// IDs are assigned by the package, start at 1 and are never reused.
// Negative IDs are reserved for the boundary proxies.
type ElementID int64

// Position is the editor canvas position of an element.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Metadata is editor-facing element data. The engine stores and
// round-trips it but never interprets it.
type Metadata struct {
	Name     string   `json:"name,omitempty"`
	Icon     string   `json:"icon,omitempty"`
	Position Position `json:"position"`
}

// SocketDoc describes one socket in a saved package.
// Default is only meaningful for inputs.
type SocketDoc struct {
	Label   string `json:"label"`
	Kind    Kind   `json:"kind"`
	Default Value  `json:"default,omitempty"`
}

// UnmarshalJSON decodes the tagged default value.
func (s *SocketDoc) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label   string          `json:"label"`
		Kind    Kind            `json:"kind"`
		Default json.RawMessage `json:"default,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Label = raw.Label
	s.Kind = raw.Kind
	s.Default = nil
	if len(raw.Default) > 0 && string(raw.Default) != "null" {
		v, err := UnmarshalValue(raw.Default)
		if err != nil {
			return fmt.Errorf("socket %q default: %w", raw.Label, err)
		}
		s.Default = v
	}
	return nil
}

// ElementDoc is one element in a saved package: its type, configuration,
// metadata and socket layout. Body is set for nested packages.
type ElementDoc struct {
	ID      ElementID   `json:"id"`
	Type    string      `json:"type"`
	Meta    Metadata    `json:"meta"`
	Config  Config      `json:"config,omitempty"`
	Inputs  []SocketDoc `json:"inputs"`
	Outputs []SocketDoc `json:"outputs"`
	Body    *PackageDoc `json:"body,omitempty"`
}

// LinkDoc is one link in a saved package as a
// (source element, source socket, destination element, destination socket)
// tuple.
type LinkDoc struct {
	From       ElementID `json:"from"`
	FromSocket int       `json:"from_socket"`
	To         ElementID `json:"to"`
	ToSocket   int       `json:"to_socket"`
}

// String renders the link as "from.socket->to.socket".
func (l LinkDoc) String() string {
	return fmt.Sprintf("%d.%d->%d.%d", l.From, l.FromSocket, l.To, l.ToSocket)
}

// PackageDoc is the enumeration of a package: external sockets, elements in
// insertion order and links in creation order. Reconstructing a package from
// its PackageDoc yields the same package.
//
// NextID is only set when removed elements left IDs above the highest
// remaining one, so that those IDs stay retired after a reload.
type PackageDoc struct {
	Type        string       `json:"type"`
	Meta        Metadata     `json:"meta"`
	InputsMeta  Metadata     `json:"inputs_meta"`
	OutputsMeta Metadata     `json:"outputs_meta"`
	Inputs      []SocketDoc  `json:"inputs"`
	Outputs     []SocketDoc  `json:"outputs"`
	Elements    []ElementDoc `json:"elements"`
	Links       []LinkDoc    `json:"links"`
	NextID      ElementID    `json:"next_id,omitempty"`
}

// Direction tells whether a sample was taken from a package input or output.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Sample is the value of one external socket of a ticked package after
// a given tick.
type Sample struct {
	Tick      int64     `json:"tick"`
	Direction Direction `json:"direction"`
	Socket    int       `json:"socket"`
	Label     string    `json:"label"`
	Value     Value     `json:"value"`
}

// UnmarshalJSON decodes the tagged sample value.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw struct {
		Tick      int64           `json:"tick"`
		Direction Direction       `json:"direction"`
		Socket    int             `json:"socket"`
		Label     string          `json:"label"`
		Value     json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := UnmarshalValue(raw.Value)
	if err != nil {
		return fmt.Errorf("sample tick %d: %w", raw.Tick, err)
	}
	*s = Sample{Tick: raw.Tick, Direction: raw.Direction, Socket: raw.Socket, Label: raw.Label, Value: v}
	return nil
}
