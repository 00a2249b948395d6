package search

import "fmt"

// HopKind records how a title in a path was reached from its predecessor.
type HopKind uint8

const (
	// HopStart marks the root of a path.
	HopStart HopKind = iota
	// HopDirect is a link followed from a page. Only direct hops are counted.
	HopDirect
	// HopRedirect is a redirect folded into the preceding hop.
	HopRedirect
	// HopNormalized is a title rewritten by the normalization fallback.
	HopNormalized
)

func (k HopKind) String() string {
	switch k {
	case HopStart:
		return "start"
	case HopDirect:
		return "direct"
	case HopRedirect:
		return "redirect"
	case HopNormalized:
		return "normalized"
	}
	return fmt.Sprintf("HopKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k HopKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *HopKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "start":
		*k = HopStart
	case "direct":
		*k = HopDirect
	case "redirect":
		*k = HopRedirect
	case "normalized":
		*k = HopNormalized
	default:
		return fmt.Errorf("search: unknown hop kind %q", b)
	}
	return nil
}

// Node is one element of a candidate path. Nodes are immutable once created
// and share their ancestors: a page with a hundred links yields a hundred
// nodes pointing at the same parent, so memory grows with the number of
// discovered titles rather than with branches times depth.
type Node struct {
	Title  string
	Parent *Node
	Kind   HopKind
	// Depth is the number of direct hops from the root.
	Depth int32
}

// Root creates the first node of a path.
func Root(title string) *Node {
	return &Node{Title: title, Kind: HopStart}
}

// Extend returns a new node reached from parent. parent is shared, not copied.
func Extend(parent *Node, title string, kind HopKind) *Node {
	depth := parent.Depth
	if kind == HopDirect {
		depth++
	}
	return &Node{Title: title, Parent: parent, Kind: kind, Depth: depth}
}

// Hop is one materialized step of a path.
type Hop struct {
	Title string  `json:"title"`
	Kind  HopKind `json:"kind"`
}

// Path materializes the chain from the root to n. Cost is proportional to
// the path length.
func (n *Node) Path() []Hop {
	size := 0
	for cur := n; cur != nil; cur = cur.Parent {
		size++
	}
	hops := make([]Hop, size)
	for cur := n; cur != nil; cur = cur.Parent {
		size--
		hops[size] = Hop{Title: cur.Title, Kind: cur.Kind}
	}
	return hops
}

// DirectHops counts the direct hops in a materialized path.
func DirectHops(path []Hop) int {
	n := 0
	for _, h := range path {
		if h.Kind == HopDirect {
			n++
		}
	}
	return n
}
