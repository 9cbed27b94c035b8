// Package graph builds undirected interaction graphs over actor handles.
package graph

import "encoding/json"

// Kind names one of the interaction graphs
type Kind string

const (
	KindReply   Kind = "reply"
	KindReshare Kind = "reshare"
	KindMention Kind = "mention"
)

// Kinds lists every graph in output order.
var Kinds = []Kind{KindReply, KindReshare, KindMention}

// Edge is an unordered pair of handles. A and B are kept in the order the
// edge was first added.
type Edge struct {
	A string
	B string
}

func (e Edge) key() [2]string {
	if e.B < e.A {
		return [2]string{e.B, e.A}
	}
	return [2]string{e.A, e.B}
}

// Graph is an undirected simple graph. Adding a node or edge that already
// exists is a no-op. Self-loops are stored like any other edge.
type Graph struct {
	kind  Kind
	nodes []string
	index map[string]struct{}
	edges []Edge
	seen  map[[2]string]struct{}
}

// New returns an empty graph of the given kind.
func New(kind Kind) *Graph {
	return &Graph{
		kind:  kind,
		index: make(map[string]struct{}),
		seen:  make(map[[2]string]struct{}),
	}
}

// Kind returns the graph kind.
func (g *Graph) Kind() Kind { return g.kind }

// AddNode inserts handle if it is not present yet.
func (g *Graph) AddNode(handle string) {
	if _, ok := g.index[handle]; ok {
		return
	}
	g.index[handle] = struct{}{}
	g.nodes = append(g.nodes, handle)
}

// AddEdge inserts both endpoints and the edge between them.
func (g *Graph) AddEdge(a, b string) {
	g.AddNode(a)
	g.AddNode(b)

	e := Edge{A: a, B: b}
	k := e.key()
	if _, ok := g.seen[k]; ok {
		return
	}
	g.seen[k] = struct{}{}
	g.edges = append(g.edges, e)
}

// HasNode reports whether handle is in the graph.
func (g *Graph) HasNode(handle string) bool {
	_, ok := g.index[handle]
	return ok
}

// HasEdge reports whether a and b are connected, in either direction.
func (g *Graph) HasEdge(a, b string) bool {
	_, ok := g.seen[Edge{A: a, B: b}.key()]
	return ok
}

// Nodes returns the handles in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

type graphJSON struct {
	Kind  Kind        `json:"kind"`
	Nodes []string    `json:"nodes"`
	Edges [][2]string `json:"edges"`
}

// MarshalJSON encodes the graph as {"kind","nodes","edges":[[a,b],...]}.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := graphJSON{
		Kind:  g.kind,
		Nodes: g.Nodes(),
		Edges: make([][2]string, len(g.edges)),
	}
	if out.Nodes == nil {
		out.Nodes = []string{}
	}
	for i, e := range g.edges {
		out.Edges[i] = [2]string{e.A, e.B}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds a graph from its JSON form.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*g = *New(in.Kind)
	for _, n := range in.Nodes {
		g.AddNode(n)
	}
	for _, e := range in.Edges {
		g.AddEdge(e[0], e[1])
	}
	return nil
}
