package migration

import "github.com/google/uuid"

// Status is whether a migration entry is recorded as applied in the ledger.
type Status int

const (
	StatusPending Status = iota
	StatusApplied
)

func (s Status) String() string {
	if s == StatusApplied {
		return "Applied"
	}
	return "Pending"
}

// Entry is a record owned by the revision graph: the user migration, its
// metadata copied out for fast access, an optional ledger handle, and a
// status derived from that handle's presence.
type Entry struct {
	Migration Migration
	Revision  Revision
	Handle    *uuid.UUID
	Status    Status
}

// node is the graph's arena slot. children is a small fixed-capacity
// inline array: the chain is expected linear so four slots is headroom,
// not a hard ceiling enforced anywhere but the construction invariant.
type node struct {
	revisionID string
	parent     int // -1 if none
	children   [4]int
	numChild   int
	entry      Entry
}

// Graph is the immutable in-memory DAG of declared migrations, linked by
// parent revision IDs. Never mutated after construction.
type Graph struct {
	nodes []node
	index map[string]int
	head  int
	queue int
}

// NewGraph builds and validates the revision graph from entries in
// declaration order. Declaration order only affects the arena layout and
// the order in which a node's children are recorded, never correctness:
// the chain itself is defined by DownRevisionID links.
func NewGraph(entries []Entry) (*Graph, error) {
	nodes := make([]node, len(entries))
	index := make(map[string]int, len(entries))

	for i, e := range entries {
		nodes[i] = node{
			revisionID: e.Revision.RevisionID,
			parent:     -1,
			entry:      e,
		}
		index[e.Revision.RevisionID] = i
	}

	for i := range nodes {
		down := nodes[i].entry.Revision.DownRevisionID
		if down == nil {
			continue
		}
		parentIx, ok := index[*down]
		if !ok {
			// Declared parent not among the entries; leave parent unset,
			// so this node counts as a root in the uniqueness check below.
			continue
		}
		nodes[i].parent = parentIx
		p := &nodes[parentIx]
		if p.numChild >= len(p.children) {
			return nil, newError(KindGraph, "revision "+p.revisionID+" has more than 4 children", nil)
		}
		p.children[p.numChild] = i
		p.numChild++
	}

	headIx := -1
	rootIx := -1
	for i, n := range nodes {
		if n.numChild == 0 {
			if headIx != -1 {
				return nil, graphNotFound("head")
			}
			headIx = i
		}
		if n.parent == -1 {
			if rootIx != -1 {
				return nil, graphNotFound("root")
			}
			rootIx = i
		}
	}
	if headIx == -1 {
		return nil, graphNotFound("head")
	}
	if rootIx == -1 {
		return nil, graphNotFound("root")
	}

	return &Graph{nodes: nodes, index: index, head: headIx, queue: rootIx}, nil
}

func (g *Graph) ix(revisionID string) (int, bool) {
	i, ok := g.index[revisionID]
	return i, ok
}

func (g *Graph) childIx(ix int) (int, bool) {
	n := &g.nodes[ix]
	// Tie-break: always the first recorded child, deterministic by
	// insertion order into the children array.
	if n.numChild == 0 {
		return 0, false
	}
	return n.children[0], true
}

func (g *Graph) parentIx(ix int) (int, bool) {
	p := g.nodes[ix].parent
	if p == -1 {
		return 0, false
	}
	return p, true
}

// Head returns the revision ID of the node with no children (the tip).
func (g *Graph) Head() string {
	return g.nodes[g.head].revisionID
}

// Queue returns the revision ID of the unique root (no parent): the
// root of the DAG, not the zeroth-inserted node.
func (g *Graph) Queue() string {
	return g.nodes[g.queue].revisionID
}

// ForwardPath walks successor links starting at from up to and including
// to. It fails if to does not exist; if from is nil or unknown, the path
// is empty.
func (g *Graph) ForwardPath(from *string, to string) ([]string, error) {
	toIx, ok := g.ix(to)
	if !ok {
		return nil, graphNotFound("revision `" + to + "`")
	}

	var startIx int
	hasStart := false
	if from != nil {
		startIx, hasStart = g.ix(*from)
		if !hasStart {
			return nil, nil
		}
	} else {
		return nil, nil
	}

	var path []string
	ix := startIx
	for {
		path = append(path, g.nodes[ix].revisionID)
		if ix == toIx {
			break
		}
		next, ok := g.childIx(ix)
		if !ok {
			break
		}
		ix = next
	}
	return path, nil
}

// BackwardPath walks parent links starting at from down to (but not
// including) stop. If stop is nil, the chain runs to the root inclusive.
func (g *Graph) BackwardPath(from *string, stop *string) []string {
	if from == nil {
		return nil
	}
	startIx, ok := g.ix(*from)
	if !ok {
		return nil
	}
	var stopIx int
	hasStop := false
	if stop != nil {
		stopIx, hasStop = g.ix(*stop)
	}

	var path []string
	ix := startIx
	for {
		if hasStop && ix == stopIx {
			break
		}
		path = append(path, g.nodes[ix].revisionID)
		next, ok := g.parentIx(ix)
		if !ok {
			break
		}
		ix = next
	}
	return path
}

// Get looks up the entry for a revision ID.
func (g *Graph) Get(revisionID string) (Entry, bool) {
	ix, ok := g.ix(revisionID)
	if !ok {
		return Entry{}, false
	}
	return g.nodes[ix].entry, true
}

// ForwardOrder returns every declared revision ID from root to head, used
// by Status() to print entries in forward order regardless of traversal
// direction of the invoked command.
func (g *Graph) ForwardOrder() []string {
	path, _ := g.ForwardPath(strPtr(g.Queue()), g.Head())
	return path
}

func strPtr(s string) *string { return &s }
