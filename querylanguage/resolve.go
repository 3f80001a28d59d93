package querylanguage

import (
	"context"
	"errors"
	"strings"

	"github.com/syssam/restql/schema"
)

// Graph accumulates RelationNodes while dotted paths are resolved. Each
// related table appears at most once; resolving two paths through the same
// table merges into the existing node instead of duplicating the join.
type Graph struct {
	nodes []*RelationNode
	index map[string]int
}

// NewGraph returns an empty accumulator.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Seed pre-populates the graph with nodes resolved by an earlier pass so
// later passes merge into them instead of duplicating joins.
func Seed(nodes []*RelationNode) *Graph {
	g := NewGraph()
	for _, n := range nodes {
		g.put(n)
	}
	return g
}

// Node returns the node for the given table, if present.
func (g *Graph) Node(table string) (*RelationNode, bool) {
	i, ok := g.index[table]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Nodes returns the accumulated nodes in insertion order.
func (g *Graph) Nodes() []*RelationNode {
	return g.nodes
}

func (g *Graph) put(n *RelationNode) {
	g.index[n.Table] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// merge folds another graph into this one, keeping insertion order
// deterministic: existing nodes absorb columns and filters, new nodes
// append in the other graph's order.
func (g *Graph) merge(other *Graph) {
	for _, n := range other.nodes {
		existing, ok := g.Node(n.Table)
		if !ok {
			g.put(n)
			continue
		}
		for _, c := range n.Columns {
			existing.addColumn(c)
		}
		existing.Where = append(existing.Where, n.Where...)
	}
}

// Resolver walks dotted relation chains against introspected schemas,
// fetching each hop's schema on demand. Hop resolution is strictly
// sequential: each hop's catalog lookup depends on the previous hop's
// schema.
type Resolver struct {
	loader SchemaLoader
}

// NewResolver returns a Resolver reading schemas from the given loader.
func NewResolver(loader SchemaLoader) *Resolver {
	return &Resolver{loader: loader}
}

// walk resolves a chain of relation hops starting at root, creating or
// merging one RelationNode per hop, and returns the node of the final hop.
// A hop absent from the current schema fails with *RelationError.
func (r *Resolver) walk(ctx context.Context, root *schema.Schema, hops []string, g *Graph) (*RelationNode, error) {
	var (
		cur  = root
		last *RelationNode
	)
	for _, hop := range hops {
		rel, ok := cur.Relation(hop)
		if !ok {
			return nil, &RelationError{Table: cur.Table, Hop: hop}
		}
		node, ok := g.Node(hop)
		if !ok {
			hs, err := r.loader.Schema(ctx, hop)
			if err != nil {
				return nil, err
			}
			node = &RelationNode{
				Table:  hop,
				Schema: hs,
				Join: JoinSpec{
					Kind:         InnerJoin,
					ParentTable:  cur.Table,
					ParentColumn: rel.Column,
					Column:       rel.OrgColumn,
				},
			}
			g.put(node)
		}
		cur = node.Schema
		last = node
	}
	return last, nil
}

// Field resolves a dotted field path ("customer.address.city") and
// attaches the leaf column to the final hop's node. A leaf column missing
// from the final hop's schema fails with *UnknownColumnError.
func (r *Resolver) Field(ctx context.Context, root *schema.Schema, path string, g *Graph) error {
	items := strings.Split(path, ".")
	node, err := r.walk(ctx, root, items[:len(items)-1], g)
	if err != nil {
		return err
	}
	leaf := items[len(items)-1]
	if !node.Schema.HasColumn(leaf) {
		return &UnknownColumnError{Table: node.Table, Column: leaf}
	}
	node.addColumn(leaf)
	return nil
}

// Filter resolves a dotted filter column and attaches the condition,
// rewritten to the bare leaf column, to the final hop's node.
func (r *Resolver) Filter(ctx context.Context, root *schema.Schema, cond FilterCondition, g *Graph) error {
	items := strings.Split(cond.Column, ".")
	node, err := r.walk(ctx, root, items[:len(items)-1], g)
	if err != nil {
		return err
	}
	leaf := items[len(items)-1]
	col, ok := node.Schema.Column(leaf)
	if !ok {
		return &UnknownColumnError{Table: node.Table, Column: leaf}
	}
	if !cond.Op.Valueless() {
		if err := conform(col.Type, cond.Op, cond.Value); err != nil {
			return &TypeMismatchError{Table: node.Table, Column: leaf, Err: err}
		}
	}
	cond.Column = leaf
	node.Where = append(node.Where, cond)
	return nil
}

// Relation resolves a relation path where every item is a relation hop.
func (r *Resolver) Relation(ctx context.Context, root *schema.Schema, path string, g *Graph) error {
	_, err := r.walk(ctx, root, strings.Split(path, "."), g)
	return err
}

// IsUserError reports whether the resolution error is user-correctable
// (an unknown column or a mismatched value) rather than a hard relation
// fault.
func IsUserError(err error) bool {
	var (
		uc *UnknownColumnError
		tm *TypeMismatchError
	)
	return errors.As(err, &uc) || errors.As(err, &tm)
}
