// Package trie implements the in-memory prefix index over contact fields.
//
// Every node along a key's path carries the set of record ids whose key
// passes through it, so a prefix lookup is a single path walk with no
// subtree traversal. Lookup cost depends on prefix length and result size
// only, not on the number of indexed records.
package trie

// node is one character position in the index. Each node exclusively owns
// its children; the trie is a pure forward tree with no back references.
type node struct {
	children map[rune]*node
	ids      map[int64]struct{}
}

func newNode() *node {
	return &node{
		children: make(map[rune]*node),
		ids:      make(map[int64]struct{}),
	}
}

// Trie maps string keys to sets of record ids and answers prefix queries.
// It is not safe for concurrent use; the owning store serializes access.
type Trie struct {
	root *node
	keys int
}

// New creates an empty Trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Insert adds id to every node on key's path, creating nodes as needed.
// Keys are walked rune-wise, so multi-byte characters index correctly.
func (t *Trie) Insert(key string, id int64) {
	if key == "" {
		return
	}
	n := t.root
	for _, ch := range key {
		child, ok := n.children[ch]
		if !ok {
			child = newNode()
			n.children[ch] = child
		}
		child.ids[id] = struct{}{}
		n = child
	}
	t.keys++
}

// Remove discards id from every node on key's path and prunes nodes left
// with no ids and no children. Missing paths are a no-op.
func (t *Trie) Remove(key string, id int64) {
	type step struct {
		parent *node
		ch     rune
	}

	if key == "" {
		return
	}
	n := t.root
	path := make([]step, 0, len(key))
	for _, ch := range key {
		child, ok := n.children[ch]
		if !ok {
			return
		}
		path = append(path, step{parent: n, ch: ch})
		n = child
	}
	if _, ok := n.ids[id]; !ok {
		return
	}

	// Walk back up so emptied leaves are removed before their parents are
	// examined.
	for i := len(path) - 1; i >= 0; i-- {
		child := path[i].parent.children[path[i].ch]
		delete(child.ids, id)
		if len(child.ids) == 0 && len(child.children) == 0 {
			delete(path[i].parent.children, path[i].ch)
		}
	}
	t.keys--
}

// Lookup returns the ids of all records whose key equals or starts with
// prefix. The result is a fresh slice in no particular order; an absent
// path yields an empty result. An empty prefix matches every indexed id.
func (t *Trie) Lookup(prefix string) []int64 {
	n := t.root
	for _, ch := range prefix {
		child, ok := n.children[ch]
		if !ok {
			return nil
		}
		n = child
	}

	if n == t.root {
		return t.allIDs()
	}
	ids := make([]int64, 0, len(n.ids))
	for id := range n.ids {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of keys inserted and not yet removed.
func (t *Trie) Len() int {
	return t.keys
}

// allIDs collects the union of ids at depth one, which is exactly the set
// of all indexed ids since every key passes through a first-rune node.
func (t *Trie) allIDs() []int64 {
	seen := make(map[int64]struct{})
	for _, child := range t.root.children {
		for id := range child.ids {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids
}
