package columns

import "bytes"

// denseFanout is the child count above which a node switches from sorted
// edge bytes to a full 256-entry table.
const denseFanout = 16

// trieNode is a node of a path-compressed radix trie. A child's prefix starts
// with the edge byte that selects it; chains of single children are merged
// into one prefix. Prefixes point into the table's name block.
type trieNode struct {
	prefix   []byte
	ordinal  int32 // -1 when no name ends here
	keys     []byte
	children []*trieNode
	dense    *[256]*trieNode
}

func (n *trieNode) child(b byte) *trieNode {
	if n.dense != nil {
		return n.dense[b]
	}
	for i, k := range n.keys {
		if k == b {
			return n.children[i]
		}
		if k > b {
			break
		}
	}
	return nil
}

func (n *trieNode) addChild(c *trieNode) {
	b := c.prefix[0]
	if n.dense != nil {
		n.dense[b] = c
		return
	}
	i := 0
	for i < len(n.keys) && n.keys[i] < b {
		i++
	}
	n.keys = append(n.keys, 0)
	copy(n.keys[i+1:], n.keys[i:])
	n.keys[i] = b
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c

	if len(n.keys) > denseFanout {
		n.dense = new([256]*trieNode)
		for j, k := range n.keys {
			n.dense[k] = n.children[j]
		}
		n.keys, n.children = nil, nil
	}
}

type trieIndex struct {
	root *trieNode
}

func newTrieIndex(t *Table, dup func(ordinal, first int)) *trieIndex {
	idx := &trieIndex{root: &trieNode{ordinal: -1}}
	for i := 0; i < t.Len(); i++ {
		if first := idx.insert(t.name(i), int32(i)); first >= 0 {
			dup(i, first)
		}
	}
	return idx
}

// insert adds key under ordinal and returns -1, or returns the ordinal already
// stored for key and leaves the trie unchanged.
func (idx *trieIndex) insert(key []byte, ordinal int32) int {
	n := idx.root
	for {
		common := 0
		for common < len(n.prefix) && common < len(key) && n.prefix[common] == key[common] {
			common++
		}
		if common < len(n.prefix) {
			// split n so that its prefix ends where key diverges
			tail := &trieNode{
				prefix:   n.prefix[common:],
				ordinal:  n.ordinal,
				keys:     n.keys,
				children: n.children,
				dense:    n.dense,
			}
			*n = trieNode{prefix: n.prefix[:common], ordinal: -1}
			n.addChild(tail)
		}
		key = key[common:]
		if len(key) == 0 {
			if n.ordinal >= 0 {
				return int(n.ordinal)
			}
			n.ordinal = ordinal
			return -1
		}
		next := n.child(key[0])
		if next == nil {
			n.addChild(&trieNode{prefix: key, ordinal: ordinal})
			return -1
		}
		n = next
	}
}

func (idx *trieIndex) lookup(name []byte) (int, bool) {
	n := idx.root
	for {
		if len(name) < len(n.prefix) || !bytes.Equal(name[:len(n.prefix)], n.prefix) {
			return -1, false
		}
		name = name[len(n.prefix):]
		if len(name) == 0 {
			return int(n.ordinal), n.ordinal >= 0
		}
		if n = n.child(name[0]); n == nil {
			return -1, false
		}
	}
}
