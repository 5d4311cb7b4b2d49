package peers

// Set is one immutable snapshot of the active peer nodes. Readers hold a
// whole snapshot, so a concurrent refresh never shows them a mix of old and
// new members. URLs within a set are unique.
type Set struct {
	nodes []*Node
	byURL map[string]*Node
}

var emptySet = &Set{
	byURL: make(map[string]*Node),
}

func newSet(nodes []*Node) *Set {
	byURL := make(map[string]*Node, len(nodes))
	for _, node := range nodes {
		byURL[node.URL()] = node
	}
	return &Set{
		nodes: nodes,
		byURL: byURL,
	}
}

// Nodes returns the members in resolution order. The slice is shared; treat
// it as read-only.
func (T *Set) Nodes() []*Node {
	return T.nodes
}

func (T *Set) Lookup(url string) (*Node, bool) {
	node, ok := T.byURL[url]
	return node, ok
}

func (T *Set) Len() int {
	return len(T.nodes)
}

func (T *Set) URLs() []string {
	urls := make([]string, 0, len(T.nodes))
	for _, node := range T.nodes {
		urls = append(urls, node.URL())
	}
	return urls
}
