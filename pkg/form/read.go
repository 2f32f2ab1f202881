package form

// Read reconstitutes the metadata the form currently holds. List items are
// read in their current order and get their type tag re-attached.
func (f *Form) Read() map[string]interface{} {
	return readNodes(f.Nodes, f.extra)
}

func readNodes(nodes []Node, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(nodes)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for _, n := range nodes {
		switch n := n.(type) {
		case *HiddenNode:
			if v, ok := n.resolve(); ok {
				out[n.Name()] = v
			}
		case *ControlNode:
			out[n.Name()] = n.value()
		case *GroupNode:
			out[n.Name()] = readNodes(n.Children, n.extra)
		case *ListNode:
			out[n.Name()] = n.values()
		case *MismatchNode:
			out[n.Name()] = n.Raw
		}
	}
	return out
}

func (l *ListNode) values() []interface{} {
	items := make([]interface{}, 0, len(l.Items))
	for _, it := range l.Items {
		items = append(items, it.value())
	}
	return items
}

func (it *ItemNode) value() interface{} {
	if it.Unknown() {
		return it.Raw
	}
	m := readNodes(it.Children, it.extra)
	m[TypeKey] = it.TypeName
	return m
}
