package form

import (
	"strconv"
)

// RowKind identifies what a flattened row shows.
type RowKind int

const (
	RowControl RowKind = iota
	RowGroup
	RowList
	RowItem
	RowUnknownItem
	RowAdd
	RowMismatch
)

// Row is one line of the flattened form, in visual order. Hidden fields
// produce no row.
type Row struct {
	Kind     RowKind
	Depth    int
	Path     string
	Label    string
	Control  *ControlNode
	List     *ListNode
	Item     *ItemNode
	Mismatch *MismatchNode
	Index    int
}

// Focusable reports whether the row accepts the cursor.
func (r Row) Focusable() bool {
	switch r.Kind {
	case RowControl, RowItem, RowUnknownItem, RowAdd, RowMismatch:
		return true
	}
	return false
}

// Rows flattens the form depth-first. Each list is followed by its items
// and closed by an add row.
func (f *Form) Rows() []Row {
	return appendRows(nil, f.Nodes, "", 0)
}

func appendRows(rows []Row, nodes []Node, prefix string, depth int) []Row {
	for _, n := range nodes {
		path := n.Name()
		if prefix != "" {
			path = prefix + "." + path
		}
		label := n.Schema().DisplayLabel()
		switch n := n.(type) {
		case *ControlNode:
			rows = append(rows, Row{Kind: RowControl, Depth: depth, Path: path, Label: label, Control: n})
		case *MismatchNode:
			rows = append(rows, Row{Kind: RowMismatch, Depth: depth, Path: path, Label: label, Mismatch: n})
		case *GroupNode:
			rows = append(rows, Row{Kind: RowGroup, Depth: depth, Path: path, Label: label})
			rows = appendRows(rows, n.Children, path, depth+1)
		case *ListNode:
			rows = append(rows, Row{Kind: RowList, Depth: depth, Path: path, Label: label, List: n})
			for i, it := range n.Items {
				itemPath := path + "." + strconv.Itoa(i)
				kind := RowItem
				if it.Unknown() {
					kind = RowUnknownItem
				}
				rows = append(rows, Row{Kind: kind, Depth: depth + 1, Path: itemPath, Label: it.Label(i), List: n, Item: it, Index: i})
				rows = appendRows(rows, it.Children, itemPath, depth+2)
			}
			rows = append(rows, Row{Kind: RowAdd, Depth: depth + 1, Path: path, Label: "Add " + label, List: n, Index: len(n.Items)})
		}
	}
	return rows
}
