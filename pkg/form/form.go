// Package form maps a field schema plus front-matter data onto an editable
// node tree and reads the tree back into data. The tree is independent of
// any terminal widget; pkg/tui binds widgets to it.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/richtext"
)

var (
	ErrUnknownVariant  = errors.New("form: unknown list variant")
	ErrNoSuchField     = errors.New("form: no such field")
	ErrIndexOutOfRange = errors.New("form: list index out of range")
	ErrNotEditable     = errors.New("form: field is not a text control")
)

// TypeKey is the list item key naming the item's variant.
const TypeKey = "type"

// Node is one rendered schema field.
type Node interface {
	Schema() models.FieldSchema
	Name() string
}

type base struct {
	schema models.FieldSchema
}

func (b *base) Schema() models.FieldSchema { return b.schema }
func (b *base) Name() string               { return b.schema.Name }

// ControlNode is a text-valued field: string, text, code or markdown.
type ControlNode struct {
	base
	Value    string
	EditorID string

	pool    richtext.Pool
	initial string
	// original is the stored value, or the declared default when the
	// field was absent; keep reports that there is one to write back.
	original interface{}
	keep     bool
}

// Text returns the live value, preferring the attached editor when it is
// still acquired.
func (c *ControlNode) Text() string {
	if c.EditorID != "" && c.pool != nil {
		if ed, ok := c.pool.Get(c.EditorID); ok {
			return ed.Content()
		}
	}
	return c.Value
}

// SetText updates the control and its editor.
func (c *ControlNode) SetText(s string) {
	c.Value = s
	if c.EditorID != "" && c.pool != nil {
		if ed, ok := c.pool.Get(c.EditorID); ok {
			ed.SetContent(s)
		}
	}
}

// Dirty reports whether the text differs from what was rendered.
func (c *ControlNode) Dirty() bool {
	return c.Text() != c.initial
}

func (c *ControlNode) value() interface{} {
	text := c.Text()
	// Untouched non-string values (numbers, dates, defaults) keep their type.
	if c.keep && text == c.initial {
		return c.original
	}
	return text
}

// HiddenNode carries a hidden field through the form without showing it.
type HiddenNode struct {
	base
	value   interface{}
	present bool
}

func (h *HiddenNode) resolve() (interface{}, bool) {
	if h.present {
		return h.value, true
	}
	if h.schema.Default != nil {
		return h.schema.Default, true
	}
	return nil, false
}

// MismatchNode holds a stored value whose shape does not fit its object
// or list widget. The value is written back as read until Reset replaces
// it with an empty one of the declared shape.
type MismatchNode struct {
	base
	Raw interface{}
}

// Describe names the stored shape, e.g. "string".
func (m *MismatchNode) Describe() string {
	switch m.Raw.(type) {
	case string:
		return "string"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	case bool:
		return "boolean"
	case int, int64, float64:
		return "number"
	}
	return fmt.Sprintf("%T", m.Raw)
}

// GroupNode is a nested object rendered as a labeled sub-form.
type GroupNode struct {
	base
	Children []Node
	extra    map[string]interface{}
}

// ListNode is an ordered list of variant-typed items.
type ListNode struct {
	base
	Items []*ItemNode
	pool  richtext.Pool
}

// ItemNode is one list item. Items whose type tag matches no variant are
// kept verbatim in Raw and never edited.
type ItemNode struct {
	TypeName string
	Variant  *models.ListVariant
	Children []Node
	Raw      interface{}

	extra map[string]interface{}
}

// Unknown reports whether the item's type tag matched no variant.
func (it *ItemNode) Unknown() bool {
	return it.Variant == nil
}

// Label is the item heading, e.g. "Quote #2".
func (it *ItemNode) Label(index int) string {
	if it.Variant == nil {
		if it.TypeName == "" {
			return fmt.Sprintf("Unknown item #%d", index+1)
		}
		return fmt.Sprintf("Unknown type %q #%d", it.TypeName, index+1)
	}
	return fmt.Sprintf("%s #%d", it.Variant.DisplayLabel(), index+1)
}

// Form is the rendered state of one file's metadata.
type Form struct {
	Fields []models.FieldSchema
	Nodes  []Node

	pool  richtext.Pool
	extra map[string]interface{}
}

// Render builds the node tree for fields against data. Markdown controls
// acquire an editor from pool when pool is non-nil.
func Render(fields []models.FieldSchema, data map[string]interface{}, pool richtext.Pool) *Form {
	return &Form{
		Fields: fields,
		Nodes:  renderFields(fields, data, pool),
		pool:   pool,
		extra:  undeclared(fields, data),
	}
}

func renderFields(fields []models.FieldSchema, data map[string]interface{}, pool richtext.Pool) []Node {
	nodes := make([]Node, 0, len(fields))
	for _, f := range fields {
		v, present := data[f.Name]
		switch f.Widget {
		case models.WidgetHidden:
			nodes = append(nodes, &HiddenNode{base: base{f}, value: v, present: present})
		case models.WidgetScalar, models.WidgetText, models.WidgetCode, models.WidgetMarkdown:
			text, original := formatValue(v), v
			if !present && f.Default != nil {
				text, original = formatValue(f.Default), f.Default
			}
			c := &ControlNode{
				base:     base{f},
				Value:    text,
				pool:     pool,
				initial:  text,
				original: original,
				keep:     present || f.Default != nil,
			}
			if f.Widget == models.WidgetMarkdown && pool != nil {
				c.EditorID = pool.Acquire(text).ID()
			}
			nodes = append(nodes, c)
		case models.WidgetObject:
			if _, ok := v.(map[string]interface{}); v != nil && !ok {
				nodes = append(nodes, &MismatchNode{base: base{f}, Raw: v})
				continue
			}
			sub := asMap(v)
			nodes = append(nodes, &GroupNode{
				base:     base{f},
				Children: renderFields(f.Fields, sub, pool),
				extra:    undeclared(f.Fields, sub),
			})
		case models.WidgetList:
			if _, ok := v.([]interface{}); v != nil && !ok {
				nodes = append(nodes, &MismatchNode{base: base{f}, Raw: v})
				continue
			}
			l := &ListNode{base: base{f}, pool: pool}
			l.Items = l.renderItems(asSlice(v))
			nodes = append(nodes, l)
		}
	}
	return nodes
}

func (l *ListNode) renderItems(data []interface{}) []*ItemNode {
	items := make([]*ItemNode, 0, len(data))
	for _, raw := range data {
		m, isMap := raw.(map[string]interface{})
		typeName, _ := m[TypeKey].(string)
		variant, found := l.schema.Variant(typeName)
		if !isMap || !found {
			items = append(items, &ItemNode{TypeName: typeName, Raw: raw})
			continue
		}
		v := variant
		items = append(items, &ItemNode{
			TypeName: typeName,
			Variant:  &v,
			Children: renderFields(v.Fields, m, l.pool),
			extra:    undeclared(v.Fields, m, TypeKey),
		})
	}
	return items
}

// Reset replaces a mismatched value with an empty one of the declared
// shape. It reports false when m is not part of the form.
func (f *Form) Reset(m *MismatchNode) bool {
	fresh := renderFields([]models.FieldSchema{m.schema}, map[string]interface{}{}, f.pool)[0]
	return replaceNode(f.Nodes, m, fresh)
}

func replaceNode(nodes []Node, target, with Node) bool {
	for i, n := range nodes {
		if n == target {
			nodes[i] = with
			return true
		}
		switch n := n.(type) {
		case *GroupNode:
			if replaceNode(n.Children, target, with) {
				return true
			}
		case *ListNode:
			for _, it := range n.Items {
				if replaceNode(it.Children, target, with) {
					return true
				}
			}
		}
	}
	return false
}

// Release tears down every editor the form acquired.
func (f *Form) Release() {
	if f == nil {
		return
	}
	richtext.ReleaseAll(f.pool, editorIDs(f.Nodes))
}

func editorIDs(nodes []Node) []string {
	var ids []string
	for _, n := range nodes {
		switch n := n.(type) {
		case *ControlNode:
			if n.EditorID != "" {
				ids = append(ids, n.EditorID)
			}
		case *GroupNode:
			ids = append(ids, editorIDs(n.Children)...)
		case *ListNode:
			for _, it := range n.Items {
				ids = append(ids, editorIDs(it.Children)...)
			}
		}
	}
	return ids
}

// Lookup resolves a dotted path such as "seo.description" or
// "sections.1.text". List items are addressed by zero-based index.
func (f *Form) Lookup(path string) (Node, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrNoSuchField)
	}
	parts := strings.Split(path, ".")
	nodes := f.Nodes
	for i := 0; i < len(parts); i++ {
		n := findNode(nodes, parts[i])
		if n == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchField, strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return n, nil
		}
		switch n := n.(type) {
		case *GroupNode:
			nodes = n.Children
		case *ListNode:
			i++
			idx, err := parseIndex(parts[i])
			if err != nil || idx >= len(n.Items) {
				return nil, fmt.Errorf("%w: %s", ErrIndexOutOfRange, strings.Join(parts[:i+1], "."))
			}
			item := n.Items[idx]
			if i == len(parts)-1 || item.Unknown() {
				return nil, fmt.Errorf("%w: %s does not address a field", ErrNoSuchField, strings.Join(parts[:i+1], "."))
			}
			nodes = item.Children
		default:
			return nil, fmt.Errorf("%w: %s has no children", ErrNoSuchField, strings.Join(parts[:i+1], "."))
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchField, path)
}

// Control resolves path to a text control.
func (f *Form) Control(path string) (*ControlNode, error) {
	n, err := f.Lookup(path)
	if err != nil {
		return nil, err
	}
	c, ok := n.(*ControlNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, path)
	}
	return c, nil
}

// List resolves path to a list field.
func (f *Form) List(path string) (*ListNode, error) {
	n, err := f.Lookup(path)
	if err != nil {
		return nil, err
	}
	l, ok := n.(*ListNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a list", ErrNoSuchField, path)
	}
	return l, nil
}

// Dirty reports whether any control was edited. List mutations re-render
// their items and are tracked by the caller.
func (f *Form) Dirty() bool {
	dirty := false
	for _, row := range f.Rows() {
		if row.Control != nil && row.Control.Dirty() {
			dirty = true
			break
		}
	}
	return dirty
}

func findNode(nodes []Node, name string) Node {
	for _, n := range nodes {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

func parseIndex(s string) (int, error) {
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return idx, nil
}

func asMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func asSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

// undeclared collects keys of data that no field declares, so that saving
// does not drop metadata the schema does not know about.
func undeclared(fields []models.FieldSchema, data map[string]interface{}, skip ...string) map[string]interface{} {
	if len(data) == 0 {
		return nil
	}
	declared := make(map[string]bool, len(fields)+len(skip))
	for _, f := range fields {
		declared[f.Name] = true
	}
	for _, s := range skip {
		declared[s] = true
	}
	var out map[string]interface{}
	for k, v := range data {
		if declared[k] {
			continue
		}
		if out == nil {
			out = make(map[string]interface{})
		}
		out[k] = v
	}
	return out
}

// formatValue renders a metadata value as editable text.
func formatValue(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	out, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSuffix(string(out), "\n")
}
