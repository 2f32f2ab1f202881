package form

import (
	"fmt"

	"github.com/strategycontent/contentdesk/pkg/richtext"
	"github.com/strategycontent/contentdesk/pkg/schema"
)

// Len is the number of items, including unknown ones.
func (l *ListNode) Len() int {
	return len(l.Items)
}

// MoveUp swaps item i with its predecessor. It reports false when i is
// the first item or out of range.
func (l *ListNode) MoveUp(i int) bool {
	if i <= 0 || i >= len(l.Items) {
		return false
	}
	l.mutate(func(items []interface{}) []interface{} {
		items[i-1], items[i] = items[i], items[i-1]
		return items
	})
	return true
}

// MoveDown swaps item i with its successor. It reports false when i is
// the last item or out of range.
func (l *ListNode) MoveDown(i int) bool {
	if i < 0 || i >= len(l.Items)-1 {
		return false
	}
	l.mutate(func(items []interface{}) []interface{} {
		items[i], items[i+1] = items[i+1], items[i]
		return items
	})
	return true
}

// Remove deletes item i; later items shift down by one.
func (l *ListNode) Remove(i int) bool {
	if i < 0 || i >= len(l.Items) {
		return false
	}
	l.mutate(func(items []interface{}) []interface{} {
		return append(items[:i], items[i+1:]...)
	})
	return true
}

// Add appends a new item of the named variant filled with its defaults.
func (l *ListNode) Add(variantName string) error {
	variant, ok := l.schema.Variant(variantName)
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownVariant, variantName, l.Name())
	}
	l.mutate(func(items []interface{}) []interface{} {
		return append(items, schema.VariantDefaults(variant))
	})
	return nil
}

// VariantNames lists the variants offered by the add control.
func (l *ListNode) VariantNames() []string {
	names := make([]string, 0, len(l.schema.Types))
	for _, v := range l.schema.Types {
		names = append(names, v.Name)
	}
	return names
}

// mutate snapshots the current item values, so pending edits survive,
// applies fn and re-renders every item. Editors held by the old items are
// released before new ones are acquired.
func (l *ListNode) mutate(fn func([]interface{}) []interface{}) {
	items := fn(l.values())
	var ids []string
	for _, it := range l.Items {
		ids = append(ids, editorIDs(it.Children)...)
	}
	richtext.ReleaseAll(l.pool, ids)
	l.Items = l.renderItems(items)
}
