package tui

import (
	"sync"

	"github.com/charmbracelet/bubbles/textarea"

	"github.com/strategycontent/contentdesk/pkg/richtext"
)

// textareaEditor is a markdown editor backed by a bubbles textarea.
type textareaEditor struct {
	id string
	ta *textarea.Model
}

func (e *textareaEditor) ID() string          { return e.id }
func (e *textareaEditor) Content() string     { return e.ta.Value() }
func (e *textareaEditor) SetContent(s string) { e.ta.SetValue(s) }

// TextareaPool hands out one textarea per markdown control of the open
// form. The editor view drives the textarea directly while it has focus.
type TextareaPool struct {
	mu      sync.Mutex
	editors map[string]*textareaEditor
}

func NewTextareaPool() *TextareaPool {
	return &TextareaPool{editors: make(map[string]*textareaEditor)}
}

func (p *TextareaPool) Acquire(initial string) richtext.Editor {
	ta := newTextarea()
	ta.SetValue(initial)
	e := &textareaEditor{id: richtext.NewID(), ta: &ta}
	p.mu.Lock()
	p.editors[e.id] = e
	p.mu.Unlock()
	return e
}

func (p *TextareaPool) Get(id string) (richtext.Editor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.editors[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (p *TextareaPool) Release(id string) {
	p.mu.Lock()
	delete(p.editors, id)
	p.mu.Unlock()
}

func (p *TextareaPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.editors)
}

// Textarea returns the live textarea behind editor id.
func (p *TextareaPool) Textarea(id string) (*textarea.Model, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.editors[id]
	if !ok {
		return nil, false
	}
	return e.ta, true
}

func newTextarea() textarea.Model {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.Prompt = "  "
	ta.CharLimit = 0
	ta.SetWidth(60)
	ta.SetHeight(8)
	return ta
}
