// Package richtext models the inline editor attached to markdown fields.
// Each render pass acquires one editor per markdown control and releases
// all of them before the next pass.
package richtext

import (
	"sync"

	"github.com/google/uuid"
)

// IDPrefix prefixes every generated editor identifier.
const IDPrefix = "md-"

// Editor is one live inline editor instance.
type Editor interface {
	ID() string
	Content() string
	SetContent(content string)
}

// Pool hands out editors and tears them down.
type Pool interface {
	Acquire(initial string) Editor
	Get(id string) (Editor, bool)
	Release(id string)
	Len() int
}

// NewID returns a unique editor identifier.
func NewID() string {
	return IDPrefix + uuid.NewString()
}

// ReleaseAll releases every id in ids.
func ReleaseAll(p Pool, ids []string) {
	if p == nil {
		return
	}
	for _, id := range ids {
		p.Release(id)
	}
}

type memoryEditor struct {
	id      string
	mu      sync.Mutex
	content string
}

func (e *memoryEditor) ID() string { return e.id }

func (e *memoryEditor) Content() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.content
}

func (e *memoryEditor) SetContent(content string) {
	e.mu.Lock()
	e.content = content
	e.mu.Unlock()
}

// MemoryPool keeps editors in process memory. It backs headless commands
// and tests.
type MemoryPool struct {
	mu      sync.Mutex
	editors map[string]*memoryEditor
}

func NewMemoryPool() *MemoryPool {
	return &MemoryPool{editors: make(map[string]*memoryEditor)}
}

func (p *MemoryPool) Acquire(initial string) Editor {
	e := &memoryEditor{id: NewID(), content: initial}
	p.mu.Lock()
	p.editors[e.id] = e
	p.mu.Unlock()
	return e
}

func (p *MemoryPool) Get(id string) (Editor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.editors[id]
	if !ok {
		return nil, false
	}
	return e, true
}

func (p *MemoryPool) Release(id string) {
	p.mu.Lock()
	delete(p.editors, id)
	p.mu.Unlock()
}

func (p *MemoryPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.editors)
}
