// Package export provides a custom frame exporter for the allocator.
package export

import (
	"log/slog"
	"sync"
	"unsafe"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/driver"
	gopointer "github.com/mattn/go-pointer"
)

// Token describes an exported frame. Consumers on the other side of a
// cgo boundary get an opaque pointer and turn it back into a Token with
// Restore.
type Token struct {
	Surface driver.SurfaceID
	Format  driver.FourCC
	Width   uint32
	Height  uint32
	Buffer  driver.BufferInfo
}

// Registry is an allocator.Exporter that keeps one token per exported
// surface. With MaxTokens set it refuses to export more frames than
// that.
type Registry struct {
	MaxTokens int

	mu     sync.Mutex
	tokens map[unsafe.Pointer]*Token
	log    *slog.Logger
}

func NewRegistry(maxTokens int) *Registry {
	return &Registry{
		MaxTokens: maxTokens,
		tokens:    make(map[unsafe.Pointer]*Token),
		log:       slog.With("module", "export"),
	}
}

func (r *Registry) Acquire(mid *allocator.MemID) unsafe.Pointer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.MaxTokens > 0 && len(r.tokens) >= r.MaxTokens {
		r.log.Warn("refusing to export surface, registry is full", "surface", mid.Surface(), "max", r.MaxTokens)
		return nil
	}

	t := &Token{
		Surface: mid.Surface(),
		Format:  mid.DriverFormat(),
		Width:   mid.Width(),
		Height:  mid.Height(),
		Buffer:  mid.BufferInfo(),
	}
	ptr := gopointer.Save(t)
	r.tokens[ptr] = t
	return ptr
}

func (r *Registry) Release(mid *allocator.MemID, token unsafe.Pointer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token]; !ok {
		r.log.Warn("releasing unknown export token", "surface", mid.Surface())
		return
	}
	delete(r.tokens, token)
	gopointer.Unref(token)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// Tokens returns a copy of every live token.
func (r *Registry) Tokens() []Token {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Token, 0, len(r.tokens))
	for _, t := range r.tokens {
		out = append(out, *t)
	}
	return out
}

// Restore returns the token behind an opaque pointer handed out by a
// Registry, or nil if it has been released.
func Restore(ptr unsafe.Pointer) *Token {
	t, _ := gopointer.Restore(ptr).(*Token)
	return t
}
