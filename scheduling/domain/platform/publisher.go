package platform

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/AzielCF/az-social/scheduling/domain/common"
)

// Publisher is the contract each social platform client must satisfy.
// The returned message is surfaced to the UI for both successes and failures.
type Publisher interface {
	Publish(ctx context.Context, media common.Publishable, caption string) (string, error)
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(ctx context.Context, media common.Publishable, caption string) (string, error)

func (f PublisherFunc) Publish(ctx context.Context, media common.Publishable, caption string) (string, error) {
	return f(ctx, media, caption)
}

// Registry maps platform identifiers to their clients.
type Registry struct {
	mu         sync.RWMutex
	publishers map[string]Publisher
}

func NewRegistry() *Registry {
	return &Registry{publishers: make(map[string]Publisher)}
}

func (r *Registry) Register(name string, p Publisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishers[strings.ToLower(strings.TrimSpace(name))] = p
}

func (r *Registry) Get(name string) (Publisher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.publishers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns the registered platform identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.publishers))
	for name := range r.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type postIDKey struct{}

// WithPostID tags ctx with the id of the post being published. Publishers that hand the post
// to a remote service send it along so a repeated delivery can be recognised.
func WithPostID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, postIDKey{}, id)
}

func PostIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(postIDKey{}).(string)
	return id, ok && id != ""
}
