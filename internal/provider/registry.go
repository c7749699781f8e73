package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Factory builds a provider bound to the caller's API key.
type Factory func(apiKey string) Provider

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with all built-in adapters registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("openai", func(apiKey string) Provider { return NewOpenAI(apiKey) })
	r.Register("openrouter", func(apiKey string) Provider { return NewOpenRouter(apiKey) })
	r.Register("gemini", func(apiKey string) Provider { return NewGemini(apiKey) })
	return r
}

func (r *Registry) Register(name string, f Factory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(name, apiKey string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return f(apiKey), nil
}
