package editor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formedit/pkg/schema"
)

// Kind names an editor variant in the dispatch table.
type Kind string

// Built-in editor kinds.
const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindImage  Kind = "image"
	KindUpload Kind = "upload"
)

// Matcher decides whether a kind should handle the supplied schema.
type Matcher func(s *schema.Schema) bool

type rule struct {
	kind     Kind
	priority int
	match    Matcher
	order    int
}

// Registry resolves schemas to editor kinds and kinds to constructors. Higher
// priority matchers win; ties fall back to registration order. An explicit
// `options.editor` hint on the schema short-circuits matching.
type Registry struct {
	mu           sync.RWMutex
	rules        []rule
	constructors map[Kind]Constructor
}

// NewRegistry returns a registry with the built-in kinds registered.
func NewRegistry() *Registry {
	reg := &Registry{constructors: make(map[Kind]Constructor)}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher for kind. Duplicate kinds are allowed; the highest
// priority match wins.
func (r *Registry) Register(kind Kind, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		kind:     kind,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// RegisterConstructor binds kind to a constructor, replacing any previous
// binding.
func (r *Registry) RegisterConstructor(kind Kind, ctor Constructor) error {
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("editor: kind is required")
	}
	if ctor == nil {
		return fmt.Errorf("editor: constructor for %q is nil", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[kind] = ctor
	return nil
}

// MustRegisterConstructor panics on error, simplifying registry setup.
func (r *Registry) MustRegisterConstructor(kind Kind, ctor Constructor) {
	if err := r.RegisterConstructor(kind, ctor); err != nil {
		panic(err)
	}
}

// Constructor returns the constructor bound to kind.
func (r *Registry) Constructor(kind Kind) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.constructors[normalizeKind(kind)]
	return ctor, ok
}

// Resolve maps a schema to an editor kind.
func (r *Registry) Resolve(s *schema.Schema) (Kind, bool) {
	if s == nil {
		return "", false
	}
	if explicit := normalizeKind(Kind(s.Options.Editor)); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(s) {
			return entry.kind, true
		}
	}
	return "", false
}

func (r *Registry) registerBuiltins() {
	r.Register(KindImage, 90, func(s *schema.Schema) bool {
		if !s.Is(schema.TypeObject) {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(s.Format)) {
		case "image", "imageupload", "image-upload":
			return true
		}
		return false
	})

	r.Register(KindUpload, 80, func(s *schema.Schema) bool {
		if !s.Is(schema.TypeString) {
			return false
		}
		if strings.EqualFold(strings.TrimSpace(s.Format), "upload") {
			return true
		}
		return s.Options.Upload != nil && *s.Options.Upload
	})

	r.Register(KindNumber, 50, func(s *schema.Schema) bool {
		return s.Is(schema.TypeInteger) || s.Is(schema.TypeNumber)
	})

	r.Register(KindString, 10, func(s *schema.Schema) bool {
		return s.Is(schema.TypeString) || strings.TrimSpace(s.Type) == ""
	})

	r.constructors[KindString] = NewStringEditor
	r.constructors[KindNumber] = NewNumberEditor
	r.constructors[KindImage] = NewImageEditor
	r.constructors[KindUpload] = NewUploadEditor
}

func normalizeKind(kind Kind) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(string(kind))))
}
