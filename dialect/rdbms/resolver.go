package rdbms

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/syssam/signet"
	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/sql"
)

// Factory builds the Dialect of a registry entry.
type Factory func() (*Dialect, error)

// Entry pairs a signet matcher with the Dialect it resolves to. The
// dialect is built on first use and reused afterwards.
type Entry struct {
	Name    string
	Matcher dialect.Matcher
	dialect func() (*Dialect, error)
}

// NewEntry returns a registry entry. The name describes the entry in
// listings, e.g. "MySQL 8.0+".
func NewEntry(name string, m dialect.Matcher, f Factory) *Entry {
	return &Entry{Name: name, Matcher: m, dialect: sync.OnceValues(f)}
}

// Dialect returns the dialect of the entry.
func (e *Entry) Dialect() (*Dialect, error) { return e.dialect() }

var registry struct {
	mu      sync.RWMutex
	entries []*Entry
}

// Register registers a dialect entry. Vendor packages call it from their
// init functions; entries are matched in registration order, so vendors
// register their newest entries first.
func Register(name string, m dialect.Matcher, f Factory) {
	if m == nil || f == nil {
		panic(fmt.Sprintf("rdbms: Register %q with nil matcher or factory", name))
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.entries = append(registry.entries, NewEntry(name, m, f))
}

// Entries returns the registered entries in registration order.
func Entries() []*Entry {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return append([]*Entry(nil), registry.entries...)
}

// Resolver selects the Dialect of a live connection.
type Resolver struct {
	entries   []*Entry
	overrides Overrides
	logger    *slog.Logger
	mu        sync.Mutex
	resolved  map[*Entry]*Dialect
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithOverrides applies settings overrides to the resolved dialects.
func WithOverrides(o Overrides) ResolverOption {
	return func(r *Resolver) {
		r.overrides = o
	}
}

// WithResolverLogger sets the logger of the resolver and of the dialects
// it returns.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a resolver over the given entries.
func NewResolver(entries []*Entry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		entries:  entries,
		logger:   slog.Default(),
		resolved: make(map[*Entry]*Dialect),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DefaultResolver returns a resolver over the registered entries.
func DefaultResolver(opts ...ResolverOption) *Resolver {
	return NewResolver(Entries(), opts...)
}

// Resolve reads the product metadata of the connection and returns the
// Dialect of the first entry matching its signet.
func (r *Resolver) Resolve(ctx context.Context, conn sql.MetadataReader) (*Dialect, error) {
	meta, err := conn.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("rdbms: read connection metadata: %w", err)
	}
	d, err := r.ResolveSignet(meta.Signet())
	if err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "resolved dialect", "signet", meta.Signet(), "version", meta.Version, "dialect", d.Signet())
	return d, nil
}

// ResolveSettings returns the vendor settings of the connection's Dialect.
func (r *Resolver) ResolveSettings(ctx context.Context, conn sql.MetadataReader) (Settings, error) {
	d, err := r.Resolve(ctx, conn)
	if err != nil {
		return Settings{}, err
	}
	return d.Settings(), nil
}

// ResolveSignet returns the Dialect of the first entry matching s.
func (r *Resolver) ResolveSignet(s dialect.Signet) (*Dialect, error) {
	for _, e := range r.entries {
		if !e.Matcher.Match(s) {
			continue
		}
		return r.dialect(e)
	}
	return nil, &signet.UnsupportedDatabaseError{Signet: s}
}

// dialect returns the dialect of the entry with the overrides applied.
func (r *Resolver) dialect(e *Entry) (*Dialect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.resolved[e]; ok {
		return d, nil
	}
	d, err := e.Dialect()
	if err != nil {
		return nil, fmt.Errorf("rdbms: build dialect %s: %w", e.Name, err)
	}
	if o, ok := r.overrides.For(d.Signet().Vendor); ok {
		s, err := o.Apply(d.Settings())
		if err != nil {
			return nil, err
		}
		if d, err = d.WithSettings(s); err != nil {
			return nil, err
		}
	}
	d = d.WithLogger(r.logger)
	r.resolved[e] = d
	return d, nil
}
