package voting

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const defaultReasonCacheSize = 256

// Engine ties registered Votables to their vote stores, the reason registry
// and the hooks. It is safe for concurrent use.
type Engine struct {
	db       *gorm.DB
	clock    clockwork.Clock
	hooks    *Hooks
	observer Observer
	registry *Registry

	mu       sync.Mutex
	stores   map[string]*Store
	votables map[string]*Votable
	settings map[string]*Settings
}

type EngineOption func(*engineConfig)

type engineConfig struct {
	clock     clockwork.Clock
	hooks     *Hooks
	observer  Observer
	cacheSize int
}

// WithClock sets the clock used for Vote.PlacedAt and handed to Clocked items.
func WithClock(c clockwork.Clock) EngineOption {
	return func(cfg *engineConfig) { cfg.clock = c }
}

func WithHooks(h *Hooks) EngineOption {
	return func(cfg *engineConfig) { cfg.hooks = h }
}

func WithObserver(o Observer) EngineOption {
	return func(cfg *engineConfig) { cfg.observer = o }
}

func WithReasonCacheSize(n int) EngineOption {
	return func(cfg *engineConfig) { cfg.cacheSize = n }
}

// NewEngine creates an engine with the votes table registered under
// DefaultVoteModel.
func NewEngine(db *gorm.DB, opts ...EngineOption) (*Engine, error) {
	cfg := engineConfig{
		clock:     clockwork.NewRealClock(),
		observer:  nopObserver{},
		cacheSize: defaultReasonCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.hooks == nil {
		cfg.hooks = NewHooks()
	}

	e := &Engine{
		db:       db,
		clock:    cfg.clock,
		hooks:    cfg.hooks,
		observer: cfg.observer,
		stores:   map[string]*Store{DefaultVoteModel: NewStore("votes")},
		votables: make(map[string]*Votable),
		settings: make(map[string]*Settings),
	}
	registry, err := newRegistry(db, cfg.cacheSize, e.Settings, cfg.observer)
	if err != nil {
		return nil, err
	}
	e.registry = registry
	return e, nil
}

func (e *Engine) DB() *gorm.DB { return e.db }
func (e *Engine) Hooks() *Hooks { return e.hooks }
func (e *Engine) Reasons() *Registry { return e.registry }
func (e *Engine) Clock() clockwork.Clock { return e.clock }

// RegisterVoteModel makes a store available to Votables under name.
func (e *Engine) RegisterVoteModel(name string, s *Store) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stores[name] = s
}

// Register installs a Votable for its content type.
func (e *Engine) Register(v *Votable) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.votables[v.contentType]; ok {
		return configErrorf(v.contentType, "already registered")
	}
	e.votables[v.contentType] = v
	return nil
}

// Migrate creates the reason table and the table of every registered store.
func (e *Engine) Migrate() error {
	if err := e.db.AutoMigrate(&VoteReason{}); err != nil {
		return err
	}
	e.mu.Lock()
	stores := make(map[string]*Store, len(e.stores))
	for _, s := range e.stores {
		stores[s.table] = s
	}
	e.mu.Unlock()
	for _, s := range stores {
		if err := s.Migrate(e.db); err != nil {
			return fmt.Errorf("voting: migrate %s: %w", s.table, err)
		}
	}
	return nil
}

// Settings returns the resolved configuration of a content type. It is built
// on first use, so vote stores may be registered after the Votable.
func (e *Engine) Settings(contentType string) (*Settings, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.settings[contentType]; ok {
		return s, nil
	}
	v, ok := e.votables[contentType]
	if !ok {
		return nil, &NotVotableError{ContentType: contentType}
	}
	store, ok := e.stores[v.voteModel]
	if !ok {
		return nil, configErrorf(contentType, "vote model %q is not registered", v.voteModel)
	}
	s := &Settings{
		contentType:      contentType,
		store:            store,
		voteModel:        v.voteModel,
		downvotesAllowed: v.downvotesAllowed,
		useReasonModel:   v.useReasonModel,
		scores:           v.scores,
		defaults:         v.defaults,
		registry:         e.registry,
	}
	e.settings[contentType] = s
	return s, nil
}

// Votes returns the vote façade of one item.
func (e *Engine) Votes(item Item) (*Votes, error) {
	s, err := e.Settings(item.VotableType())
	if err != nil {
		return nil, err
	}
	return &Votes{engine: e, settings: s, item: item}, nil
}
