package tableops

import (
	"sync"
	"time"

	"github.com/openspm/tableops/logger"
	"github.com/openspm/tableops/schema"
)

// Config tableops config
type Config struct {
	// NamingStrategy tables, columns naming strategy
	NamingStrategy schema.Namer
	// Logger receives statement traces and every operation failure
	Logger logger.Interface
	// NowFunc the function to be used when creating a new timestamp
	NowFunc func() time.Time
	// PrepareStmt executes statements through cached prepared statements
	PrepareStmt bool
	// PrepareStmtMaxSize bounds the prepared statement cache, 0 means unbounded
	PrepareStmtMaxSize int
	// PrepareStmtTTL closes cached statements idle for longer, 0 keeps them
	PrepareStmtTTL time.Duration
	// RefreshOnUpdate clears a table's key cache after UpdateRecord too
	RefreshOnUpdate bool

	cacheStore *sync.Map
}

// Option use functional option for Config.
type Option func(c *Config)

// WithLogger set logger.
func WithLogger(logger logger.Interface) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithNamingStrategy set schema namer.
func WithNamingStrategy(namer schema.Namer) Option {
	return func(c *Config) {
		c.NamingStrategy = namer
	}
}

// WithNowFunc set now func.
func WithNowFunc(fn func() time.Time) Option {
	return func(c *Config) {
		c.NowFunc = fn
	}
}

// WithPrepareStmt enable PrepareStmt with an LRU of at most size statements.
func WithPrepareStmt(size int, ttl time.Duration) Option {
	return func(c *Config) {
		c.PrepareStmt = true
		c.PrepareStmtMaxSize = size
		c.PrepareStmtTTL = ttl
	}
}

// WithRefreshOnUpdate makes UpdateRecord clear the key cache.
func WithRefreshOnUpdate() Option {
	return func(c *Config) {
		c.RefreshOnUpdate = true
	}
}

// WithSchemaCache shares a schema cache store between DBs.
func WithSchemaCache(store *sync.Map) Option {
	return func(c *Config) {
		c.cacheStore = store
	}
}
