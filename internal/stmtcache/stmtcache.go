package stmtcache

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Stmt is a cached prepared statement. Readers wait on prepared before use,
// so a statement being prepared by one goroutine is shared with the rest.
type Stmt struct {
	*sql.Stmt
	prepared   chan struct{}
	prepareErr error
}

func (stmt *Stmt) Error() error {
	return stmt.prepareErr
}

func (stmt *Stmt) Close() error {
	<-stmt.prepared

	if stmt.Stmt != nil {
		return stmt.Stmt.Close()
	}
	return nil
}

// Preparer prepares statements, satisfied by *sql.DB and *sql.Conn
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type Store interface {
	// New registers a pending statement for key, releases locker and prepares it
	New(ctx context.Context, key string, conn Preparer, locker sync.Locker) (*Stmt, error)
	Get(key string) (*Stmt, bool)
	Delete(key string)
	Keys() []string
	Len() int
	// Purge closes and drops every statement
	Purge()
}

// New returns an LRU store holding at most size statements, each closed once
// it has been idle for ttl. Zero size means unbounded, zero ttl never expires.
func New(size int, ttl time.Duration) Store {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}

	onEvicted := func(_ string, v *Stmt) {
		if v != nil {
			go v.Close()
		}
	}
	return &lruStore{lru: expirable.NewLRU[string, *Stmt](size, onEvicted, ttl)}
}

type lruStore struct {
	lru *expirable.LRU[string, *Stmt]
}

func (s *lruStore) Keys() []string {
	return s.lru.Keys()
}

func (s *lruStore) Len() int {
	return s.lru.Len()
}

func (s *lruStore) Get(key string) (*Stmt, bool) {
	stmt, ok := s.lru.Get(key)
	if ok && stmt != nil {
		<-stmt.prepared
	}
	return stmt, ok
}

func (s *lruStore) Delete(key string) {
	s.lru.Remove(key)
}

func (s *lruStore) Purge() {
	s.lru.Purge()
}

func (s *lruStore) New(ctx context.Context, key string, conn Preparer, locker sync.Locker) (_ *Stmt, err error) {
	cacheStmt := &Stmt{prepared: make(chan struct{})}
	s.lru.Add(key, cacheStmt)
	locker.Unlock()

	defer close(cacheStmt.prepared)

	cacheStmt.Stmt, err = conn.PrepareContext(ctx, key)
	if err != nil {
		cacheStmt.prepareErr = err
		s.lru.Remove(key)
		return &Stmt{}, err
	}

	return cacheStmt, nil
}
