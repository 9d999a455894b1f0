package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/bookcat/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketCategories = []byte("categories")
	bucketBooks      = []byte("books")
)

var allBuckets = [][]byte{bucketCategories, bucketBooks}

// CatalogStore implements domain.CatalogCache using BoltDB.
type CatalogStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewCatalogStore opens the cache for serverURL below baseCacheDir.
// An empty baseCacheDir keeps everything in memory.
func NewCatalogStore(baseCacheDir, serverURL string) (*CatalogStore, error) {
	if baseCacheDir == "" {
		return &CatalogStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "bookcat.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &CatalogStore{db: db, cache: make(map[string][]byte)}, nil
}

// hashServerURL keeps caches of different services apart
func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *CatalogStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *CatalogStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *CatalogStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// clearBuckets drops every key in the given buckets, memory and disk
func (s *CatalogStore) clearBuckets(buckets ...[]byte) {
	s.mu.Lock()
	for k := range s.cache {
		for _, bucket := range buckets {
			if strings.HasPrefix(k, string(bucket)+":") {
				delete(s.cache, k)
			}
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			// Collect first; deleting while iterating skips keys
			var keys [][]byte
			c := b.Cursor()
			for k, _ := c.First(); k != nil; k, _ = c.Next() {
				keys = append(keys, append([]byte(nil), k...))
			}
			for _, k := range keys {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// === Categories ===

func (s *CatalogStore) GetCategories() ([]domain.Category, bool) {
	var cats []domain.Category
	ok := s.get(bucketCategories, "list", &cats)
	return cats, ok
}

func (s *CatalogStore) SaveCategories(categories []domain.Category) error {
	return s.set(bucketCategories, "list", categories)
}

// === Books (key: cat:{categoryID}, cat:0 holds the unfiltered list) ===

func booksKey(categoryID int64) string {
	return "cat:" + strconv.FormatInt(categoryID, 10)
}

func (s *CatalogStore) GetBooks(categoryID int64) ([]domain.Book, bool) {
	var books []domain.Book
	ok := s.get(bucketBooks, booksKey(categoryID), &books)
	return books, ok
}

func (s *CatalogStore) SaveBooks(categoryID int64, books []domain.Book) error {
	return s.set(bucketBooks, booksKey(categoryID), books)
}

// === Invalidation ===

// InvalidateBooks drops every cached book list. Any mutation can move a
// book between categories, so per-category invalidation is not enough.
func (s *CatalogStore) InvalidateBooks() {
	s.clearBuckets(bucketBooks)
}

func (s *CatalogStore) InvalidateAll() {
	s.clearBuckets(allBuckets...)
}

var _ domain.CatalogCache = (*CatalogStore)(nil)
