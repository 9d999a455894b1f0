package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/mmcdole/bookcat/internal/validation"
)

// DefaultNotificationTTL is how long a notification stays visible
const DefaultNotificationTTL = 5 * time.Second

// User-visible notification texts
const (
	MsgBookAdded          = "Book added successfully"
	MsgBookUpdated        = "Book updated successfully"
	MsgBookDeleted        = "Book deleted successfully"
	MsgSaveFailed         = "Failed to save book"
	MsgDeleteFailed       = "Failed to delete book"
	MsgLoadBooksFailed    = "Failed to load books"
	MsgLoadBookFailed     = "Failed to load book"
	MsgLoadCategoryFailed = "Failed to load categories"
	MsgInitialLoadFailed  = "Failed to load initial data"
)

// SubmitResult is the outcome of saving a draft
type SubmitResult struct {
	Errors domain.FieldErrors // Non-empty when the draft was rejected locally
	Book   *domain.Book       // Stored record on success
	Err    error              // Remote failure, already surfaced as a notification
}

// Saved reports whether the record reached the service
func (r SubmitResult) Saved() bool {
	return !r.Errors.HasErrors() && r.Err == nil
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the clock used for notification expiry
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithNotificationTTL sets how long notifications stay visible
func WithNotificationTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithCache keeps the last known remote state in cache
func WithCache(c domain.CatalogCache) Option {
	return func(s *Store) { s.cache = c }
}

// Store owns the in-memory view of the catalog and keeps it in sync with
// the remote service. All fields below mu are guarded by it; mu is never
// held across a remote call.
type Store struct {
	client domain.CatalogClient
	cache  domain.CatalogCache
	clock  Clock
	ttl    time.Duration
	logger *slog.Logger

	mu           sync.Mutex
	books        []domain.Book
	categories   []domain.Category
	filter       int64
	loading      bool
	submitting   bool
	notification domain.Notification

	reloadToken uint64
	noticeGen   uint64
	noticeTimer Timer
	seeded      bool
	closed      bool

	observers []domain.StateObserver
}

// NewStore creates a catalog store over client
func NewStore(client domain.CatalogClient, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		client:     client,
		clock:      RealClock(),
		ttl:        DefaultNotificationTTL,
		logger:     logger,
		books:      []domain.Book{},
		categories: []domain.Category{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer for state changes
func (s *Store) Subscribe(o domain.StateObserver) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// mutate runs fn under the lock and notifies observers if fn reports a change
func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	changed := fn()
	var observers []domain.StateObserver
	if changed {
		observers = append(observers, s.observers...)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o.OnStateChange()
	}
}

// Snapshot returns a copy of the current view state
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{
		Books:        append([]domain.Book(nil), s.books...),
		Categories:   append([]domain.Category(nil), s.categories...),
		Filter:       s.filter,
		IsLoading:    s.loading,
		IsSubmitting: s.submitting,
		Notification: s.notification,
	}
}

// effectiveFilterLocked returns the filter to query with. A filter naming a
// category that is not loaded counts as no filter.
func (s *Store) effectiveFilterLocked() int64 {
	if s.filter == 0 {
		return 0
	}
	for _, c := range s.categories {
		if c.ID == s.filter {
			return s.filter
		}
	}
	return 0
}

// === Notifications ===

// notifyLocked replaces the live notification and reschedules its expiry.
// The generation check keeps an already-fired timer from clearing a newer
// message.
func (s *Store) notifyLocked(kind domain.NotificationKind, msg string) {
	s.notification = domain.Notification{Kind: kind, Message: msg}
	s.noticeGen++
	gen := s.noticeGen

	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
		s.noticeTimer = nil
	}
	if s.closed {
		return
	}
	s.noticeTimer = s.clock.AfterFunc(s.ttl, func() { s.expireNotification(gen) })
}

func (s *Store) expireNotification(gen uint64) {
	s.mutate(func() bool {
		if gen != s.noticeGen {
			return false
		}
		s.notification = domain.Notification{}
		s.noticeTimer = nil
		return true
	})
}

func (s *Store) notify(kind domain.NotificationKind, msg string) {
	s.mutate(func() bool {
		s.notifyLocked(kind, msg)
		return true
	})
}

// DismissNotification clears the live notification early
func (s *Store) DismissNotification() {
	s.mutate(func() bool {
		if s.notification.IsZero() {
			return false
		}
		s.notification = domain.Notification{}
		s.noticeGen++
		if s.noticeTimer != nil {
			s.noticeTimer.Stop()
			s.noticeTimer = nil
		}
		return true
	})
}

// Close stops the pending notification timer
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
		s.noticeTimer = nil
	}
}

// === Loading ===

// Initialize loads categories and books. IsLoading is false once it returns.
func (s *Store) Initialize(ctx context.Context) error {
	s.mutate(func() bool {
		s.loading = true
		return true
	})
	defer s.mutate(func() bool {
		s.loading = false
		return true
	})

	s.hydrate()

	catErr := s.loadCategories(ctx)
	if catErr != nil {
		s.notify(domain.NotificationError, MsgLoadCategoryFailed)
	}

	if err := s.reload(ctx, MsgInitialLoadFailed); err != nil {
		return err
	}
	return catErr
}

// hydrate shows the last known state while the service is queried
func (s *Store) hydrate() {
	if s.cache == nil {
		return
	}
	cats, catsOK := s.cache.GetCategories()

	s.mutate(func() bool {
		changed := false
		if catsOK {
			s.categories = cats
			changed = true
		}
		if books, ok := s.cache.GetBooks(s.effectiveFilterLocked()); ok {
			s.books = books
			changed = true
		}
		return changed
	})
}

// loadCategories fetches categories, seeding the service once if it has none
func (s *Store) loadCategories(ctx context.Context) error {
	cats, err := s.client.ListCategories(ctx)
	if err != nil {
		s.logger.Error("failed to load categories", "error", err)
		return err
	}

	s.mu.Lock()
	seed := len(cats) == 0 && !s.seeded
	if seed {
		s.seeded = true
	}
	s.mu.Unlock()

	if seed {
		s.logger.Info("no categories found, seeding defaults")
		if err := s.client.SeedCategories(ctx); err != nil {
			s.logger.Error("failed to seed categories", "error", err)
			return err
		}
		cats, err = s.client.ListCategories(ctx)
		if err != nil {
			s.logger.Error("failed to reload categories after seeding", "error", err)
			return err
		}
	}
	if cats == nil {
		cats = []domain.Category{}
	}

	s.mutate(func() bool {
		s.categories = cats
		return true
	})
	if s.cache != nil {
		if err := s.cache.SaveCategories(cats); err != nil {
			s.logger.Warn("failed to cache categories", "error", err)
		}
	}
	s.logger.Debug("loaded categories", "count", len(cats))
	return nil
}

// ReloadBooks fetches books for the current filter. Only the most recently
// issued reload may apply its result or report its failure.
func (s *Store) ReloadBooks(ctx context.Context) error {
	return s.reload(ctx, MsgLoadBooksFailed)
}

func (s *Store) reload(ctx context.Context, failMsg string) error {
	s.mu.Lock()
	s.reloadToken++
	token := s.reloadToken
	filter := s.effectiveFilterLocked()
	s.mu.Unlock()

	books, err := s.client.ListBooks(ctx, filter)

	applied := false
	s.mutate(func() bool {
		if token != s.reloadToken {
			return false
		}
		applied = true
		if err != nil {
			s.notifyLocked(domain.NotificationError, failMsg)
			return true
		}
		if books == nil {
			books = []domain.Book{}
		}
		s.books = books
		return true
	})

	if !applied {
		s.logger.Debug("discarding stale book list", "filter", filter, "token", token)
		return nil
	}
	if err != nil {
		s.logger.Error("failed to load books", "filter", filter, "error", err)
		return err
	}
	if s.cache != nil {
		if err := s.cache.SaveBooks(filter, books); err != nil {
			s.logger.Warn("failed to cache books", "error", err)
		}
	}
	s.logger.Debug("loaded books", "filter", filter, "count", len(books))
	return nil
}

// SetFilter restricts the list to one category (0 = all) and reloads
func (s *Store) SetFilter(ctx context.Context, categoryID int64) error {
	if categoryID < 0 {
		categoryID = 0
	}
	s.mutate(func() bool {
		changed := s.filter != categoryID
		s.filter = categoryID
		return changed
	})
	return s.ReloadBooks(ctx)
}

// ClearFilter shows all books
func (s *Store) ClearFilter(ctx context.Context) error {
	return s.SetFilter(ctx, 0)
}

// === Mutations ===

// FetchBook returns a fresh copy of one record
func (s *Store) FetchBook(ctx context.Context, id int64) (*domain.Book, error) {
	book, err := s.client.GetBook(ctx, id)
	if err != nil {
		s.logger.Error("failed to load book", "id", id, "error", err)
		s.notify(domain.NotificationError, domain.RemoteMessage(err, MsgLoadBookFailed))
		return nil, err
	}
	return book, nil
}

// Save validates draft and creates it, or updates record editingID when it
// is non-zero. Invalid drafts never reach the service.
func (s *Store) Save(ctx context.Context, draft domain.BookDraft, editingID int64) SubmitResult {
	input := draft.Parse()
	if errs := validation.Validate(input); errs.HasErrors() {
		return SubmitResult{Errors: errs}
	}

	s.mutate(func() bool {
		s.submitting = true
		return true
	})
	defer s.mutate(func() bool {
		s.submitting = false
		return true
	})

	var (
		book *domain.Book
		err  error
		msg  string
	)
	if editingID != 0 {
		book, err = s.client.UpdateBook(ctx, editingID, input)
		msg = MsgBookUpdated
	} else {
		book, err = s.client.CreateBook(ctx, input)
		msg = MsgBookAdded
	}

	if err != nil {
		s.logger.Error("failed to save book", "id", editingID, "error", err)
		s.notify(domain.NotificationError, domain.RemoteMessage(err, MsgSaveFailed))
		return SubmitResult{Err: err}
	}

	if s.cache != nil {
		s.cache.InvalidateBooks()
	}
	s.notify(domain.NotificationSuccess, msg)
	s.logger.Info("saved book", "id", bookID(book, editingID))
	return SubmitResult{Book: book}
}

// Submit saves draft and, once saved, reloads the list
func (s *Store) Submit(ctx context.Context, draft domain.BookDraft, editingID int64) SubmitResult {
	res := s.Save(ctx, draft, editingID)
	if res.Saved() {
		_ = s.ReloadBooks(ctx)
	}
	return res
}

// Delete removes a record and reloads. Confirmation is the caller's job.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.client.DeleteBook(ctx, id); err != nil {
		s.logger.Error("failed to delete book", "id", id, "error", err)
		s.notify(domain.NotificationError, domain.RemoteMessage(err, MsgDeleteFailed))
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateBooks()
	}
	s.notify(domain.NotificationSuccess, MsgBookDeleted)
	s.logger.Info("deleted book", "id", id)
	_ = s.ReloadBooks(ctx)
	return nil
}

func bookID(b *domain.Book, fallback int64) int64 {
	if b != nil && b.ID != 0 {
		return b.ID
	}
	return fallback
}
