package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/bookcat/internal/domain"
	cache "github.com/mmcdole/bookcat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestStore(t *testing.T, client *fakeClient, opts ...Option) (*Store, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	opts = append([]Option{WithClock(clock)}, opts...)
	s := NewStore(client, nil, opts...)
	t.Cleanup(s.Close)
	return s, clock
}

func titles(books []domain.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestInitializeSeedsEmptyCategoriesOnce(t *testing.T) {
	client := newFakeClient()
	client.seedWith = []domain.Category{fiction, science}
	s, _ := newTestStore(t, client)

	require.NoError(t, s.Initialize(context.Background()))

	assert.Equal(t, 1, client.count("seed"))
	assert.Equal(t, []string{"categories", "seed", "categories", "list"}, client.Calls())

	snap := s.Snapshot()
	assert.Len(t, snap.Categories, 2)
	assert.False(t, snap.IsLoading)
	assert.True(t, snap.Notification.IsZero())
}

func TestInitializeDoesNotSeedTwice(t *testing.T) {
	client := newFakeClient() // seeding adds nothing
	s, _ := newTestStore(t, client)
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Initialize(ctx))

	assert.Equal(t, 1, client.count("seed"))
	assert.Empty(t, s.Snapshot().Categories)
}

func TestInitializeCategoryFailureStillLoadsBooks(t *testing.T) {
	client := seededClient()
	client.catErr = errors.New("boom")
	s, _ := newTestStore(t, client)

	err := s.Initialize(context.Background())
	require.Error(t, err)

	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Len(t, snap.Books, 4)
	assert.Equal(t, domain.Notification{Kind: domain.NotificationError, Message: MsgLoadCategoryFailed}, snap.Notification)
}

func TestInitializeBookFailure(t *testing.T) {
	client := seededClient()
	client.listErrs[0] = errors.New("boom")
	s, _ := newTestStore(t, client)

	require.Error(t, s.Initialize(context.Background()))

	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Books)
	assert.Len(t, snap.Categories, 3)
	assert.Equal(t, MsgInitialLoadFailed, snap.Notification.Message)
	assert.Equal(t, domain.NotificationError, snap.Notification.Kind)
}

func TestInitializeReportsLoadingWhileRunning(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)

	var mu sync.Mutex
	var seen []bool
	s.Subscribe(domain.ObserverFunc(func() {
		mu.Lock()
		seen = append(seen, s.Snapshot().IsLoading)
		mu.Unlock()
	}))

	require.NoError(t, s.Initialize(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.True(t, seen[0])
	assert.False(t, seen[len(seen)-1])
}

func TestInitializeHydratesFromCache(t *testing.T) {
	c, err := cache.NewCatalogStore("", "")
	require.NoError(t, err)
	require.NoError(t, c.SaveCategories([]domain.Category{fiction}))
	require.NoError(t, c.SaveBooks(0, []domain.Book{{ID: 9, Title: "Cached", Author: "X", Price: 1, CategoryID: 1}}))

	client := newFakeClient()
	client.catErr = domain.ErrServerOffline
	client.listErrs[0] = domain.ErrServerOffline
	s, _ := newTestStore(t, client, WithCache(c))

	require.Error(t, s.Initialize(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, []string{"Cached"}, titles(snap.Books))
	assert.Equal(t, []domain.Category{fiction}, snap.Categories)
}

func TestReloadWritesCache(t *testing.T) {
	c, err := cache.NewCatalogStore("", "")
	require.NoError(t, err)

	client := seededClient()
	s, _ := newTestStore(t, client, WithCache(c))
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.SetFilter(ctx, 2))

	books, ok := c.GetBooks(2)
	require.True(t, ok)
	assert.Equal(t, []string{"Cosmos"}, titles(books))

	res := s.Save(ctx, validDraft(), 0)
	require.True(t, res.Saved())
	_, ok = c.GetBooks(2)
	assert.False(t, ok, "mutations invalidate cached lists")
}

func TestReloadFailureKeepsList(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	client.listErrs[0] = errors.New("boom")
	require.Error(t, s.ReloadBooks(ctx))

	snap := s.Snapshot()
	assert.Len(t, snap.Books, 4)
	assert.Equal(t, MsgLoadBooksFailed, snap.Notification.Message)
}

func TestSubmitCreatesBook(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	res := s.Submit(ctx, validDraft(), 0)

	require.True(t, res.Saved())
	require.Len(t, client.created, 1)
	in := client.created[0]
	assert.Equal(t, "Dune", in.Title)
	assert.Equal(t, "Herbert", in.Author)
	assert.Equal(t, 12.5, in.Price)
	require.NotNil(t, in.Stock)
	assert.Equal(t, 3, *in.Stock)
	assert.Equal(t, int64(1), in.CategoryID)
	assert.Empty(t, client.updated)

	snap := s.Snapshot()
	assert.Contains(t, titles(snap.Books), "Dune")
	assert.Equal(t, domain.Notification{Kind: domain.NotificationSuccess, Message: MsgBookAdded}, snap.Notification)
	assert.False(t, snap.IsSubmitting)

	calls := client.Calls()
	assert.Equal(t, []string{"create", "list"}, calls[len(calls)-2:])
}

func TestSubmitUpdatesBook(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	draft := domain.DraftFromBook(client.books[0]).Set(domain.FieldTitle, "Foundation and Empire")
	res := s.Submit(ctx, draft, 1)

	require.True(t, res.Saved())
	assert.Equal(t, []int64{1}, client.updated)
	assert.Empty(t, client.created)

	snap := s.Snapshot()
	book, ok := snap.FindBook(1)
	require.True(t, ok)
	assert.Equal(t, "Foundation and Empire", book.Title)
	assert.Equal(t, MsgBookUpdated, snap.Notification.Message)
}

func TestSaveRejectsInvalidDraftWithoutNetwork(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)

	res := s.Submit(context.Background(), domain.BookDraft{Stock: "-1"}, 0)

	assert.False(t, res.Saved())
	assert.Equal(t, []string{"author", "categoryId", "price", "stock", "title"}, sortedKeys(res.Errors))
	assert.Empty(t, client.Calls())
	assert.True(t, s.Snapshot().Notification.IsZero())
}

func TestSaveRemoteFailure(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()

	client.createErr = &domain.RemoteError{Op: "create book", Status: 400, Message: "title must be unique"}
	res := s.Submit(ctx, validDraft(), 0)
	require.Error(t, res.Err)
	assert.False(t, res.Saved())
	snap := s.Snapshot()
	assert.Equal(t, domain.Notification{Kind: domain.NotificationError, Message: "title must be unique"}, snap.Notification)
	assert.False(t, snap.IsSubmitting)
	assert.Equal(t, 0, client.count("list"), "no reload after a failed save")

	client.createErr = errors.New("connection reset")
	res = s.Submit(ctx, validDraft(), 0)
	require.Error(t, res.Err)
	assert.Equal(t, MsgSaveFailed, s.Snapshot().Notification.Message)
}

func TestSubmittingFlagDuringSave(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)

	var mu sync.Mutex
	sawSubmitting := false
	s.Subscribe(domain.ObserverFunc(func() {
		mu.Lock()
		defer mu.Unlock()
		if s.Snapshot().IsSubmitting {
			sawSubmitting = true
		}
	}))

	require.True(t, s.Save(context.Background(), validDraft(), 0).Saved())

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawSubmitting)
	assert.False(t, s.Snapshot().IsSubmitting)
}

func TestDeleteFailureKeepsList(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	client.deleteErr = &domain.RemoteError{Op: "delete book", Status: 409, Message: "Book has active orders"}
	require.Error(t, s.Delete(ctx, 7))

	snap := s.Snapshot()
	assert.Equal(t, domain.Notification{Kind: domain.NotificationError, Message: "Book has active orders"}, snap.Notification)
	_, ok := snap.FindBook(7)
	assert.True(t, ok)
	assert.Len(t, snap.Books, 4)

	client.deleteErr = errors.New("boom")
	require.Error(t, s.Delete(ctx, 7))
	assert.Equal(t, MsgDeleteFailed, s.Snapshot().Notification.Message)
}

func TestDeleteSuccessReloads(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	require.NoError(t, s.Delete(ctx, 7))

	snap := s.Snapshot()
	_, ok := snap.FindBook(7)
	assert.False(t, ok)
	assert.Equal(t, domain.Notification{Kind: domain.NotificationSuccess, Message: MsgBookDeleted}, snap.Notification)
}

func TestLastFilterWins(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	release := client.gate(3)
	done := make(chan error, 1)
	go func() { done <- s.SetFilter(ctx, 3) }()

	select {
	case f := <-client.entered:
		require.Equal(t, int64(3), f)
	case <-time.After(time.Second):
		t.Fatal("filtered reload never started")
	}

	require.NoError(t, s.ClearFilter(ctx))
	release()
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, int64(0), snap.Filter)
	assert.Len(t, snap.Books, 4)
}

func TestStaleReloadFailureIsDiscarded(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	client.listErrs[3] = errors.New("slow failure")
	release := client.gate(3)
	done := make(chan error, 1)
	go func() { done <- s.SetFilter(ctx, 3) }()
	<-client.entered

	require.NoError(t, s.ClearFilter(ctx))
	release()
	require.NoError(t, <-done)

	assert.True(t, s.Snapshot().Notification.IsZero())
}

func TestStaleFilterQueriesEverything(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	require.NoError(t, s.SetFilter(ctx, 99))

	snap := s.Snapshot()
	assert.Equal(t, int64(99), snap.Filter)
	assert.Len(t, snap.Books, 4)
}

func TestSetFilterRestrictsList(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	require.NoError(t, s.SetFilter(ctx, 1))
	assert.Equal(t, []string{"Foundation", "Neuromancer"}, titles(s.Snapshot().Books))
}

func TestClearFilterIsIdempotent(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.SetFilter(ctx, 2))

	require.NoError(t, s.ClearFilter(ctx))
	once := s.Snapshot()
	require.NoError(t, s.ClearFilter(ctx))
	twice := s.Snapshot()

	assert.Equal(t, once, twice)
	assert.Equal(t, int64(0), twice.Filter)
}

func TestNotificationExpires(t *testing.T) {
	client := seededClient()
	s, clock := newTestStore(t, client)

	require.True(t, s.Save(context.Background(), validDraft(), 0).Saved())
	assert.Equal(t, domain.NotificationSuccess, s.Snapshot().Notification.Kind)

	clock.Advance(DefaultNotificationTTL - time.Millisecond)
	assert.Equal(t, domain.NotificationSuccess, s.Snapshot().Notification.Kind)

	clock.Advance(time.Millisecond)
	assert.Equal(t, domain.Notification{}, s.Snapshot().Notification)
	assert.Equal(t, 0, clock.Pending())
}

func TestReplacedNotificationSurvivesOldTimer(t *testing.T) {
	for _, stopIsNoop := range []bool{false, true} {
		client := seededClient()
		s, clock := newTestStore(t, client)
		clock.stopIsNoop = stopIsNoop
		ctx := context.Background()

		require.True(t, s.Save(ctx, validDraft(), 0).Saved())
		clock.Advance(3 * time.Second)

		client.deleteErr = &domain.RemoteError{Message: "Book has active orders"}
		require.Error(t, s.Delete(ctx, 7))

		clock.Advance(2 * time.Second)
		assert.Equal(t, "Book has active orders", s.Snapshot().Notification.Message, "stopIsNoop=%v", stopIsNoop)

		clock.Advance(3 * time.Second)
		assert.True(t, s.Snapshot().Notification.IsZero(), "stopIsNoop=%v", stopIsNoop)
	}
}

func TestNotificationLifecycleProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		client := seededClient()
		clock := &manualClock{stopIsNoop: rapid.Bool().Draw(t, "stopIsNoop")}
		s := NewStore(client, nil, WithClock(clock))
		defer s.Close()

		var now, last time.Duration
		notified := false
		steps := rapid.SliceOfN(rapid.IntRange(-1, 6), 1, 30).Draw(t, "steps")
		for _, step := range steps {
			if step < 0 {
				s.Save(context.Background(), validDraft(), 0)
				last = now
				notified = true
			} else {
				d := time.Duration(step) * time.Second
				clock.Advance(d)
				now += d
			}

			live := !s.Snapshot().Notification.IsZero()
			want := notified && now-last < DefaultNotificationTTL
			if live != want {
				t.Fatalf("at %v (last notice %v): live=%v want %v", now, last, live, want)
			}
		}
	})
}

func TestDismissNotification(t *testing.T) {
	client := seededClient()
	s, clock := newTestStore(t, client)

	require.True(t, s.Save(context.Background(), validDraft(), 0).Saved())
	s.DismissNotification()

	assert.True(t, s.Snapshot().Notification.IsZero())
	assert.Equal(t, 0, clock.Pending())
}

func TestCloseStopsTimer(t *testing.T) {
	client := seededClient()
	s, clock := newTestStore(t, client)

	require.True(t, s.Save(context.Background(), validDraft(), 0).Saved())
	require.Equal(t, 1, clock.Pending())

	s.Close()
	assert.Equal(t, 0, clock.Pending())
}

func TestFetchBook(t *testing.T) {
	client := seededClient()
	s, _ := newTestStore(t, client)
	ctx := context.Background()

	b, err := s.FetchBook(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Cosmos", b.Title)
	assert.Equal(t, "Out of Stock", b.StockLabel())

	client.getErr = errors.New("boom")
	_, err = s.FetchBook(ctx, 2)
	require.Error(t, err)
	assert.Equal(t, MsgLoadBookFailed, s.Snapshot().Notification.Message)
}

func TestCustomNotificationTTL(t *testing.T) {
	client := seededClient()
	s, clock := newTestStore(t, client, WithNotificationTTL(time.Second))

	require.True(t, s.Save(context.Background(), validDraft(), 0).Saved())
	clock.Advance(time.Second)
	assert.True(t, s.Snapshot().Notification.IsZero())
}

func sortedKeys(errs domain.FieldErrors) []string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
