package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/bookcat/internal/domain"
)

// fakeClient is an in-memory CatalogClient that records every call
type fakeClient struct {
	mu         sync.Mutex
	books      []domain.Book
	categories []domain.Category
	seedWith   []domain.Category
	nextID     int64
	calls      []string

	created []domain.BookInput
	updated []int64

	listErrs  map[int64]error
	catErr    error
	seedErr   error
	getErr    error
	createErr error
	updateErr error
	deleteErr error

	// gates block ListBooks for a filter until the channel is closed
	gates   map[int64]chan struct{}
	entered chan int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nextID:   100,
		listErrs: map[int64]error{},
		gates:    map[int64]chan struct{}{},
		entered:  make(chan int64, 16),
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// gate makes ListBooks(filter) block until the returned func is called
func (f *fakeClient) gate(filter int64) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[filter] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeClient) ListBooks(ctx context.Context, categoryID int64) ([]domain.Book, error) {
	f.record("list")

	f.mu.Lock()
	gate := f.gates[categoryID]
	delete(f.gates, categoryID)
	f.mu.Unlock()
	if gate != nil {
		f.entered <- categoryID
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErrs[categoryID]; err != nil {
		return nil, err
	}
	out := []domain.Book{}
	for _, b := range f.books {
		if categoryID == 0 || b.CategoryID == categoryID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeClient) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	f.record("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, b := range f.books {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, &domain.RemoteError{Op: "get book", Status: 404, Message: "Book not found", Err: domain.ErrNotFound}
}

func bookFromInput(id int64, in domain.BookInput) domain.Book {
	in = in.Normalized()
	b := domain.Book{ID: id, Title: in.Title, Author: in.Author, Price: in.Price, CategoryID: in.CategoryID}
	if in.Stock != nil {
		b.Stock = *in.Stock
	}
	return b
}

func (f *fakeClient) CreateBook(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	b := bookFromInput(f.nextID, in)
	f.nextID++
	f.books = append(f.books, b)
	return &b, nil
}

func (f *fakeClient) UpdateBook(ctx context.Context, id int64, in domain.BookInput) (*domain.Book, error) {
	f.record("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, id)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.books {
		if f.books[i].ID == id {
			f.books[i] = bookFromInput(id, in)
			b := f.books[i]
			return &b, nil
		}
	}
	return nil, &domain.RemoteError{Op: "update book", Status: 404, Err: domain.ErrNotFound}
}

func (f *fakeClient) DeleteBook(ctx context.Context, id int64) error {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.books {
		if f.books[i].ID == id {
			f.books = append(f.books[:i], f.books[i+1:]...)
			return nil
		}
	}
	return &domain.RemoteError{Op: "delete book", Status: 404, Err: domain.ErrNotFound}
}

func (f *fakeClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	f.record("categories")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.catErr != nil {
		return nil, f.catErr
	}
	return append([]domain.Category{}, f.categories...), nil
}

func (f *fakeClient) SeedCategories(ctx context.Context) error {
	f.record("seed")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seedErr != nil {
		return f.seedErr
	}
	f.categories = append(f.categories, f.seedWith...)
	return nil
}

var _ domain.CatalogClient = (*fakeClient)(nil)

// manualClock fires timers only when advanced
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer

	// stopIsNoop emulates a timer that fired just before it was stopped
	stopIsNoop bool
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.stopIsNoop || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that came due
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Pending counts timers that are neither stopped nor fired
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

var (
	fiction = domain.Category{ID: 1, Name: "Fiction"}
	science = domain.Category{ID: 2, Name: "Science"}
	history = domain.Category{ID: 3, Name: "History"}
)

func seededClient() *fakeClient {
	f := newFakeClient()
	f.categories = []domain.Category{fiction, science, history}
	f.books = []domain.Book{
		{ID: 1, Title: "Foundation", Author: "Asimov", Price: 9.99, Stock: 4, CategoryID: 1},
		{ID: 2, Title: "Cosmos", Author: "Sagan", Price: 20, Stock: 0, CategoryID: 2},
		{ID: 3, Title: "SPQR", Author: "Beard", Price: 18, Stock: 2, CategoryID: 3},
		{ID: 7, Title: "Neuromancer", Author: "Gibson", Price: 11, Stock: 1, CategoryID: 1},
	}
	return f
}

func validDraft() domain.BookDraft {
	return domain.BookDraft{Title: "Dune", Author: "Herbert", Price: "12.5", Stock: "3", CategoryID: "1"}
}
