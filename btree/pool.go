package btree

import "sync"

// Pool is a thread-safe LIFO free-list of recycled pages. Trees
// themselves are single-threaded, but one Pool may be shared by
// several trees running on different goroutines, so Pool serializes
// its own mutations internally.
type Pool struct {
	mu    sync.Mutex
	pages []*Page
}

// NewPool returns an empty pool. Pages are allocated lazily on first
// Get.
func NewPool() *Pool {
	return &Pool{}
}

// Get returns a recycled page if one is available, or allocates and
// initializes a fresh one otherwise.
func (p *Pool) Get() *Page {
	p.mu.Lock()
	n := len(p.pages)
	if n == 0 {
		p.mu.Unlock()
		return newPage()
	}
	pg := p.pages[n-1]
	p.pages = p.pages[:n-1]
	p.mu.Unlock()
	return pg
}

// CheckIn resets page and returns it to the free-list for reuse.
func (p *Pool) CheckIn(page *Page) {
	page.reset()
	p.mu.Lock()
	p.pages = append(p.pages, page)
	p.mu.Unlock()
}
