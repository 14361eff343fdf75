package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"snaketunes-srv/internal/models"
)

// MemoryCategory is the music category used by the in-memory catalog.
const MemoryCategory = "music"

// Memory is an in-memory catalog. It backs offline mode and tests.
type Memory struct {
	mu        sync.RWMutex
	sources   []models.CandidateSource
	items     map[string][]models.RawCatalogItem // keyed by catalog handle
	byID      map[string]models.RawCatalogItem
	pageSize  int
	batchSize int

	// FailSearch, FailDetails and FailList simulate an outage per operation.
	FailSearch  bool
	FailDetails func(ids []string) bool
	FailList    bool

	calls map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		items:     make(map[string][]models.RawCatalogItem),
		byID:      make(map[string]models.RawCatalogItem),
		pageSize:  50,
		batchSize: 50,
		calls:     make(map[string]int),
	}
}

// WithPageSize sets the listing page size.
func (m *Memory) WithPageSize(n int) *Memory {
	m.pageSize = n
	return m
}

// WithBatchSize sets MaxBatchSize.
func (m *Memory) WithBatchSize(n int) *Memory {
	m.batchSize = n
	return m
}

// AddSource registers a source. Its CatalogHandle defaults to its ID.
func (m *Memory) AddSource(src models.CandidateSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if src.CatalogHandle == "" {
		src.CatalogHandle = src.ID
	}
	m.sources = append(m.sources, src)
}

// AddItems appends items to a source catalog.
func (m *Memory) AddItems(handle string, items ...models.RawCatalogItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[handle] = append(m.items[handle], it)
		m.byID[it.ExternalID] = it
	}
}

// Calls reports how many times an operation ran.
func (m *Memory) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

func (m *Memory) count(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *Memory) Name() string          { return "memory" }
func (m *Memory) MusicCategory() string { return MemoryCategory }
func (m *Memory) MaxBatchSize() int     { return m.batchSize }

func (m *Memory) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	m.count("search")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailSearch {
		return nil, StatusError("search", 503)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	res := &SearchResult{}
	switch q.Kind {
	case KindSource:
		words := strings.Fields(strings.ToLower(q.Text))
		for _, src := range m.sources {
			name := strings.ToLower(src.DisplayName)
			for _, w := range words {
				if strings.Contains(name, w) {
					res.Sources = append(res.Sources, src)
					break
				}
			}
		}
	case KindTrack:
		for _, src := range m.sources {
			if q.SourceID != "" && src.ID != q.SourceID {
				continue
			}
			for _, it := range m.items[src.CatalogHandle] {
				if !q.PublishedAfter.IsZero() && it.PublishedAt.Before(q.PublishedAfter) {
					continue
				}
				if !q.PublishedBefore.IsZero() && it.PublishedAt.After(q.PublishedBefore) {
					continue
				}
				res.Items = append(res.Items, it)
				if q.Limit > 0 && len(res.Items) >= q.Limit {
					return res, nil
				}
			}
		}
	default:
		return nil, fmt.Errorf("%w: search kind %q", ErrUnsupported, q.Kind)
	}
	return res, nil
}

func (m *Memory) GetDetails(ctx context.Context, ids []string) ([]models.RawCatalogItem, error) {
	m.count("details")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailDetails != nil && m.FailDetails(ids) {
		return nil, StatusError("details", 500)
	}
	if len(ids) > m.batchSize {
		return nil, fmt.Errorf("details: batch of %d exceeds limit %d", len(ids), m.batchSize)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.RawCatalogItem
	for _, id := range ids {
		if it, ok := m.byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *Memory) ListCatalog(ctx context.Context, handle, cursor string) (*CatalogPage, error) {
	m.count("list")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailList {
		return nil, StatusError("list", 503)
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("list: bad cursor %q", cursor)
		}
		offset = n
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.items[handle]
	if offset >= len(all) {
		return &CatalogPage{}, nil
	}
	end := offset + m.pageSize
	page := &CatalogPage{}
	if end < len(all) {
		page.NextCursor = strconv.Itoa(end)
	} else {
		end = len(all)
	}
	// Listings carry only what a playlist page would: no category or duration.
	for _, it := range all[offset:end] {
		it.CategoryTag = ""
		it.DurationToken = ""
		it.ViewCount = 0
		page.Items = append(page.Items, it)
	}
	return page, nil
}
