// Package storage contains an in-memory implementation of every store the
// batch jobs depend on. It backs the unit tests and local dry runs.
package storage

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

type albumKey struct {
	owner   string
	takenAt int64
}

// MemoryStore keeps photos, event albums, groupings, faces and job records
// in maps guarded by a single RWMutex.
type MemoryStore struct {
	mu          sync.RWMutex
	items       map[string]*model.Item
	albums      map[string]*model.EventAlbum
	albumKeys   map[albumKey]string
	jobs        map[string]*model.BatchJob
	faces       map[string][]int64
	memberships map[model.GroupKind]map[string]map[string]struct{}
	nextFace    int64
	mutations   int

	// Error injection for tests.
	CreateAlbumError error
	UpdateTitleError error
	RemoveItemError  error
	DeleteItemsError error
	SaveJobError     error
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		items:       make(map[string]*model.Item),
		albums:      make(map[string]*model.EventAlbum),
		albumKeys:   make(map[albumKey]string),
		jobs:        make(map[string]*model.BatchJob),
		faces:       make(map[string][]int64),
		memberships: make(map[model.GroupKind]map[string]map[string]struct{}),
	}
	for _, kind := range model.GroupKinds {
		m.memberships[kind] = make(map[string]map[string]struct{})
	}
	return m
}

// PutItem inserts or replaces a photo.
func (m *MemoryStore) PutItem(item model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.StoragePaths = slices.Clone(item.StoragePaths)
	m.items[item.ID] = &item
}

// Item returns a copy of a photo.
func (m *MemoryStore) Item(id string) (model.Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return model.Item{}, false
	}
	return *it, true
}

// AddFace records a face detection for a photo and returns its id.
func (m *MemoryStore) AddFace(itemID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextFace++
	m.faces[itemID] = append(m.faces[itemID], m.nextFace)
	return m.nextFace
}

// FaceCount returns the number of face records for a photo.
func (m *MemoryStore) FaceCount(itemID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces[itemID])
}

// AddToGroup puts a photo into a date, place, person or user album.
func (m *MemoryStore) AddToGroup(kind model.GroupKind, groupID, itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := m.memberships[kind]
	if groups[groupID] == nil {
		groups[groupID] = make(map[string]struct{})
	}
	groups[groupID][itemID] = struct{}{}
}

// GroupSize returns the number of photos in a grouping; -1 if it does not exist.
func (m *MemoryStore) GroupSize(kind model.GroupKind, groupID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members, ok := m.memberships[kind][groupID]
	if !ok {
		return -1
	}
	return len(members)
}

// Mutations counts every write performed through the store interfaces.
func (m *MemoryStore) Mutations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mutations
}

// ListTimestamped returns the owner's photos that carry a capture time.
func (m *MemoryStore) ListTimestamped(ctx context.Context, ownerID string) ([]model.Item, error) {
	return m.listItems(ownerID, func(it *model.Item) bool { return it.TakenAt != nil }), nil
}

// ListMissing returns the owner's photos without any storage path.
func (m *MemoryStore) ListMissing(ctx context.Context, ownerID string) ([]model.Item, error) {
	return m.listItems(ownerID, func(it *model.Item) bool { return it.Missing() }), nil
}

// ListWithLocations returns the owner's photos that have storage paths.
func (m *MemoryStore) ListWithLocations(ctx context.Context, ownerID string) ([]model.Item, error) {
	return m.listItems(ownerID, func(it *model.Item) bool { return !it.Missing() }), nil
}

func (m *MemoryStore) listItems(ownerID string, keep func(*model.Item) bool) []model.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Item
	for _, it := range m.items {
		if it.OwnerID == ownerID && keep(it) {
			cp := *it
			cp.StoragePaths = slices.Clone(it.StoragePaths)
			out = append(out, cp)
		}
	}
	// Map iteration is random; sort for deterministic callers.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetStoragePaths replaces the storage paths of a photo.
func (m *MemoryStore) SetStoragePaths(ctx context.Context, itemID string, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	it.StoragePaths = slices.Clone(paths)
	m.mutations++
	return nil
}

// DeleteItems removes photos and their event album memberships.
func (m *MemoryStore) DeleteItems(ctx context.Context, ids []string) (int64, error) {
	if m.DeleteItemsError != nil {
		return 0, m.DeleteItemsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.items[id]; !ok {
			continue
		}
		delete(m.items, id)
		for _, a := range m.albums {
			a.ItemIDs = slices.DeleteFunc(a.ItemIDs, func(s string) bool { return s == id })
		}
		n++
	}
	m.mutations++
	return n, nil
}

// ListAlbumItems returns the photos of an event album.
func (m *MemoryStore) ListAlbumItems(ctx context.Context, albumID string) ([]model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.albums[albumID]
	if !ok {
		return nil, fmt.Errorf("album %s: %w", albumID, model.ErrNotFound)
	}
	out := make([]model.Item, 0, len(a.ItemIDs))
	for _, id := range a.ItemIDs {
		if it, ok := m.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

// CreateIfAbsent inserts the album, with its photos and title, unless one
// exists for (OwnerID, TakenAt).
func (m *MemoryStore) CreateIfAbsent(ctx context.Context, album *model.EventAlbum) (bool, error) {
	if m.CreateAlbumError != nil {
		return false, m.CreateAlbumError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := albumKey{owner: album.OwnerID, takenAt: album.TakenAt.UnixNano()}
	if _, exists := m.albumKeys[key]; exists {
		return false, nil
	}
	cp := *album
	cp.ItemIDs = slices.Clone(album.ItemIDs)
	m.albums[cp.ID] = &cp
	m.albumKeys[key] = cp.ID
	m.mutations++
	return true, nil
}

// Exists reports whether an album is keyed by (ownerID, takenAt).
func (m *MemoryStore) Exists(ctx context.Context, ownerID string, takenAt time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.albumKeys[albumKey{owner: ownerID, takenAt: takenAt.UnixNano()}]
	return ok, nil
}

// UpdateTitle stores a new album title.
func (m *MemoryStore) UpdateTitle(ctx context.Context, albumID, title string) error {
	if m.UpdateTitleError != nil {
		return m.UpdateTitleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.albums[albumID]
	if !ok {
		return fmt.Errorf("album %s: %w", albumID, model.ErrNotFound)
	}
	a.Title = title
	a.UpdatedAt = time.Now().UTC()
	m.mutations++
	return nil
}

// ListAlbums returns the owner's event albums ordered by key.
func (m *MemoryStore) ListAlbums(ctx context.Context, ownerID string) ([]model.EventAlbum, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.EventAlbum
	for _, a := range m.albums {
		if a.OwnerID == ownerID {
			cp := *a
			cp.ItemIDs = slices.Clone(a.ItemIDs)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

// GetJob returns a copy of a job record.
func (m *MemoryStore) GetJob(ctx context.Context, jobID string) (*model.BatchJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, model.ErrNotFound)
	}
	cp := *job
	return &cp, nil
}

// CreateJob inserts a job record.
func (m *MemoryStore) CreateJob(ctx context.Context, job *model.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.JobID]; ok {
		return fmt.Errorf("job %s already exists", job.JobID)
	}
	cp := *job
	m.jobs[job.JobID] = &cp
	return nil
}

// SaveJob replaces a job record.
func (m *MemoryStore) SaveJob(ctx context.Context, job *model.BatchJob) error {
	if m.SaveJobError != nil {
		return m.SaveJobError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.JobID]; !ok {
		return fmt.Errorf("job %s: %w", job.JobID, model.ErrNotFound)
	}
	cp := *job
	m.jobs[job.JobID] = &cp
	return nil
}

// DeleteFacesByItem removes the face records of a photo.
func (m *MemoryStore) DeleteFacesByItem(ctx context.Context, itemID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.faces[itemID]))
	if n == 0 {
		return 0, nil
	}
	delete(m.faces, itemID)
	m.mutations++
	return n, nil
}

// Memberships returns the membership view for one grouping kind.
func (m *MemoryStore) Memberships(kind model.GroupKind) *Memberships {
	return &Memberships{store: m, kind: kind}
}

// Memberships is the per-kind membership view of a MemoryStore.
type Memberships struct {
	store *MemoryStore
	kind  model.GroupKind
}

// Kind reports the grouping kind.
func (g *Memberships) Kind() model.GroupKind { return g.kind }

// GroupsContaining lists the groups the photo belongs to.
func (g *Memberships) GroupsContaining(ctx context.Context, itemID string) ([]string, error) {
	g.store.mu.RLock()
	defer g.store.mu.RUnlock()
	var out []string
	for groupID, members := range g.store.memberships[g.kind] {
		if _, ok := members[itemID]; ok {
			out = append(out, groupID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// RemoveItem drops the photo from the group; the group itself stays.
func (g *Memberships) RemoveItem(ctx context.Context, groupID, itemID string) error {
	if g.store.RemoveItemError != nil {
		return g.store.RemoveItemError
	}
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	members, ok := g.store.memberships[g.kind][groupID]
	if !ok {
		return fmt.Errorf("%s album %s: %w", g.kind, groupID, model.ErrNotFound)
	}
	delete(members, itemID)
	g.store.mutations++
	return nil
}

// MemoryCache is a ViewCache that only counts invalidations.
type MemoryCache struct {
	mu            sync.Mutex
	invalidations int
}

// InvalidateAll records an invalidation.
func (c *MemoryCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	return nil
}

// Invalidations returns how many times InvalidateAll was called.
func (c *MemoryCache) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

// MemoryLocations is a LocationChecker backed by a set of existing paths.
type MemoryLocations map[string]bool

// Exists reports whether path is in the set.
func (l MemoryLocations) Exists(ctx context.Context, path string) (bool, error) {
	return l[path], nil
}
