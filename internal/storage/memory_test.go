package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

func TestCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	ok, err := m.CreateIfAbsent(ctx, &model.EventAlbum{ID: "a1", OwnerID: "u1", TakenAt: ts})
	if err != nil || !ok {
		t.Fatalf("expected insert, got ok=%v err=%v", ok, err)
	}
	ok, err = m.CreateIfAbsent(ctx, &model.EventAlbum{ID: "a2", OwnerID: "u1", TakenAt: ts})
	if err != nil || ok {
		t.Fatalf("expected conflict, got ok=%v err=%v", ok, err)
	}
	// Same instant, different owner.
	ok, _ = m.CreateIfAbsent(ctx, &model.EventAlbum{ID: "a3", OwnerID: "u2", TakenAt: ts})
	if !ok {
		t.Fatalf("expected insert for another owner")
	}
}

func TestItemQueries(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	ts := time.Now()
	m.PutItem(model.Item{ID: "1", OwnerID: "u1", TakenAt: &ts, StoragePaths: []string{"a.jpg"}})
	m.PutItem(model.Item{ID: "2", OwnerID: "u1"})
	m.PutItem(model.Item{ID: "3", OwnerID: "u2"})

	timed, _ := m.ListTimestamped(ctx, "u1")
	if len(timed) != 1 || timed[0].ID != "1" {
		t.Fatalf("unexpected timestamped items %v", timed)
	}
	missing, _ := m.ListMissing(ctx, "u1")
	if len(missing) != 1 || missing[0].ID != "2" {
		t.Fatalf("unexpected missing items %v", missing)
	}
	located, _ := m.ListWithLocations(ctx, "u1")
	if len(located) != 1 || located[0].ID != "1" {
		t.Fatalf("unexpected located items %v", located)
	}
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if _, err := m.GetJob(ctx, "j1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.SaveJob(ctx, &model.BatchJob{JobID: "j1"}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on save, got %v", err)
	}
	if err := m.CreateJob(ctx, &model.BatchJob{JobID: "j1", StartedBy: "u1"}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	if err := m.CreateJob(ctx, &model.BatchJob{JobID: "j1"}); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}
	job, err := m.GetJob(ctx, "j1")
	if err != nil || job.StartedBy != "u1" {
		t.Fatalf("unexpected job %+v err=%v", job, err)
	}
}

func TestMembershipsKeepEmptyGroups(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.AddToGroup(model.GroupPlace, "prague", "p1")
	view := m.Memberships(model.GroupPlace)

	groups, _ := view.GroupsContaining(ctx, "p1")
	if len(groups) != 1 || groups[0] != "prague" {
		t.Fatalf("unexpected groups %v", groups)
	}
	if err := view.RemoveItem(ctx, "prague", "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := m.GroupSize(model.GroupPlace, "prague"); got != 0 {
		t.Fatalf("expected empty group to remain, size %d", got)
	}
	if groups, _ := m.Memberships(model.GroupDate).GroupsContaining(ctx, "p1"); len(groups) != 0 {
		t.Fatalf("kinds must be independent, got %v", groups)
	}
}
