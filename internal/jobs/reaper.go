package jobs

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

// Report summarizes a purge.
type Report struct {
	Checked            int   `json:"checked"`
	PathsPruned        int   `json:"pathsPruned"`
	Purged             int64 `json:"purged"`
	MembershipsRemoved int   `json:"membershipsRemoved"`
	FacesDeleted       int64 `json:"facesDeleted"`
}

// Reaper deletes photos that no longer have a backing file together with
// every reference to them.
type Reaper struct {
	items       ItemStore
	memberships []MembershipStore
	faces       FaceStore
	cache       ViewCache
	locations   LocationChecker
	log         logrus.FieldLogger
}

// NewReaper constructs a Reaper. locations may be nil, which skips the
// storage verification pass.
func NewReaper(items ItemStore, memberships []MembershipStore, faces FaceStore, cache ViewCache, locations LocationChecker, log logrus.FieldLogger) *Reaper {
	return &Reaper{
		items:       items,
		memberships: memberships,
		faces:       faces,
		cache:       cache,
		locations:   locations,
		log:         log,
	}
}

// Purge removes the owner's photos that have no storage path. Cleanup is
// per photo and not transactional: an error leaves earlier photos fully
// cleaned and later ones untouched.
func (r *Reaper) Purge(ctx context.Context, ownerID string, progress ProgressFunc) (Report, error) {
	var rep Report
	if r.locations != nil {
		if err := r.verifyLocations(ctx, ownerID, &rep); err != nil {
			return rep, err
		}
	}

	missing, err := r.items.ListMissing(ctx, ownerID)
	if err != nil {
		return rep, fmt.Errorf("list missing photos: %w", err)
	}
	r.log.Infof("found %d missing photos", len(missing))

	ids := make([]string, 0, len(missing))
	for idx, item := range missing {
		if err := r.detach(ctx, item, &rep); err != nil {
			return rep, fmt.Errorf("detach photo %s: %w", item.ID, err)
		}
		ids = append(ids, item.ID)
		if progress != nil {
			if err := progress(ctx, idx+1, len(missing)); err != nil {
				return rep, fmt.Errorf("report progress: %w", err)
			}
		}
	}

	if len(ids) > 0 {
		n, err := r.items.DeleteItems(ctx, ids)
		if err != nil {
			return rep, fmt.Errorf("delete photos: %w", err)
		}
		rep.Purged = n
	}
	if err := r.cache.InvalidateAll(ctx); err != nil {
		return rep, fmt.Errorf("invalidate view cache: %w", err)
	}
	return rep, nil
}

func (r *Reaper) detach(ctx context.Context, item model.Item, rep *Report) error {
	for _, ms := range r.memberships {
		groups, err := ms.GroupsContaining(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("find %s albums: %w", ms.Kind(), err)
		}
		for _, groupID := range groups {
			if err := ms.RemoveItem(ctx, groupID, item.ID); err != nil {
				return fmt.Errorf("remove from %s album %s: %w", ms.Kind(), groupID, err)
			}
			rep.MembershipsRemoved++
		}
	}
	n, err := r.faces.DeleteFacesByItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("delete faces: %w", err)
	}
	rep.FacesDeleted += n
	return nil
}

// verifyLocations drops storage paths whose objects are gone so that photos
// without any surviving file are picked up as missing.
func (r *Reaper) verifyLocations(ctx context.Context, ownerID string, rep *Report) error {
	items, err := r.items.ListWithLocations(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list stored photos: %w", err)
	}
	for _, item := range items {
		rep.Checked++
		kept := make([]string, 0, len(item.StoragePaths))
		for _, path := range item.StoragePaths {
			ok, err := r.locations.Exists(ctx, path)
			if err != nil {
				return fmt.Errorf("check %s: %w", path, err)
			}
			if ok {
				kept = append(kept, path)
			}
		}
		if len(kept) == len(item.StoragePaths) {
			continue
		}
		if err := r.items.SetStoragePaths(ctx, item.ID, kept); err != nil {
			return fmt.Errorf("update storage paths of %s: %w", item.ID, err)
		}
		rep.PathsPruned += len(item.StoragePaths) - len(kept)
	}
	return nil
}
