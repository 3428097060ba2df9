package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/photojobs/internal/model"
)

var membershipTables = map[model.GroupKind]string{
	model.GroupDate:   "date_album_photos",
	model.GroupPlace:  "place_album_photos",
	model.GroupPerson: "person_album_photos",
	model.GroupUser:   "user_album_photos",
}

// MembershipRepository manages the photo links of one album kind.
type MembershipRepository struct {
	pool  *pgxpool.Pool
	kind  model.GroupKind
	table string
}

// NewMembershipRepositories returns one repository per known kind.
func NewMembershipRepositories(pool *pgxpool.Pool) []*MembershipRepository {
	repos := make([]*MembershipRepository, 0, len(model.GroupKinds))
	for _, kind := range model.GroupKinds {
		repos = append(repos, &MembershipRepository{pool: pool, kind: kind, table: membershipTables[kind]})
	}
	return repos
}

// Kind reports the album kind.
func (r *MembershipRepository) Kind() model.GroupKind { return r.kind }

// Add links a photo to an album.
func (r *MembershipRepository) Add(ctx context.Context, groupID, itemID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+r.table+` (album_id, photo_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, groupID, itemID)
	if err != nil {
		return fmt.Errorf("insert %s membership: %w", r.kind, err)
	}
	return nil
}

// GroupsContaining returns the ids of the albums holding itemID.
func (r *MembershipRepository) GroupsContaining(ctx context.Context, itemID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT album_id FROM `+r.table+` WHERE photo_id=$1 ORDER BY album_id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("select %s memberships: %w", r.kind, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan %s memberships: %w", r.kind, err)
	}
	return ids, nil
}

// RemoveItem unlinks a photo from an album.
func (r *MembershipRepository) RemoveItem(ctx context.Context, groupID, itemID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM `+r.table+` WHERE album_id=$1 AND photo_id=$2`, groupID, itemID)
	if err != nil {
		return fmt.Errorf("delete %s membership: %w", r.kind, err)
	}
	return nil
}
