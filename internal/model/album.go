package model

import "time"

// EventAlbum is an automatically generated album covering photos taken close
// together in time. (OwnerID, TakenAt) identifies an album.
type EventAlbum struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	TakenAt   time.Time `json:"takenAt"`
	Title     string    `json:"title"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	ItemIDs   []string  `json:"itemIds,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasLocation reports whether a centroid was computed for the album.
func (a EventAlbum) HasLocation() bool {
	return a.Lat != nil && a.Lon != nil
}
