// Package model contains simple struct definitions shared across packages.
package model

import (
	"time"
)

// Item is a photo in a user's library. Timestamps and coordinates come from
// EXIF and are optional, which is why they are pointers.
type Item struct {
	ID      string     `json:"id"`
	OwnerID string     `json:"ownerId"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
	Lat     *float64   `json:"lat,omitempty"`
	Lon     *float64   `json:"lon,omitempty"`
	// Place is the geocoded place name, empty when the photo was never geocoded.
	Place        string   `json:"place,omitempty"`
	StoragePaths []string `json:"storagePaths"`
}

// HasLocation reports whether both coordinates are populated.
func (i Item) HasLocation() bool {
	return i.Lat != nil && i.Lon != nil
}

// Missing reports whether no backing file is known for the item.
func (i Item) Missing() bool {
	return len(i.StoragePaths) == 0
}

// GroupKind names one of the album-like groupings an item can belong to.
type GroupKind string

const (
	GroupDate   GroupKind = "date"
	GroupPlace  GroupKind = "place"
	GroupPerson GroupKind = "person"
	GroupUser   GroupKind = "user"
)

// GroupKinds lists every grouping kind in cleanup order.
var GroupKinds = []GroupKind{GroupDate, GroupPlace, GroupPerson, GroupUser}
