// Package title derives human readable names for event albums.
package title

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dharsanguruparan/photojobs/internal/geocode"
	"github.com/dharsanguruparan/photojobs/internal/model"
)

const maxPlaces = 2

// Geocoder is the subset of geocode.Client the generator needs.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) geocode.Result
}

// Generator builds titles such as "Saturday Morning in Prague" or
// "Trip to Lisbon and Porto" from an album's photos.
type Generator struct {
	geocoder Geocoder
}

// New returns a Generator. geocoder may be nil, in which case only places
// already stored on the photos are used.
func New(geocoder Geocoder) *Generator {
	return &Generator{geocoder: geocoder}
}

// Title computes the title for album given its member photos.
func (g *Generator) Title(ctx context.Context, album model.EventAlbum, items []model.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	first, last := timeRange(album, items)
	places := g.places(ctx, album, items)

	if sameDay(first, last) {
		when := first.Weekday().String() + " " + partOfDay(first.Hour())
		if len(places) == 0 {
			return when, nil
		}
		return when + " in " + strings.Join(places, " and "), nil
	}

	if len(places) > 0 {
		return "Trip to " + strings.Join(places, " and "), nil
	}
	days := daysBetween(first, last) + 1
	return fmt.Sprintf("%d days from %s", days, first.Format("Jan 2, 2006")), nil
}

func (g *Generator) places(ctx context.Context, album model.EventAlbum, items []model.Item) []string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		p := strings.TrimSpace(it.Place)
		if p == "" {
			continue
		}
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}
	if len(order) == 0 && album.HasLocation() && g.geocoder != nil {
		if p := g.geocoder.ReverseGeocode(ctx, *album.Lat, *album.Lon).Place(); p != "" {
			order = append(order, p)
			counts[p] = 1
		}
	}

	// Stable selection of the most frequent places, first seen wins ties.
	picked := make([]string, 0, maxPlaces)
	for len(picked) < maxPlaces && len(order) > 0 {
		best := 0
		for i, p := range order {
			if counts[p] > counts[order[best]] {
				best = i
			}
		}
		picked = append(picked, display(order[best]))
		order = append(order[:best], order[best+1:]...)
	}
	return picked
}

// display title-cases places that came in all lower case and leaves the rest
// alone so names like "USA" survive. Casers are stateful, hence one per call.
func display(place string) string {
	if place == strings.ToLower(place) {
		return cases.Title(language.Und).String(place)
	}
	return place
}

func timeRange(album model.EventAlbum, items []model.Item) (time.Time, time.Time) {
	first, last := album.TakenAt, album.TakenAt
	seen := false
	for _, it := range items {
		if it.TakenAt == nil {
			continue
		}
		ts := *it.TakenAt
		if !seen || ts.Before(first) {
			first = ts
		}
		if !seen || ts.After(last) {
			last = ts
		}
		seen = true
	}
	return first, last
}

func partOfDay(hour int) string {
	switch {
	case hour > 0 && hour < 5:
		return "Early Morning"
	case hour >= 5 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
