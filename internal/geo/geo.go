// Package geo holds the small numeric helpers used for photo coordinates.
package geo

import (
	"errors"
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Centroid returns the arithmetic mean of points. ok is false when points is
// empty, in which case the album keeps no location.
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var sum Point
	for _, p := range points {
		sum.Lat += p.Lat
		sum.Lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: sum.Lat / n, Lon: sum.Lon / n}, true
}

// Rational is an EXIF unsigned rational.
type Rational struct {
	Num int64
	Den int64
}

// ErrZeroDenominator is returned for malformed EXIF rationals.
var ErrZeroDenominator = errors.New("rational with zero denominator")

func (r Rational) float() (float64, error) {
	if r.Den == 0 {
		return 0, ErrZeroDenominator
	}
	return float64(r.Num) / float64(r.Den), nil
}

// Degrees converts EXIF degrees, minutes and seconds to decimal degrees.
func Degrees(d, m, s Rational) (float64, error) {
	deg, err := d.float()
	if err != nil {
		return 0, fmt.Errorf("degrees: %w", err)
	}
	mins, err := m.float()
	if err != nil {
		return 0, fmt.Errorf("minutes: %w", err)
	}
	secs, err := s.float()
	if err != nil {
		return 0, fmt.Errorf("seconds: %w", err)
	}
	return deg + mins/60 + secs/3600, nil
}

// DegreesFromTag reads a GPSLatitude or GPSLongitude tag, which stores
// degrees, minutes and seconds as three rationals.
func DegreesFromTag(tag *tiff.Tag) (float64, error) {
	if tag == nil {
		return 0, errors.New("nil gps tag")
	}
	if tag.Count < 3 {
		return 0, fmt.Errorf("gps tag has %d values, want 3", tag.Count)
	}
	var parts [3]Rational
	for i := range parts {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return 0, fmt.Errorf("gps tag value %d: %w", i, err)
		}
		parts[i] = Rational{Num: num, Den: den}
	}
	return Degrees(parts[0], parts[1], parts[2])
}

// ErrNoGPS is returned by FromEXIF for photos without GPS tags.
var ErrNoGPS = errors.New("photo has no gps position")

// FromEXIF reads the GPS position of a JPEG or TIFF photo. Southern
// latitudes and western longitudes come out negative.
func FromEXIF(r io.Reader) (Point, error) {
	x, err := exif.Decode(r)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		return Point{}, fmt.Errorf("decode exif: %w", err)
	}
	lat, err := coordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	if err != nil {
		return Point{}, err
	}
	lon, err := coordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	if err != nil {
		return Point{}, err
	}
	return Point{Lat: lat, Lon: lon}, nil
}

func coordinate(x *exif.Exif, field, refField exif.FieldName, negative string) (float64, error) {
	tag, err := x.Get(field)
	if exif.IsTagNotPresentError(err) {
		return 0, ErrNoGPS
	} else if err != nil {
		return 0, err
	}
	deg, err := DegreesFromTag(tag)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	ref, err := x.Get(refField)
	if err != nil {
		return deg, nil
	}
	if v, err := ref.StringVal(); err == nil && v == negative {
		deg = -deg
	}
	return deg, nil
}
