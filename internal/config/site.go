package config

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/tzneal/coordconv"
)

// Site carries the observing site's geodetic position and a derived UTM
// projection. It is stored on the channel context; it is not written into
// archive headers or science records.
type Site struct {
	Name      string  `yaml:"name"`
	LatDeg    float64 `yaml:"latDeg"`
	LonDeg    float64 `yaml:"lonDeg"`
	ElevMeter float64 `yaml:"elevMeter"`

	CenterFreqHz float64 `yaml:"centerFreqHz"`
}

// LatLng returns the site position as an s2.LatLng for use with the
// coordconv converters.
func (s Site) LatLng() s2.LatLng {
	return s2.LatLng{
		Lat: s1.Angle(s.LatDeg * math.Pi / 180),
		Lng: s1.Angle(s.LonDeg * math.Pi / 180),
	}
}

// UTM projects the site position to UTM, for inclusion in archive headers
// alongside the raw geodetic coordinates.
func (s Site) UTM() (coordconv.UTMCoord, error) {
	return coordconv.DefaultUTMConverter.ConvertFromGeodetic(s.LatLng(), 0)
}

// HemisphereRune renders a coordconv.Hemisphere as its conventional
// single-character code, matching the teacher's ll2utm/utm2ll tools.
func HemisphereRune(h coordconv.Hemisphere) rune {
	switch h {
	case coordconv.HemisphereNorth:
		return 'N'
	case coordconv.HemisphereSouth:
		return 'S'
	default:
		return '?'
	}
}
