package domain

import "math"

// Wire format of the binary point stream produced by the FIT converter. Each
// record is two little-endian signed 32-bit integers: latitude and longitude
// in 1e-7 degrees. A record with both fields equal to SentinelCoord is an
// activity boundary, never a real coordinate.
const (
	RecordSize    = 8
	CoordScale    = 1e7
	SentinelCoord = math.MinInt32
)

// GapThresholdMeters is the distance between consecutive points above which
// the track is split into separate segments (GPS dropouts, transport between
// ride locations).
const GapThresholdMeters = 2000.0

// MinSegmentPoints is the minimum number of points a segment needs to be
// drawable. Shorter segments are degenerate and dropped.
const MinSegmentPoints = 2

// Segment is an ordered run of points rendered as one polyline.
type Segment struct {
	Points []Point `json:"points"`
}

// TrackSet is the ordered collection of segments produced by one decode pass
// over the point stream. A new load replaces the previous set wholesale.
type TrackSet []Segment

// PointCount returns the total number of points across all segments.
func (ts TrackSet) PointCount() int {
	n := 0
	for _, seg := range ts {
		n += len(seg.Points)
	}
	return n
}

// UnionBounds returns the bounding box enclosing every point in the set.
// ok is false when the set holds no points.
func (ts TrackSet) UnionBounds() (Bounds, bool) {
	first := true
	var b Bounds
	for _, seg := range ts {
		for _, p := range seg.Points {
			if first {
				b = Bounds{MinLat: p.Lat, MinLon: p.Lon, MaxLat: p.Lat, MaxLon: p.Lon}
				first = false
				continue
			}
			b = b.Extend(p)
		}
	}
	return b, !first
}

// Style bounds enforced on every update.
const (
	MinStrokeWidth = 1.0
	MaxStrokeWidth = 50.0
	MinOpacity     = 0.05
	MaxOpacity     = 1.0
)

// Style controls how track polylines are drawn.
type Style struct {
	Color   string  `json:"color"`
	Width   float64 `json:"width"`   // pixels
	Opacity float64 `json:"opacity"` // 0..1
}

// DefaultStyle is the style applied before any user adjustment.
var DefaultStyle = Style{Color: "#ff4500", Width: 3, Opacity: 0.8}

// Clamp returns the style with width and opacity forced into their valid
// ranges. Color passes through untouched.
func (s Style) Clamp() Style {
	s.Width = math.Min(math.Max(s.Width, MinStrokeWidth), MaxStrokeWidth)
	s.Opacity = math.Min(math.Max(s.Opacity, MinOpacity), MaxOpacity)
	return s
}

// Summary mirrors the converter's summary.json sidecar.
type Summary struct {
	TotalKm float64 `json:"total_km"`
	Points  int64   `json:"points"`
}
