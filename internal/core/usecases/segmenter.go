package usecases

import (
	"encoding/binary"
	"math"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/geospatial"
)

// Segmenter decodes the binary point stream into drawable segments in a
// single pass. Decoding the same bytes always yields the same track set.
type Segmenter struct{}

// NewSegmenter creates a new Segmenter.
func NewSegmenter() *Segmenter {
	return &Segmenter{}
}

// Decode walks the 8-byte records of data and returns the resulting track
// set. A trailing partial record is ignored. A sentinel record closes the
// current segment and clears the previous-point state. A jump longer than
// domain.GapThresholdMeters closes the current segment and starts a new one
// holding only the far point. Segments shorter than domain.MinSegmentPoints
// are dropped at close time.
func (s *Segmenter) Decode(data []byte) domain.TrackSet {
	var (
		tracks  domain.TrackSet
		current []domain.Point
		prev    domain.Point
		hasPrev bool
	)

	closeSegment := func() {
		if len(current) >= domain.MinSegmentPoints {
			tracks = append(tracks, domain.Segment{Points: current})
		}
		current = nil
	}

	for off := 0; off+domain.RecordSize <= len(data); off += domain.RecordSize {
		latRaw := int32(binary.LittleEndian.Uint32(data[off:]))
		lonRaw := int32(binary.LittleEndian.Uint32(data[off+4:]))

		if latRaw == domain.SentinelCoord && lonRaw == domain.SentinelCoord {
			closeSegment()
			hasPrev = false
			continue
		}

		p := domain.Point{
			Lat: float64(latRaw) / domain.CoordScale,
			Lon: float64(lonRaw) / domain.CoordScale,
		}
		if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
			// skip the record, keep segment and previous-point state
			continue
		}

		if hasPrev && geospatial.Haversine(prev.Lat, prev.Lon, p.Lat, p.Lon) > domain.GapThresholdMeters {
			// the far point belongs to the new segment only
			closeSegment()
		}

		current = append(current, p)
		prev = p
		hasPrev = true
	}

	closeSegment()
	return tracks
}
