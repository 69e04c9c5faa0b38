package usecases

import (
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
)

// ViewportPadFraction is the margin added around the union bounds on every
// side when fitting the viewport.
const ViewportPadFraction = 0.10

// RenderService owns the drawables and the active style on a map canvas.
// Rendering a new track set replaces everything the previous one drew; a
// style change restyles the existing drawables without re-decoding.
type RenderService struct {
	canvas ports.MapCanvas
	style  domain.Style
	drawn  []ports.PolylineID
}

// NewRenderService creates a new RenderService using the default style.
func NewRenderService(canvas ports.MapCanvas) *RenderService {
	return &RenderService{canvas: canvas, style: domain.DefaultStyle}
}

// Render draws one polyline per segment and fits the viewport around their
// union bounds. An empty track set clears the canvas and leaves the
// viewport alone.
func (s *RenderService) Render(ts domain.TrackSet) {
	for _, id := range s.drawn {
		s.canvas.RemovePolyline(id)
	}
	s.drawn = s.drawn[:0]

	for _, seg := range ts {
		if len(seg.Points) < domain.MinSegmentPoints {
			continue
		}
		s.drawn = append(s.drawn, s.canvas.AddPolyline(seg.Points, s.style))
	}

	if b, ok := ts.UnionBounds(); ok {
		s.canvas.FitBounds(b.Pad(ViewportPadFraction))
	}
}

// SetStyle clamps the style into its valid ranges and applies it to
// everything currently drawn.
func (s *RenderService) SetStyle(style domain.Style) {
	s.style = style.Clamp()
	for _, id := range s.drawn {
		s.canvas.SetPolylineStyle(id, s.style)
	}
}

// Style returns the active drawing style.
func (s *RenderService) Style() domain.Style {
	return s.style
}

// DrawnCount returns the number of polylines currently on the canvas.
func (s *RenderService) DrawnCount() int {
	return len(s.drawn)
}
