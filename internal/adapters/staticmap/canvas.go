package staticmap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"strconv"
	"sync"

	sm "github.com/flopp/go-staticmaps"
	"github.com/golang/geo/s2"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
)

// Canvas implements ports.MapCanvas with a retained polyline model rendered
// through go-staticmaps. Mutations never touch the tile layer; tiles are
// fetched only when a snapshot is rendered.
type Canvas struct {
	mu        sync.Mutex
	width     int
	height    int
	nextID    ports.PolylineID
	polylines map[ports.PolylineID]*polyline
	viewport  *domain.Bounds
}

type polyline struct {
	points []domain.Point
	style  domain.Style
}

// NewCanvas creates a canvas with the given snapshot dimensions in pixels.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{
		width:     width,
		height:    height,
		nextID:    1,
		polylines: make(map[ports.PolylineID]*polyline),
	}
}

func (c *Canvas) AddPolyline(points []domain.Point, style domain.Style) ports.PolylineID {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.polylines[id] = &polyline{
		points: append([]domain.Point(nil), points...),
		style:  style,
	}
	return id
}

func (c *Canvas) RemovePolyline(id ports.PolylineID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.polylines, id)
}

func (c *Canvas) SetPolylineStyle(id ports.PolylineID, style domain.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.polylines[id]; ok {
		p.style = style
	}
}

func (c *Canvas) FitBounds(b domain.Bounds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = &b
}

// PolylineCount reports how many polylines are currently retained.
func (c *Canvas) PolylineCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.polylines)
}

// Viewport returns the fitted bounds, if any.
func (c *Canvas) Viewport() (domain.Bounds, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.viewport == nil {
		return domain.Bounds{}, false
	}
	return *c.viewport, true
}

// Snapshot renders the retained polylines over OSM tiles. Polylines are drawn
// in insertion order so later additions overdraw earlier ones.
func (c *Canvas) Snapshot() (image.Image, error) {
	c.mu.Lock()
	ctx := sm.NewContext()
	ctx.SetSize(c.width, c.height)

	ids := make([]ports.PolylineID, 0, len(c.polylines))
	for id := range c.polylines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p := c.polylines[id]
		positions := make([]s2.LatLng, len(p.points))
		for i, pt := range p.points {
			positions[i] = s2.LatLngFromDegrees(pt.Lat, pt.Lon)
		}
		ctx.AddObject(sm.NewPath(positions, strokeColor(p.style), p.style.Width))
	}
	viewport := c.viewport
	c.mu.Unlock()

	if viewport != nil {
		bbox, err := sm.CreateBBox(viewport.MaxLat, viewport.MinLon, viewport.MinLat, viewport.MaxLon)
		if err != nil {
			return nil, fmt.Errorf("viewport bbox: %w", err)
		}
		ctx.SetBoundingBox(*bbox)
	}

	return ctx.Render()
}

// WritePNG renders a snapshot and writes it to path.
func (c *Canvas) WritePNG(path string) error {
	img, err := c.Snapshot()
	if err != nil {
		return fmt.Errorf("render map: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// strokeColor converts a style's hex color and opacity into a drawable color.
// Unparseable colors fall back to the default track color.
func strokeColor(s domain.Style) color.Color {
	r, g, b, ok := parseHex(s.Color)
	if !ok {
		r, g, b, _ = parseHex(domain.DefaultStyle.Color)
	}
	a := uint8(s.Opacity*255 + 0.5)
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

func parseHex(hex string) (r, g, b uint8, ok bool) {
	if len(hex) == 0 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	hex = hex[1:]

	// #rgb shorthand expands each digit
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return 0, 0, 0, false
	}

	channels := [3]uint8{}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return 0, 0, 0, false
		}
		channels[i] = uint8(v)
	}
	return channels[0], channels[1], channels[2], true
}
