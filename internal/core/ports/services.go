package ports

import (
	"context"
	"io"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
)

// ProgressFunc receives load progress as an integer percentage in [0,100].
// Values are non-decreasing and reported only when they change; the final
// call is always 100.
type ProgressFunc func(pct int)

// FetchResult is an open network response. ContentLength is -1 when the
// server did not announce a size. The caller owns Body and must close it.
type FetchResult struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Fetcher retrieves a resource over the network with transport caching
// disabled. Transport failures and non-success statuses surface as
// *domain.RetrievalError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// UpdatePublisher publishes data-update events to a message broker.
type UpdatePublisher interface {
	PublishDataUpdate(ctx context.Context, ev *domain.DataUpdate) error
}

// UpdateSubscriber delivers data-update events published by the server.
type UpdateSubscriber interface {
	SubscribeDataUpdates(ctx context.Context, handler func(ctx context.Context, ev *domain.DataUpdate) error) error
}

// PolylineID identifies one drawable added to a MapCanvas.
type PolylineID int

// MapCanvas is the retained-mode drawing surface of the map widget. Adding,
// removing and restyling polylines does not require re-decoding the track
// data that produced them.
type MapCanvas interface {
	AddPolyline(points []domain.Point, style domain.Style) PolylineID
	RemovePolyline(id PolylineID)
	SetPolylineStyle(id PolylineID, style domain.Style)
	FitBounds(b domain.Bounds)
}
