package http

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
)

const (
	pointStreamFile = "points.bin"
	summaryFile     = "summary.json"
)

// DataStats holds statistics about the published track data.
type DataStats struct {
	PointBytes int64  `json:"point_bytes"`
	Points     int64  `json:"points"`
	Summary    bool   `json:"summary"`
	ModTime    string `json:"mod_time,omitempty"`
}

// PointStreamHandler serves the raw binary point stream.
func PointStreamHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := filepath.Join(deps.DataDir, pointStreamFile)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return errNotFound(c, "point stream not published")
			}
			LoggerFromCtx(c.UserContext()).Warn("point stream read failed", "path", path, "error", err)
			return errInternal(c, "point stream unavailable")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		// Clients keep their own offline copy and must always revalidate.
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(data)
	}
}

// SummaryHandler serves the precomputed track summary.
func SummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := filepath.Join(deps.DataDir, summaryFile)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return errNotFound(c, "summary not published")
			}
			LoggerFromCtx(c.UserContext()).Warn("summary read failed", "path", path, "error", err)
			return errInternal(c, "summary unavailable")
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(data)
	}
}

// ShellHandler serves one embedded app shell asset.
func ShellHandler(deps *Dependencies, name string, contentType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := fs.ReadFile(deps.Shell, name)
		if err != nil {
			return errInternal(c, "shell asset missing: "+name)
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(data)
	}
}

// DataStatsHandler reports what is currently published in the data directory.
func DataStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var stats DataStats

		if fi, err := os.Stat(filepath.Join(deps.DataDir, pointStreamFile)); err == nil {
			stats.PointBytes = fi.Size()
			stats.Points = fi.Size() / domain.RecordSize
			stats.ModTime = fi.ModTime().UTC().Format(time.RFC3339)
		}
		if _, err := os.Stat(filepath.Join(deps.DataDir, summaryFile)); err == nil {
			stats.Summary = true
		}

		c.Set(fiber.HeaderCacheControl, "public, max-age=60")
		return c.JSON(stats)
	}
}
