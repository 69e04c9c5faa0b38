package cli

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/fetch"
	natsadapter "github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/nats"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/sqlite"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/staticmap"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/valkey"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/ports"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/usecases"
)

// shellAssets are pinned into the cache generation so the viewer starts
// offline.
var shellAssets = []string{"/", "/app.js", "/style.css"}

// Handle parses arguments and runs the selected viewer command.
func Handle() {
	cmd := &cli.Command{
		Name:  "heatmap-viewer",
		Usage: "Terminal viewer for the cycling heatmap",
		Flags: viewerFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runViewer(ctx, cmd)
		},
		Commands: []*cli.Command{
			{
				Name:    "render",
				Aliases: []string{"r"},
				Usage:   "Load the tracks and render a PNG without the TUI",
				Flags:   viewerFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runRender(ctx, cmd)
				},
			},
			{
				Name:    "purge",
				Aliases: []string{"p"},
				Usage:   "Drop every cached resource, shell and data alike",
				Flags:   sourceFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runPurge(ctx, cmd)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Category: "Source",
			Name:     "origin",
			Usage:    "Base URL of the heatmap server",
			Value:    "http://localhost:8080",
		},
		&cli.StringFlag{
			Category: "Source",
			Name:     "generation",
			Usage:    "Cache generation the shell is pinned under",
			Value:    "v1",
		},
		&cli.StringFlag{
			Category: "Cache",
			Name:     "cache",
			Usage:    "Path of the local SQLite cache database",
			Value:    defaultCachePath(),
		},
		&cli.StringFlag{
			Category: "Cache",
			Name:     "valkey",
			Usage:    "Valkey address for a shared cache (overrides --cache)",
		},
		&cli.BoolFlag{
			Category: "Cache",
			Name:     "no-cache",
			Usage:    "Run without any offline cache",
		},
	}
}

func viewerFlags() []cli.Flag {
	return append(sourceFlags(),
		&cli.StringFlag{
			Category: "Render",
			Name:     "out",
			Usage:    "Output path for PNG snapshots",
			Value:    "heatmap.png",
		},
		&cli.Float64Flag{
			Category: "Render",
			Name:     "width",
			Usage:    "Snapshot width in pixels",
			Value:    1280,
		},
		&cli.Float64Flag{
			Category: "Render",
			Name:     "height",
			Usage:    "Snapshot height in pixels",
			Value:    960,
		},
		&cli.StringFlag{
			Category: "Style",
			Name:     "color",
			Usage:    "Track color as #rrggbb",
			Value:    domain.DefaultStyle.Color,
		},
		&cli.Float64Flag{
			Category: "Style",
			Name:     "line-width",
			Usage:    "Track stroke width in pixels",
			Value:    domain.DefaultStyle.Width,
		},
		&cli.Float64Flag{
			Category: "Style",
			Name:     "opacity",
			Usage:    "Track opacity between 0 and 1",
			Value:    domain.DefaultStyle.Opacity,
		},
		&cli.BoolFlag{
			Category: "Live updates",
			Name:     "watch",
			Usage:    "Reload automatically when the server publishes new data",
		},
		&cli.StringFlag{
			Category: "Live updates",
			Name:     "nats",
			Usage:    "NATS address for live updates",
			Value:    "nats://localhost:4222",
		},
	)
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "heatmap-cache.db"
	}
	return filepath.Join(dir, "cycling-heatmap", "cache.db")
}

// pipeline wires the client-side loading stack for one origin.
type pipeline struct {
	origin      string
	cache       ports.BlobCache
	interceptor *fetch.Interceptor
	tracks      *usecases.StreamService
	summary     *usecases.SummaryService
	segmenter   *usecases.Segmenter
	render      *usecases.RenderService
	canvas      *staticmap.Canvas
	closers     []func()
}

func (p *pipeline) streamURL() string  { return p.origin + "/points.bin" }
func (p *pipeline) summaryURL() string { return p.origin + "/summary.json" }

func (p *pipeline) close() {
	for _, fn := range p.closers {
		fn()
	}
}

func buildPipeline(ctx context.Context, cmd *cli.Command) (*pipeline, error) {
	p := &pipeline{origin: strings.TrimSuffix(cmd.String("origin"), "/")}

	cache, closeCache, err := openCache(ctx, cmd)
	if err != nil {
		return nil, err
	}
	p.cache = cache
	if closeCache != nil {
		p.closers = append(p.closers, closeCache)
	}

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	if cache != nil {
		p.interceptor = fetch.NewInterceptor(nil, cache, p.origin, cmd.String("generation"), shellAssets)
		httpClient.Transport = p.interceptor
	}
	fetcher := fetch.NewClient(httpClient)

	p.tracks = usecases.NewStreamService(fetcher, cache)
	p.summary = usecases.NewSummaryService(fetcher, cache)
	p.segmenter = usecases.NewSegmenter()
	p.canvas = staticmap.NewCanvas(int(cmd.Float64("width")), int(cmd.Float64("height")))
	p.render = usecases.NewRenderService(p.canvas)
	p.render.SetStyle(domain.Style{
		Color:   cmd.String("color"),
		Width:   cmd.Float64("line-width"),
		Opacity: cmd.Float64("opacity"),
	})

	return p, nil
}

// openCache picks the cache backend: Valkey when --valkey is set, the local
// SQLite file otherwise, nothing with --no-cache.
func openCache(ctx context.Context, cmd *cli.Command) (ports.BlobCache, func(), error) {
	if cmd.Bool("no-cache") {
		return nil, nil, nil
	}
	if addr := cmd.String("valkey"); addr != "" {
		c, err := valkey.New(addr)
		if err != nil {
			return nil, nil, fmt.Errorf("open valkey cache: %w", err)
		}
		return c, c.Close, nil
	}
	c, err := sqlite.New(ctx, cmd.String("cache"))
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// prepareOffline pins the shell and drops retired cache generations. Failure
// is tolerated: a previously pinned generation keeps working offline.
func (p *pipeline) prepareOffline(ctx context.Context) {
	if p.interceptor == nil {
		return
	}
	if err := p.interceptor.Install(ctx); err != nil {
		slog.Debug("shell install skipped", "error", err)
		return
	}
	if err := p.interceptor.Activate(ctx); err != nil {
		slog.Debug("cache activation failed", "error", err)
	}
}

// load fetches the point stream and summary concurrently and decodes the
// stream into segments. The summary is best-effort; the map renders without
// it.
func (p *pipeline) load(ctx context.Context, onProgress ports.ProgressFunc) (domain.TrackSet, *domain.Summary, error) {
	var (
		tracks  domain.TrackSet
		summary *domain.Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := p.tracks.Load(gctx, p.streamURL(), onProgress)
		if err != nil {
			return err
		}
		tracks = p.segmenter.Decode(data)
		return nil
	})
	g.Go(func() error {
		if sum, err := p.summary.Load(gctx, p.summaryURL()); err == nil {
			summary = sum
		}
		// the "--" placeholder covers a missing summary
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return tracks, summary, nil
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	p, err := buildPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.close()
	p.prepareOffline(ctx)

	tracks, summary, err := p.load(ctx, nil)
	if err != nil {
		return err
	}
	p.render.Render(tracks)

	out := cmd.String("out")
	if err := p.canvas.WritePNG(out); err != nil {
		return err
	}
	fmt.Printf("rendered %d segments, %d points, %s km to %s\n",
		len(tracks), tracks.PointCount(), usecases.FormatTotalKm(summary), out)
	return nil
}

func runPurge(ctx context.Context, cmd *cli.Command) error {
	cache, closeCache, err := openCache(ctx, cmd)
	if err != nil {
		return err
	}
	if cache == nil {
		return fmt.Errorf("nothing to purge without a cache")
	}
	defer closeCache()

	keys, err := cache.Keys(ctx, "")
	if err != nil {
		return fmt.Errorf("list cache keys: %w", err)
	}
	for _, k := range keys {
		if err := cache.Delete(ctx, k); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	fmt.Printf("purged %d cached entries\n", len(keys))
	return nil
}

func runViewer(ctx context.Context, cmd *cli.Command) error {
	p, err := buildPipeline(ctx, cmd)
	if err != nil {
		return err
	}
	defer p.close()
	p.prepareOffline(ctx)

	var updates chan updateMsg
	if cmd.Bool("watch") {
		sub, err := natsadapter.NewSubscriber(cmd.String("nats"))
		if err != nil {
			slog.Warn("live updates unavailable", "error", err)
		} else {
			p.closers = append(p.closers, sub.Close)
			ch := make(chan updateMsg, 1)
			err := sub.SubscribeDataUpdates(ctx, func(ctx context.Context, ev *domain.DataUpdate) error {
				select {
				case ch <- updateMsg{resource: ev.Resource}:
				default: // a reload is already pending
				}
				return nil
			})
			if err != nil {
				slog.Warn("live updates unavailable", "error", err)
			} else {
				updates = ch
			}
		}
	}

	prog := tea.NewProgram(newViewerModel(p, cmd.String("out"), updates), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return err
	}
	return nil
}
