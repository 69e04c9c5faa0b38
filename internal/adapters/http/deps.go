package http

import (
	"io/fs"

	"github.com/nats-io/nats.go"
)

// Dependencies holds everything the HTTP handlers need.
type Dependencies struct {
	DataDir string  // directory holding points.bin and summary.json
	Shell   fs.FS   // embedded app shell assets
	NATS    *nats.Conn
}
