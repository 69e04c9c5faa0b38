package main

import (
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/cli"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/logging"
)

func main() {
	logging.FromEnv()
	cli.Handle()
}
