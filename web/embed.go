// Package web holds the embedded app shell: the landing page served at the
// root routes and pinned by viewers for offline starts.
package web

import "embed"

//go:embed index.html app.js style.css
var Shell embed.FS
