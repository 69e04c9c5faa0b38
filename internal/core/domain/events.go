package domain

import "time"

// DataUpdate announces that a served data file changed on disk. Published on
// the heatmap.data.<resource> subject and relayed to websocket clients.
type DataUpdate struct {
	Resource string    `json:"resource"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}
