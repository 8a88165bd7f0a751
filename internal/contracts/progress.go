package contracts

import "time"

// Progress stages
const (
	StageUniverse   = "universe"
	StageMasterList = "master_list"
	StageScreening  = "screening"
	StageCollect    = "collect"
	StageScan       = "scan"
)

// ProgressEvent is a single progress update from a long-running
// pipeline stage, fanned out to CLI output and the websocket stream.
type ProgressEvent struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Ticker    string    `json:"ticker,omitempty"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}
