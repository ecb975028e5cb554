package pipelines

import (
	"strconv"
	"time"

	"github.com/paolobietolini/atac-realtime/config"
)

type Stage string

const (
	StageFetch  Stage = "fetch"
	StageDecode Stage = "decode"
	StageWrite  Stage = "write"
)

// Outcome is the result of one cycle for one feed kind. Failures are carried
// in Err, never returned.
type Outcome struct {
	RunID         string          `json:"run_id"`
	Kind          config.FeedKind `json:"feed_kind"`
	Start         time.Time       `json:"start"`
	Duration      time.Duration   `json:"duration"`
	FeedTimestamp uint64          `json:"feed_timestamp"`
	Records       int             `json:"records"`
	Key           string          `json:"key,omitempty"`
	Stage         Stage           `json:"stage,omitempty"`
	Err           error           `json:"-"`
	Skipped       bool            `json:"skipped"`
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Result is one of ok, skipped, fetch_error, decode_error or write_error.
func (o Outcome) Result() string {
	switch {
	case o.Err != nil:
		return string(o.Stage) + "_error"
	case o.Skipped:
		return "skipped"
	default:
		return "ok"
	}
}

// Attributes flattens the outcome into string fields for filtering and
// serialization.
func (o Outcome) Attributes() map[string]string {
	attrs := map[string]string{
		"run_id":         o.RunID,
		"feed_kind":      string(o.Kind),
		"start":          o.Start.UTC().Format(time.RFC3339Nano),
		"duration_ms":    strconv.FormatInt(o.Duration.Milliseconds(), 10),
		"feed_timestamp": strconv.FormatUint(o.FeedTimestamp, 10),
		"records":        strconv.Itoa(o.Records),
		"result":         o.Result(),
		"skipped":        strconv.FormatBool(o.Skipped),
	}
	if o.Key != "" {
		attrs["key"] = o.Key
	}
	if o.Err != nil {
		attrs["stage"] = string(o.Stage)
		attrs["error"] = o.Err.Error()
	}
	return attrs
}
