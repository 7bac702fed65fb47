package async

import (
	"maps"
	"sync"
	"time"

	"github.com/joseph-ayodele/estate-archive/constants"
)

// Stats summarizes a batch run.
type Stats struct {
	BatchID    string         `json:"batch_id"`
	Submitted  int            `json:"submitted"`
	Processed  int            `json:"processed"`
	Accepted   int            `json:"accepted"`
	Review     int            `json:"review"`
	Failed     int            `json:"failed"`
	SinkErrors int            `json:"sink_errors"`
	ByType     map[string]int `json:"by_type"`
	ByMatch    map[string]int `json:"by_match"`
	ByReason   map[string]int `json:"by_reason"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

type statsCollector struct {
	mu sync.Mutex
	s  Stats
}

func newStatsCollector(batchID string) *statsCollector {
	return &statsCollector{s: Stats{
		BatchID:   batchID,
		ByType:    map[string]int{},
		ByMatch:   map[string]int{},
		ByReason:  map[string]int{},
		StartedAt: time.Now().UTC(),
	}}
}

func (c *statsCollector) submitted() {
	c.mu.Lock()
	c.s.Submitted++
	c.mu.Unlock()
}

func (c *statsCollector) record(out Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.Processed++
	if out.SinkErr != nil {
		c.s.SinkErrors++
	}
	if out.Err != nil || out.Result == nil {
		c.s.Failed++
		return
	}
	res := out.Result
	c.s.ByType[string(res.DocumentType)]++
	c.s.ByMatch[string(res.MatchResult.Status)]++
	if res.NeedsManualReview {
		c.s.Review++
		c.s.ByReason[string(res.ReviewReason)]++
	} else {
		c.s.Accepted++
	}
}

func (c *statsCollector) finish() {
	c.mu.Lock()
	if c.s.FinishedAt.IsZero() {
		c.s.FinishedAt = time.Now().UTC()
	}
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.s
	out.ByType = maps.Clone(c.s.ByType)
	out.ByMatch = maps.Clone(c.s.ByMatch)
	out.ByReason = maps.Clone(c.s.ByReason)
	return out
}

// Matched is the number of documents whose match status was Matched.
func (s Stats) Matched() int { return s.ByMatch[string(constants.MatchStatusMatched)] }
