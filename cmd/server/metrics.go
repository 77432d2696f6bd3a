package main

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"redstonemusic.ai/internal/sim/engine"
)

// generationCounters is an engine.Recorder that feeds /metrics.
type generationCounters struct {
	total      atomic.Uint64
	failed     atomic.Uint64
	noteBlocks atomic.Uint64
	bytes      atomic.Uint64
	byStrategy [3]atomic.Uint64
}

var strategyNames = [3]string{"library", "handrolled", "raw"}

func (c *generationCounters) RecordGeneration(r engine.Result) error {
	c.total.Add(1)
	if !r.Success {
		c.failed.Add(1)
		return nil
	}
	c.noteBlocks.Add(uint64(r.NoteBlocksCount))
	c.bytes.Add(uint64(r.FileSizeBytes))
	for i, name := range strategyNames {
		if r.Strategy == name {
			c.byStrategy[i].Add(1)
		}
	}
	return nil
}

func metricsHandler(c *generationCounters, idx runtimeIndex, busy func() bool) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP redstonemusic_generations_total Generation requests handled.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_generations_total counter\n")
		fmt.Fprintf(rw, "redstonemusic_generations_total %d\n", c.total.Load())
		fmt.Fprintf(rw, "# HELP redstonemusic_generations_failed_total Generations that produced no artifact.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_generations_failed_total counter\n")
		fmt.Fprintf(rw, "redstonemusic_generations_failed_total %d\n", c.failed.Load())
		fmt.Fprintf(rw, "# HELP redstonemusic_strategy_total Successful writes per serialization strategy.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_strategy_total counter\n")
		for i, name := range strategyNames {
			fmt.Fprintf(rw, "redstonemusic_strategy_total{strategy=%q} %d\n", name, c.byStrategy[i].Load())
		}
		fmt.Fprintf(rw, "# HELP redstonemusic_note_blocks_total Note blocks placed across all artifacts.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_note_blocks_total counter\n")
		fmt.Fprintf(rw, "redstonemusic_note_blocks_total %d\n", c.noteBlocks.Load())
		fmt.Fprintf(rw, "# HELP redstonemusic_artifact_bytes_total Bytes written to verified artifacts.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_artifact_bytes_total counter\n")
		fmt.Fprintf(rw, "redstonemusic_artifact_bytes_total %d\n", c.bytes.Load())
		fmt.Fprintf(rw, "# HELP redstonemusic_busy Whether a generation is running.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_busy gauge\n")
		b := 0
		if busy != nil && busy() {
			b = 1
		}
		fmt.Fprintf(rw, "redstonemusic_busy %d\n", b)
		if idx == nil {
			return
		}
		s := idx.Stats()
		fmt.Fprintf(rw, "# HELP redstonemusic_index_queue_depth Current index writer queue depth.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "redstonemusic_index_queue_depth %d\n", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP redstonemusic_index_dropped_total Index rows dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE redstonemusic_index_dropped_total counter\n")
		fmt.Fprintf(rw, "redstonemusic_index_dropped_total %d\n", s.DropTotal)
	}
}
