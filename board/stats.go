// CLAUDE:SUMMARY Usage statistics over the stroke log: counts by tool and by hour of day, oldest/newest timestamps.
package board

import "time"

// Stats aggregates the current log for the stats endpoint.
type Stats struct {
	Strokes  int            `json:"strokes"`
	ByTool   map[string]int `json:"byTool"`
	ByHour   [24]int        `json:"byHour"`
	OldestTS int64          `json:"oldestTs"`
	NewestTS int64          `json:"newestTs"`
}

func computeStats(list []Stroke) Stats {
	st := Stats{
		Strokes: len(list),
		ByTool:  make(map[string]int),
	}
	for _, s := range list {
		tool := s.Tool
		if tool == "" {
			tool = s.Kind
		}
		st.ByTool[tool]++
		st.ByHour[time.UnixMilli(s.TS).Hour()]++
	}
	if len(list) > 0 {
		st.OldestTS = list[0].TS
		st.NewestTS = list[len(list)-1].TS
	}
	return st
}
