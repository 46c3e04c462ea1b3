package main

import (
	"io"

	"github.com/google/pprof/profile"
)

// buildProfile turns the per-thread runtime of r into a CPU profile with one
// single-frame sample per thread, viewable with "go tool pprof".
func buildProfile(r *result) (*profile.Profile, error) {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "cpu", Unit: "microseconds"},
			{Type: "schedules", Unit: "count"},
		},
		PeriodType:    &profile.ValueType{Type: "cpu", Unit: "microseconds"},
		Period:        1,
		DurationNanos: int64(r.Duration) * 1000,
		Comments:      []string{"schedsim scenario " + r.Scenario},
	}
	for i, t := range r.Threads {
		id := uint64(i + 1)
		fn := &profile.Function{
			ID:         id,
			Name:       "thread." + t.Name,
			SystemName: t.Name,
			Filename:   r.Scenario,
		}
		loc := &profile.Location{
			ID:   id,
			Line: []profile.Line{{Function: fn}},
		}
		p.Function = append(p.Function, fn)
		p.Location = append(p.Location, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{int64(t.RuntimeTicks), int64(t.Schedules)},
			Label:    map[string][]string{"status": {t.Status.String()}},
			NumLabel: map[string][]int64{
				"pid":      {int64(t.PID)},
				"priority": {int64(t.Priority)},
			},
		})
	}
	if err := p.CheckValid(); err != nil {
		return nil, err
	}
	return p, nil
}

func writeProfile(w io.Writer, r *result) error {
	p, err := buildProfile(r)
	if err != nil {
		return err
	}
	return p.Write(w)
}
