package main

import (
	"io"
	"sort"

	"golang.org/x/exp/slices"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gonum.org/v1/gonum/stat"

	"sparkrt/kernel"
)

// row is one thread line of a report.
type row struct {
	kernel.ThreadInfo
	Share float64
}

// summary aggregates the non-idle threads of a run.
type summary struct {
	Rows []row

	ShareMean, ShareStdDev float64
	SchedMean              float64
	IdleShare              float64
}

func summarize(r *result) summary {
	var total uint64
	for _, t := range r.Threads {
		total += t.RuntimeTicks
	}

	var sum summary
	var shares, scheds []float64
	for _, t := range r.Threads {
		rw := row{ThreadInfo: t}
		if total > 0 {
			rw.Share = float64(t.RuntimeTicks) / float64(total)
		}
		sum.Rows = append(sum.Rows, rw)
		if t.Priority == r.IdlePrio {
			sum.IdleShare += rw.Share
			continue
		}
		shares = append(shares, rw.Share)
		scheds = append(scheds, float64(t.Schedules))
	}
	if len(shares) > 0 {
		sum.ShareMean, sum.ShareStdDev = stat.MeanStdDev(shares, nil)
		sum.SchedMean = stat.Mean(scheds, nil)
	}

	// Busiest first, pid order among equals.
	slices.SortFunc(sum.Rows, func(a, b row) bool {
		if a.RuntimeTicks != b.RuntimeTicks {
			return a.RuntimeTicks > b.RuntimeTicks
		}
		return a.PID < b.PID
	})
	return sum
}

func writeReport(w io.Writer, r *result, sum summary) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "scenario %s: %d us of virtual time\n", r.Scenario, r.Duration)
	p.Fprintf(w, "%3s %-10s %4s %-14s %12s %10s %7s\n", "pid", "name", "prio", "state", "runtime_us", "schedules", "cpu")
	for _, rw := range sum.Rows {
		p.Fprintf(w, "%3d %-10s %4d %-14s %12d %10d %6.1f%%\n",
			rw.PID, rw.Name, rw.Priority, rw.Status, rw.RuntimeTicks, rw.Schedules, 100*rw.Share)
	}
	p.Fprintf(w, "cpu share: mean %.3f, stddev %.3f, idle %.3f\n", sum.ShareMean, sum.ShareStdDev, sum.IdleShare)
	p.Fprintf(w, "schedules: mean %.1f\n", sum.SchedMean)

	names := make([]string, 0, len(r.Counters))
	for name := range r.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.Fprintf(w, "counter %-12s %d\n", name, r.Counters[name])
	}
}
