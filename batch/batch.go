/*
 * batch.go, part of gridfep.
 *
 * Copyright 2024 The gridfep developers.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package batch runs the work-extraction and snapshot pipeline over every
//unit of a run, concurrently and with per-unit fault isolation: one
//corrupt unit never takes down its siblings.
package batch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/stat"

	fep "github.com/gridfep/gridfep"
	"github.com/gridfep/gridfep/cache"
	"github.com/gridfep/gridfep/hybrid"
	"github.com/gridfep/gridfep/result"
	"github.com/gridfep/gridfep/snapshot"
	"github.com/gridfep/gridfep/work"
)

//Options modulate a batch run.
type Options struct {
	cpus      int
	frame     int
	reference string
	cachedir  string
	outdir    string
	protocol  *work.Protocol
	logger    *slog.Logger
}

//DefaultOptions returns Options with the default values: one worker per
//CPU, the last frame of each trajectory, the standard non-equilibrium
//protocol, no on-disk index-map cache and no snapshot output (set a
//reference structure to enable it).
func DefaultOptions() *Options {
	ret := new(Options)
	ret.cpus = runtime.NumCPU()
	ret.frame = -1
	ret.protocol = work.DefaultProtocol()
	ret.logger = slog.Default()
	return ret
}

//Cpus returns the number of concurrent workers, and sets it, if a valid
//value is given.
func (r *Options) Cpus(cpus ...int) int {
	ret := r.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		r.cpus = cpus[0]
	}
	return ret
}

//Frame returns the trajectory frame to extract snapshots from (negative
//counts from the end), and sets it, if given.
func (r *Options) Frame(frame ...int) int {
	ret := r.frame
	if len(frame) > 0 {
		r.frame = frame[0]
	}
	return ret
}

//Reference returns the path to the reference structure for landmark
//alignment, and sets it, if given. An empty reference disables snapshot
//extraction.
func (r *Options) Reference(path ...string) string {
	ret := r.reference
	if len(path) > 0 {
		r.reference = path[0]
	}
	return ret
}

//CacheDir returns the directory for the on-disk index-map cache, and
//sets it, if given. Empty means no cache.
func (r *Options) CacheDir(dir ...string) string {
	ret := r.cachedir
	if len(dir) > 0 {
		r.cachedir = dir[0]
	}
	return ret
}

//OutDir returns the directory where snapshot PDBs and reports are
//written, and sets it, if given.
func (r *Options) OutDir(dir ...string) string {
	ret := r.outdir
	if len(dir) > 0 && dir[0] != "" {
		r.outdir = dir[0]
	}
	return ret
}

//Protocol returns the expected non-equilibrium switching protocol, and
//sets it, if given.
func (r *Options) Protocol(p ...*work.Protocol) *work.Protocol {
	ret := r.protocol
	if len(p) > 0 && p[0] != nil {
		r.protocol = p[0]
	}
	return ret
}

//Logger returns the structured logger used for progress reporting, and
//sets it, if given.
func (r *Options) Logger(l ...*slog.Logger) *slog.Logger {
	ret := r.logger
	if len(l) > 0 && l[0] != nil {
		r.logger = l[0]
	}
	return ret
}

//A UnitResult is the outcome of work extraction for one unit. Exactly
//one of Work and Err is meaningful.
type UnitResult struct {
	Path result.Path `json:"path"`
	Work *work.Work  `json:"work,omitempty"`
	Err  string      `json:"error,omitempty"`
}

//ExtractWorks extracts works from every given unit, using o.Cpus()
//concurrent workers. The returned slice has one entry per input path,
//in input order; failing units carry their error text instead of works.
func ExtractWorks(layout *result.Layout, paths []result.Path, o *Options) []UnitResult {
	out := make([]UnitResult, len(paths))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < o.Cpus(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p := paths[i]
				if p.Path == "" {
					p.Path = layout.Globals(p.Run, p.Clone, p.Gen)
				}
				out[i].Path = p
				wk, err := work.ExtractFile(p, o.Protocol())
				if err != nil {
					out[i].Err = err.Error()
					o.Logger().Warn("unit rejected", "unit", p.String(), "err", err.Error())
					continue
				}
				out[i].Work = wk
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

//A RunSummary aggregates every unit of one run: per-unit outcomes,
//batch statistics of the accepted works, the representative unit chosen
//by minimal reverse work, and the snapshot files written for it.
type RunSummary struct {
	Run            int               `json:"run"`
	NumUnits       int               `json:"num_units"`
	NumAccepted    int               `json:"num_accepted"`
	ForwardMean    float64           `json:"forward_mean"`
	ForwardStddev  float64           `json:"forward_stddev"`
	ReverseMean    float64           `json:"reverse_mean"`
	ReverseStddev  float64           `json:"reverse_stddev"`
	Representative *result.Path      `json:"representative,omitempty"`
	Snapshots      map[string]string `json:"snapshots,omitempty"`
	Units          []UnitResult      `json:"units"`
}

//ProcessRun discovers the units of a run, extracts and validates their
//works, summarizes the accepted ones, and, if a reference structure is
//set, slices and writes the snapshot of the representative unit.
func ProcessRun(layout *result.Layout, run int, o *Options) (*RunSummary, error) {
	paths, err := layout.Discover(run)
	if err != nil {
		return nil, fep.DecorateError(err, "ProcessRun")
	}
	if len(paths) == 0 {
		return nil, fep.NewInsufficientDataError("no units found", fmt.Sprintf("RUN%d", run), "ProcessRun")
	}
	o.Logger().Info("processing run", "run", run, "units", len(paths), "workers", o.Cpus())
	units := ExtractWorks(layout, paths, o)
	accepted := make([]*work.Work, 0, len(units))
	for _, u := range units {
		if u.Work != nil {
			accepted = append(accepted, u.Work)
		}
	}
	if len(accepted) == 0 {
		return nil, fep.NewInsufficientDataError(
			fmt.Sprintf("all %d units rejected", len(units)), fmt.Sprintf("RUN%d", run), "ProcessRun")
	}
	sum := &RunSummary{
		Run:         run,
		NumUnits:    len(units),
		NumAccepted: len(accepted),
		Units:       units,
	}
	fwd := make([]float64, len(accepted))
	rev := make([]float64, len(accepted))
	for i, w := range accepted {
		fwd[i] = w.ForwardWork
		rev[i] = w.ReverseWork
	}
	sum.ForwardMean = stat.Mean(fwd, nil)
	sum.ReverseMean = stat.Mean(rev, nil)
	if len(accepted) > 1 {
		sum.ForwardStddev = stat.StdDev(fwd, nil)
		sum.ReverseStddev = stat.StdDev(rev, nil)
	}
	rep, err := work.MinReverseWork(accepted)
	if err != nil {
		return nil, fep.DecorateError(err, "ProcessRun")
	}
	sum.Representative = &rep.Path
	o.Logger().Info("run summarized", "run", run, "accepted", len(accepted),
		"representative", rep.Path.String(), "reverse_work", rep.ReverseWork)
	if o.Reference() == "" {
		return sum, nil
	}
	resolve := hybrid.ResolveRun
	if dir := o.CacheDir(); dir != "" {
		resolve = cache.Memoized(dir, resolve)
	}
	so := snapshot.DefaultOptions(o.Reference())
	so.Frame = o.Frame()
	sliced, err := snapshot.Extract(layout, rep.Path, resolve, so)
	if err != nil {
		return nil, fep.DecorateError(err, "ProcessRun")
	}
	outdir := o.OutDir()
	if outdir == "" {
		outdir = "."
	}
	written, err := sliced.Write(outdir, fmt.Sprintf("RUN%d", run))
	if err != nil {
		return nil, err
	}
	sum.Snapshots = written
	o.Logger().Info("snapshots written", "run", run, "files", len(written))
	return sum, nil
}

//ProcessRuns processes several runs sequentially (units within each run
//are still handled concurrently). A run failing wholesale is reported
//and skipped, not fatal.
func ProcessRuns(layout *result.Layout, runs []int, o *Options) []*RunSummary {
	out := make([]*RunSummary, 0, len(runs))
	for _, run := range runs {
		sum, err := ProcessRun(layout, run, o)
		if err != nil {
			o.Logger().Error("run failed", "run", run, "err", err.Error())
			continue
		}
		out = append(out, sum)
	}
	return out
}

//WriteReport saves the summaries of a batch as indented JSON.
func WriteReport(path string, summaries []*RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	j, err := json.MarshalIndent(summaries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, j, 0o644)
}
