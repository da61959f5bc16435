/*
 * path.go, part of gridfep.
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

//Package result identifies simulation output units on the grid
//filesystem. One unit of distributed work is a (run, clone, gen) triple:
//a run is repeated across clones, and each clone advances through
//sequential gens.
package result

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

//Path is the identity of one simulation output unit: its (run, clone,
//gen) triple plus the filesystem path to its record table. The triple
//uniquely identifies one table.
type Path struct {
	Run   int    `json:"run"`
	Clone int    `json:"clone"`
	Gen   int    `json:"gen"`
	Path  string `json:"path"`
}

//String returns the RUN/CLONE/GEN identity of the unit.
func (p Path) String() string {
	return fmt.Sprintf("RUN%d/CLONE%d/results%d", p.Run, p.Clone, p.Gen)
}

//Layout knows where a project keeps its files: ProjectDir holds the
//per-run setup files (under RUNS/RUN{r}/), DataDir holds the per-unit
//output written by the grid (under RUN{r}/CLONE{c}/results{g}/).
type Layout struct {
	ProjectDir string `json:"project_dir"`
	DataDir    string `json:"data_dir"`
}

//RunDir returns the project setup directory of the given run, which
//holds the hybrid topology description used for atom index resolution.
func (L *Layout) RunDir(run int) string {
	return filepath.Join(L.ProjectDir, "RUNS", fmt.Sprintf("RUN%d", run))
}

//UnitDir returns the output directory of one (run, clone, gen) unit.
func (L *Layout) UnitDir(run, clone, gen int) string {
	return filepath.Join(L.DataDir, fmt.Sprintf("RUN%d", run), fmt.Sprintf("CLONE%d", clone), fmt.Sprintf("results%d", gen))
}

//Globals returns the path to the record table (globals.csv) of one unit.
func (L *Layout) Globals(run, clone, gen int) string {
	return filepath.Join(L.UnitDir(run, clone, gen), "globals.csv")
}

//Trajectory returns the path to the stripped trajectory of one unit,
//trying the plain name first and then the compressed variants. It
//returns an error if none exists.
func (L *Layout) Trajectory(run, clone, gen int) (string, error) {
	dir := L.UnitDir(run, clone, gen)
	for _, name := range []string{"positions.dcd", "positions.dcd.zst", "positions.dcd.gz"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no trajectory found in %s", dir)
}

var cloneRe = regexp.MustCompile(`^CLONE(\d+)$`)
var resultsRe = regexp.MustCompile(`^results(\d+)$`)

//Discover walks the data directory of the given run and returns a Path
//for every (clone, gen) unit whose record table exists, ordered by
//clone and then by gen as found on disk.
func (L *Layout) Discover(run int) ([]Path, error) {
	rundir := filepath.Join(L.DataDir, fmt.Sprintf("RUN%d", run))
	clones, err := os.ReadDir(rundir)
	if err != nil {
		return nil, fmt.Errorf("discover run %d: %w", run, err)
	}
	paths := make([]Path, 0, len(clones))
	for _, cdir := range clones {
		cm := cloneRe.FindStringSubmatch(cdir.Name())
		if !cdir.IsDir() || cm == nil {
			continue
		}
		clone, _ := strconv.Atoi(cm[1])
		gens, err := os.ReadDir(filepath.Join(rundir, cdir.Name()))
		if err != nil {
			return nil, fmt.Errorf("discover run %d clone %d: %w", run, clone, err)
		}
		for _, gdir := range gens {
			gm := resultsRe.FindStringSubmatch(gdir.Name())
			if !gdir.IsDir() || gm == nil {
				continue
			}
			gen, _ := strconv.Atoi(gm[1])
			globals := L.Globals(run, clone, gen)
			if _, err := os.Stat(globals); err != nil {
				continue
			}
			paths = append(paths, Path{Run: run, Clone: clone, Gen: gen, Path: globals})
		}
	}
	return paths, nil
}
