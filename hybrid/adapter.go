/*
 * adapter.go, part of gridfep.
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

package hybrid

import (
	"encoding/json"
	"os"
	"path/filepath"

	fep "github.com/gridfep/gridfep"
)

//Concrete per-run description files, relative to the run setup directory.
const (
	TopologyFileName = "hybrid_complex.pdb"
	MapsFileName     = "hybrid_maps.json"
)

//LigandResname is the residue name of the hybrid ligand in the topology.
const LigandResname = "MOL"

//fileDescription adapts the on-disk description of a run (a PDB hybrid
//topology plus a JSON sidecar with the state maps) to the Description
//interface.
type fileDescription struct {
	nonSolvent  []int
	protein     []int
	ligand      []int
	oldToHybrid map[int]int
	newToHybrid map[int]int
}

func (d *fileDescription) NonSolvent() []int { return d.nonSolvent }
func (d *fileDescription) Protein() []int { return d.protein }
func (d *fileDescription) Ligand() []int { return d.ligand }
func (d *fileDescription) OldToHybrid() map[int]int { return d.oldToHybrid }
func (d *fileDescription) NewToHybrid() map[int]int { return d.newToHybrid }

//mapsFile is the JSON shape of the state-map sidecar: the i-th entry of
//each array is the hybrid index of old/new-state atom i.
type mapsFile struct {
	OldToHybrid []int `json:"old_to_hybrid"`
	NewToHybrid []int `json:"new_to_hybrid"`
}

//toMap converts a state-map array to an identity-to-index mapping.
func toMap(arr []int) map[int]int {
	m := make(map[int]int, len(arr))
	for i, h := range arr {
		m[i] = h
	}
	return m
}

//LoadDescription loads the hybrid-topology description of the run whose
//setup files live in runDir. A missing or unreadable file is a
//validation error carrying the run directory.
func LoadDescription(runDir string) (Description, error) {
	topPath := filepath.Join(runDir, TopologyFileName)
	mol, err := fep.PDBFileRead(topPath)
	if err != nil {
		return nil, fep.DecorateError(err, "LoadDescription")
	}
	raw, err := os.ReadFile(filepath.Join(runDir, MapsFileName))
	if err != nil {
		return nil, fep.NewValidationError(err.Error(), runDir, "LoadDescription")
	}
	var mf mapsFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return nil, fep.NewValidationError("bad state maps: "+err.Error(), runDir, "LoadDescription")
	}
	if len(mf.OldToHybrid) == 0 || len(mf.NewToHybrid) == 0 {
		return nil, fep.NewValidationError("state maps missing old_to_hybrid or new_to_hybrid", runDir, "LoadDescription")
	}
	d := new(fileDescription)
	d.nonSolvent = fep.SelectNotWater(mol)
	d.protein = fep.SelectProtein(mol)
	d.ligand = fep.SelectResname(mol, LigandResname)
	d.oldToHybrid = toMap(mf.OldToHybrid)
	d.newToHybrid = toMap(mf.NewToHybrid)
	return d, nil
}

//ResolveRun loads the description of the run in runDir and resolves its
//index map. This is the uncached ResolveFunc; wrap it with the cache
//package to memoize the expensive description load.
func ResolveRun(runDir string) (*IndexMap, error) {
	d, err := LoadDescription(runDir)
	if err != nil {
		return nil, fep.DecorateError(err, "ResolveRun")
	}
	return Resolve(d, runDir)
}
