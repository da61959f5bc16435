/*
 * hybrid_test.go, part of gridfep.
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
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	fep "github.com/gridfep/gridfep"
)

//memDescription is an in-memory Description for testing the resolver
//without touching the filesystem.
type memDescription struct {
	nonSolvent, protein, ligand []int
	oldToHybrid, newToHybrid    map[int]int
}

func (d *memDescription) NonSolvent() []int        { return d.nonSolvent }
func (d *memDescription) Protein() []int           { return d.protein }
func (d *memDescription) Ligand() []int            { return d.ligand }
func (d *memDescription) OldToHybrid() map[int]int { return d.oldToHybrid }
func (d *memDescription) NewToHybrid() map[int]int { return d.newToHybrid }

//sampleDescription builds a system with three protein atoms (hybrid
//0-2), one solvent atom (hybrid 3, not stored) and a four-atom hybrid
//ligand (hybrid 4-7) where 4 is the shared scaffold, 5 is old-only and
//6,7 are new-only.
func sampleDescription() *memDescription {
	return &memDescription{
		nonSolvent:  []int{0, 1, 2, 4, 5, 6, 7},
		protein:     []int{0, 1, 2},
		ligand:      []int{4, 5, 6, 7},
		oldToHybrid: map[int]int{0: 4, 1: 5},
		newToHybrid: map[int]int{0: 4, 1: 6, 2: 7},
	}
}

func TestResolve(Te *testing.T) {
	m, err := Resolve(sampleDescription(), "RUN0")
	if err != nil {
		Te.Fatal(err)
	}
	//the solvent atom at hybrid index 3 shifts every later index down
	for name, want := range map[string][]int{
		SubsetProtein:    {0, 1, 2},
		SubsetOldLigand:  {3, 4},
		SubsetNewLigand:  {3, 5, 6},
		SubsetOldComplex: {0, 1, 2, 3, 4},
		SubsetNewComplex: {0, 1, 2, 3, 5, 6},
	} {
		if got := m.Subsets()[name]; !reflect.DeepEqual(got, want) {
			Te.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
}

func TestResolveInvariants(Te *testing.T) {
	m, err := Resolve(sampleDescription(), "RUN0")
	if err != nil {
		Te.Fatal(err)
	}
	for name, set := range m.Subsets() {
		if !sort.IntsAreSorted(set) {
			Te.Errorf("%s is not ascending: %v", name, set)
		}
	}
	//the protein never overlaps either ligand state
	inProt := make(map[int]bool)
	for _, i := range m.Protein {
		inProt[i] = true
	}
	for _, i := range append(append([]int{}, m.OldLigand...), m.NewLigand...) {
		if inProt[i] {
			Te.Errorf("index %d is in both the protein and a ligand", i)
		}
	}
	if len(m.OldComplex) != len(m.Protein)+len(m.OldLigand) {
		Te.Errorf("old complex is not the union of protein and old ligand: %v", m.OldComplex)
	}
	if len(m.NewComplex) != len(m.Protein)+len(m.NewLigand) {
		Te.Errorf("new complex is not the union of protein and new ligand: %v", m.NewComplex)
	}
}

func TestResolveErrors(Te *testing.T) {
	//an empty old-state projection
	d := sampleDescription()
	d.oldToHybrid = map[int]int{0: 99} //no overlap with the ligand
	_, err := Resolve(d, "RUN0")
	if err == nil || !fep.IsValidation(err) {
		Te.Errorf("expected a validation error for an empty old projection, got %v", err)
	}
	//a protein atom missing from the stored set
	d = sampleDescription()
	d.protein = []int{0, 1, 3}
	_, err = Resolve(d, "RUN0")
	if err == nil || !fep.IsValidation(err) {
		Te.Errorf("expected a validation error for an unstored protein atom, got %v", err)
	}
	//no non-solvent atoms at all
	d = sampleDescription()
	d.nonSolvent = nil
	if _, err := Resolve(d, "RUN0"); err == nil {
		Te.Error("expected an error for an empty non-solvent set")
	}
}

const sampleHybridPDB = `ATOM      1  N   ALA A   1      11.104   6.134  -6.504  1.00  0.00           N
ATOM      2  CA  ALA A   1      11.639   6.071  -5.147  1.00  0.00           C
ATOM      3  C   ALA A   1      10.707   6.059  -3.930  1.00  0.00           C
HETATM    4  O   HOH C   2       0.000   0.000   0.000  1.00  0.00           O
HETATM    5  C1  MOL B   3       2.000   3.000   4.000  1.00  0.00           C
HETATM    6  C2  MOL B   3       2.500   3.000   4.000  1.00  0.00           C
END
`

const sampleMapsJSON = `{"old_to_hybrid": [4], "new_to_hybrid": [4, 5]}`

func writeRunDir(Te *testing.T) string {
	dir := Te.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TopologyFileName), []byte(sampleHybridPDB), 0o644); err != nil {
		Te.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, MapsFileName), []byte(sampleMapsJSON), 0o644); err != nil {
		Te.Fatal(err)
	}
	return dir
}

func TestResolveRun(Te *testing.T) {
	dir := writeRunDir(Te)
	m, err := ResolveRun(dir)
	if err != nil {
		Te.Fatal(err)
	}
	//hybrid index 3 is water, so ligand hybrid 4,5 store as 3,4
	if !reflect.DeepEqual(m.Protein, []int{0, 1, 2}) {
		Te.Errorf("wrong protein set: %v", m.Protein)
	}
	if !reflect.DeepEqual(m.OldLigand, []int{3}) {
		Te.Errorf("wrong old ligand: %v", m.OldLigand)
	}
	if !reflect.DeepEqual(m.NewLigand, []int{3, 4}) {
		Te.Errorf("wrong new ligand: %v", m.NewLigand)
	}
	if !reflect.DeepEqual(m.NewComplex, []int{0, 1, 2, 3, 4}) {
		Te.Errorf("wrong new complex: %v", m.NewComplex)
	}
}

func TestLoadDescriptionMissing(Te *testing.T) {
	dir := Te.TempDir()
	if _, err := LoadDescription(dir); err == nil {
		Te.Error("expected an error for a run directory with no topology")
	}
	//topology present, maps missing
	if err := os.WriteFile(filepath.Join(dir, TopologyFileName), []byte(sampleHybridPDB), 0o644); err != nil {
		Te.Fatal(err)
	}
	if _, err := LoadDescription(dir); err == nil {
		Te.Error("expected an error for missing state maps")
	}
}
