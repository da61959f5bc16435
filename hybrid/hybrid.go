/*
 * hybrid.go, part of gridfep.
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

//Package hybrid resolves atom indices between the hybrid-topology
//representation of a run and the stripped (solvent-free) trajectory
//actually stored on disk. The upstream writer elides solvent atoms
//entirely, so the position of a hybrid atom in the ascending list of
//non-solvent hybrid indices is its index in the stored trajectory.
package hybrid

import (
	"fmt"
	"sort"

	fep "github.com/gridfep/gridfep"
)

//Names of the five structural subsets produced by slicing.
const (
	SubsetProtein    = "protein"
	SubsetOldLigand  = "old_ligand"
	SubsetNewLigand  = "new_ligand"
	SubsetOldComplex = "old_complex"
	SubsetNewComplex = "new_complex"
)

//SubsetNames lists the five subset names in their canonical order.
var SubsetNames = []string{SubsetProtein, SubsetOldLigand, SubsetNewLigand, SubsetOldComplex, SubsetNewComplex}

//Description is the narrow capability interface over a run's
//hybrid-topology description. It isolates the resolver from the concrete
//serialized format: any adapter that can answer these five queries works.
type Description interface {

	//NonSolvent returns the hybrid indices of all non-solvent atoms,
	//in ascending order.
	NonSolvent() []int

	//Protein returns the hybrid indices of the protein atoms, in
	//ascending order.
	Protein() []int

	//Ligand returns the hybrid indices of all atoms in the hybrid
	//ligand (shared scaffold plus both endpoint states), in ascending
	//order.
	Ligand() []int

	//OldToHybrid maps old-state ligand atom identities to hybrid
	//indices.
	OldToHybrid() map[int]int

	//NewToHybrid maps new-state ligand atom identities to hybrid
	//indices.
	NewToHybrid() map[int]int
}

//IndexMap holds, for one run, the stored-trajectory indices of each of
//the five structural subsets. The protein set is disjoint from both
//ligand sets (the two ligand states may share their scaffold atoms); the
//complex sets are the index-sorted union of the protein with one ligand.
type IndexMap struct {
	Protein    []int `json:"protein"`
	OldLigand  []int `json:"old_ligand"`
	NewLigand  []int `json:"new_ligand"`
	OldComplex []int `json:"old_complex"`
	NewComplex []int `json:"new_complex"`
}

//Subsets returns the five index sets keyed by subset name.
func (m *IndexMap) Subsets() map[string][]int {
	return map[string][]int{
		SubsetProtein:    m.Protein,
		SubsetOldLigand:  m.OldLigand,
		SubsetNewLigand:  m.NewLigand,
		SubsetOldComplex: m.OldComplex,
		SubsetNewComplex: m.NewComplex,
	}
}

//ResolveFunc computes the index map for the run whose setup files live
//in runDir. The disk-cache decorator in the cache package wraps this
//signature.
type ResolveFunc func(runDir string) (*IndexMap, error)

//project maps a set of hybrid indices to stored-trajectory indices,
//returning them in ascending order.
func project(hybridToStored map[int]int, indices []int, what, id string) ([]int, error) {
	out := make([]int, 0, len(indices))
	for _, h := range indices {
		s, ok := hybridToStored[h]
		if !ok {
			return nil, fep.NewValidationError(
				fmt.Sprintf("%s atom with hybrid index %d is not among the stored (non-solvent) atoms", what, h), id, "project")
		}
		out = append(out, s)
	}
	sort.Ints(out)
	return out, nil
}

//valueSet returns the set of values of m.
func valueSet(m map[int]int) map[int]bool {
	s := make(map[int]bool, len(m))
	for _, v := range m {
		s[v] = true
	}
	return s
}

//Resolve computes the stored-trajectory index sets of the five
//structural subsets from a hybrid-topology description. id tags errors
//with the run identity. The computation is pure; use the cache package
//to memoize it on disk.
func Resolve(d Description, id string) (*IndexMap, error) {
	nonSolvent := d.NonSolvent()
	if len(nonSolvent) == 0 {
		return nil, fep.NewValidationError("no non-solvent atoms in hybrid topology", id, "Resolve")
	}
	//The stored trajectory contains exactly the non-solvent atoms, in
	//hybrid order: the position in this list is the stored index.
	hybridToStored := make(map[int]int, len(nonSolvent))
	for stored, h := range nonSolvent {
		hybridToStored[h] = stored
	}
	oldSet := valueSet(d.OldToHybrid())
	newSet := valueSet(d.NewToHybrid())
	ligand := d.Ligand()
	oldLigand := make([]int, 0, len(ligand))
	newLigand := make([]int, 0, len(ligand))
	for _, h := range ligand {
		if oldSet[h] {
			oldLigand = append(oldLigand, h)
		}
		if newSet[h] {
			newLigand = append(newLigand, h)
		}
	}
	if len(oldLigand) == 0 {
		return nil, fep.NewValidationError("old-state ligand projection is empty", id, "Resolve")
	}
	if len(newLigand) == 0 {
		return nil, fep.NewValidationError("new-state ligand projection is empty", id, "Resolve")
	}
	protein := d.Protein()
	if len(protein) == 0 {
		return nil, fep.NewValidationError("protein atom set is empty", id, "Resolve")
	}
	m := new(IndexMap)
	var err error
	if m.Protein, err = project(hybridToStored, protein, "protein", id); err != nil {
		return nil, fep.DecorateError(err, "Resolve")
	}
	if m.OldLigand, err = project(hybridToStored, oldLigand, "old-ligand", id); err != nil {
		return nil, fep.DecorateError(err, "Resolve")
	}
	if m.NewLigand, err = project(hybridToStored, newLigand, "new-ligand", id); err != nil {
		return nil, fep.DecorateError(err, "Resolve")
	}
	if m.OldComplex, err = project(hybridToStored, append(append([]int{}, protein...), oldLigand...), "old-complex", id); err != nil {
		return nil, fep.DecorateError(err, "Resolve")
	}
	if m.NewComplex, err = project(hybridToStored, append(append([]int{}, protein...), newLigand...), "new-complex", id); err != nil {
		return nil, fep.DecorateError(err, "Resolve")
	}
	return m, nil
}
