/*
 * snapshot.go, part of gridfep.
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

//Package snapshot extracts one structural frame from a stripped per-gen
//trajectory, aligns it to a fixed reference on stable landmark atoms,
//and slices it into its chemically meaningful subsets: protein, old
//ligand, new ligand and the two complexes.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"

	fep "github.com/gridfep/gridfep"
	"github.com/gridfep/gridfep/hybrid"
	"github.com/gridfep/gridfep/result"
	"github.com/gridfep/gridfep/traj/dcd"
	"github.com/gridfep/gridfep/vec"
)

//Load reads the hybrid topology in topPath (a PDB) and all frames of
//the stripped trajectory in trajPath (a DCD) into one multi-frame
//molecule. The stored trajectory elides solvent, so the topology is
//reduced to its non-solvent atoms, which must then match the trajectory
//atom count exactly.
func Load(topPath, trajPath string) (*fep.Molecule, error) {
	full, err := fep.PDBFileRead(topPath)
	if err != nil {
		return nil, fep.DecorateError(err, "Load")
	}
	top, err := full.SomeAtoms(fep.SelectNotWater(full))
	if err != nil {
		return nil, fep.NewValidationError(err.Error(), topPath, "Load")
	}
	traj, err := dcd.New(trajPath)
	if err != nil {
		return nil, fep.DecorateError(err, "Load")
	}
	defer traj.Close()
	if traj.Len() != top.Len() {
		return nil, fep.NewValidationError(
			fmt.Sprintf("trajectory has %d atoms per frame, stripped topology has %d", traj.Len(), top.Len()), trajPath, "Load")
	}
	frames, err := fep.CollectFrames(traj)
	if err != nil {
		return nil, fep.NewValidationError(err.Error(), trajPath, "Load")
	}
	return fep.NewMolecule(top, frames)
}

//LoadReference reads the single-frame reference structure used for
//landmark alignment.
func LoadReference(path string) (*fep.Molecule, error) {
	ref, err := fep.PDBFileRead(path)
	if err != nil {
		return nil, fep.DecorateError(err, "LoadReference")
	}
	if ref.LenFrames() == 0 {
		return nil, fep.NewValidationError("reference has no coordinates", path, "LoadReference")
	}
	return ref, nil
}

//FrameIndex normalizes a frame choice against a trajectory of n frames.
//Negative values count from the end (-1 is the last frame).
func FrameIndex(n, frame int) (int, error) {
	idx := frame
	if idx < 0 {
		idx = n + idx
	}
	if idx < 0 || idx >= n {
		return 0, fmt.Errorf("frame %d requested, but trajectory has %d frames", frame, n)
	}
	return idx, nil
}

//Align superposes the coordinates coord of the molecule mol onto the
//reference, using only the protein backbone alpha-carbons shared by
//both as landmarks. It returns a new coordinate set; neither input is
//modified. An empty landmark selection, or differing landmark counts
//between molecule and reference, is a validation error.
func Align(coord *vec.Matrix, mol fep.Atomer, ref *fep.Molecule) (*vec.Matrix, error) {
	molCAs := fep.SelectAlphaCarbons(mol)
	refCAs := fep.SelectAlphaCarbons(ref)
	if len(molCAs) == 0 || len(refCAs) == 0 {
		return nil, fep.NewValidationError("empty landmark (alpha-carbon) selection", "align", "Align")
	}
	if len(molCAs) != len(refCAs) {
		return nil, fep.NewValidationError(
			fmt.Sprintf("landmark selection mismatch: %d alpha-carbons in snapshot, %d in reference", len(molCAs), len(refCAs)), "align", "Align")
	}
	aligned, err := fep.Super(coord, ref.Frame(0), molCAs, refCAs)
	if err != nil {
		return nil, fep.DecorateError(err, "Align")
	}
	return aligned, nil
}

//Sliced maps subset names to independent single-frame molecules. The
//five subsets may overlap (the complexes contain the protein), but each
//one is a fully copied structure: mutating one never affects another.
type Sliced map[string]*fep.Molecule

//Slice cuts the coordinates coord of the molecule mol into the five
//subsets given by the index map. Each subset preserves the original
//per-atom ordering (the index sets are already ascending) and its atom
//count equals the length of the corresponding index set.
func Slice(coord *vec.Matrix, mol *fep.Topology, m *hybrid.IndexMap) (Sliced, error) {
	out := make(Sliced, len(hybrid.SubsetNames))
	for name, indices := range m.Subsets() {
		if len(indices) == 0 {
			return nil, fep.NewValidationError(fmt.Sprintf("empty index set for subset %q", name), name, "Slice")
		}
		top, err := mol.SomeAtoms(indices)
		if err != nil {
			return nil, fep.NewValidationError(err.Error(), name, "Slice")
		}
		sub := vec.Zeros(len(indices))
		if err := sub.SomeVecsSafe(coord, indices); err != nil {
			return nil, fep.NewValidationError(err.Error(), name, "Slice")
		}
		sliced, err := fep.NewMolecule(top, []*vec.Matrix{sub})
		if err != nil {
			return nil, fep.DecorateError(err, "Slice")
		}
		out[name] = sliced
	}
	return out, nil
}

//Write saves every subset as an independent PDB file named
//{prefix}-{subset}.pdb under dir, and returns the written paths keyed
//by subset name.
func (S Sliced) Write(dir, prefix string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(S))
	for _, name := range hybrid.SubsetNames {
		mol, ok := S[name]
		if !ok {
			return nil, fmt.Errorf("Write: missing subset %q", name)
		}
		p := filepath.Join(dir, fmt.Sprintf("%s-%s.pdb", prefix, name))
		if err := fep.PDBFileWrite(p, mol.Frame(0), mol); err != nil {
			return nil, err
		}
		paths[name] = p
	}
	return paths, nil
}

//Options are the knobs of representative-snapshot extraction.
type Options struct {
	Frame     int    //frame of the trajectory to extract, negative counts from the end
	Reference string //path to the reference structure for landmark alignment
}

//DefaultOptions extracts the last frame.
func DefaultOptions(reference string) *Options {
	return &Options{Frame: -1, Reference: reference}
}

//Extract loads the trajectory of the unit identified by path, picks the
//chosen frame, aligns it to the reference and slices it with the index
//map resolved for the run by resolve. It is the whole snapshot half of
//the pipeline for one unit.
func Extract(layout *result.Layout, path result.Path, resolve hybrid.ResolveFunc, o *Options) (Sliced, error) {
	trajPath, err := layout.Trajectory(path.Run, path.Clone, path.Gen)
	if err != nil {
		return nil, fep.NewValidationError(err.Error(), path.String(), "Extract")
	}
	runDir := layout.RunDir(path.Run)
	mol, err := Load(filepath.Join(runDir, hybrid.TopologyFileName), trajPath)
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	idx, err := FrameIndex(mol.LenFrames(), o.Frame)
	if err != nil {
		return nil, fep.NewValidationError(err.Error(), path.String(), "Extract")
	}
	ref, err := LoadReference(o.Reference)
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	aligned, err := Align(mol.Frame(idx), mol, ref)
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	m, err := resolve(runDir)
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	return Slice(aligned, mol.Topology, m)
}
