/*
 * snapshot_test.go, part of gridfep.
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

package snapshot

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	fep "github.com/gridfep/gridfep"
	"github.com/gridfep/gridfep/hybrid"
	"github.com/gridfep/gridfep/result"
	"github.com/gridfep/gridfep/traj/dcd"
	"github.com/gridfep/gridfep/vec"
)

//A hybrid topology with three protein alpha-carbons, one water molecule
//(elided from stored trajectories) and a two-atom hybrid ligand.
const hybridPDB = `ATOM      1  CA  ALA A   1       0.000   0.000   0.000  1.00  0.00           C
ATOM      2  CA  GLY A   2       1.500   0.000   0.000  1.00  0.00           C
ATOM      3  CA  LEU A   3       0.000   1.500   1.000  1.00  0.00           C
HETATM    4  O   HOH C   4       9.000   9.000   9.000  1.00  0.00           O
HETATM    5  C1  MOL B   5       3.000   3.000   3.000  1.00  0.00           C
HETATM    6  C2  MOL B   5       4.000   3.000   3.000  1.00  0.00           C
END
`

//The same protein alpha-carbons alone, in the pose every snapshot should
//be aligned to.
const referencePDB = `ATOM      1  CA  ALA A   1       0.000   0.000   0.000  1.00  0.00           C
ATOM      2  CA  GLY A   2       1.500   0.000   0.000  1.00  0.00           C
ATOM      3  CA  LEU A   3       0.000   1.500   1.000  1.00  0.00           C
END
`

const mapsJSON = `{"old_to_hybrid": [4], "new_to_hybrid": [4, 5]}`

//baseCoords are the stored (stripped) coordinates matching hybridPDB
//without its water.
func baseCoords() *vec.Matrix {
	m, _ := vec.NewMatrix([]float64{
		0, 0, 0,
		1.5, 0, 0,
		0, 1.5, 1,
		3, 3, 3,
		4, 3, 3,
	})
	return m
}

//writeDataset builds a one-run, one-unit dataset: the run setup files
//under project/RUNS/RUN0 and a three-frame stripped trajectory where
//frame f is the base pose translated by (f, f, f).
func writeDataset(Te *testing.T) *result.Layout {
	root := Te.TempDir()
	L := &result.Layout{
		ProjectDir: filepath.Join(root, "project"),
		DataDir:    filepath.Join(root, "data"),
	}
	runDir := L.RunDir(0)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		Te.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, hybrid.TopologyFileName), []byte(hybridPDB), 0o644); err != nil {
		Te.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, hybrid.MapsFileName), []byte(mapsJSON), 0o644); err != nil {
		Te.Fatal(err)
	}
	unitDir := L.UnitDir(0, 0, 0)
	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		Te.Fatal(err)
	}
	w, err := dcd.NewWriter(filepath.Join(unitDir, "positions.dcd"), 5)
	if err != nil {
		Te.Fatal(err)
	}
	for f := 0; f < 3; f++ {
		frame := vec.Zeros(5)
		base := baseCoords()
		for i := 0; i < 5; i++ {
			for j := 0; j < 3; j++ {
				frame.Set(i, j, base.At(i, j)+float64(f))
			}
		}
		if err := w.WNext(frame); err != nil {
			Te.Fatal(err)
		}
	}
	w.Close()
	return L
}

func TestLoad(Te *testing.T) {
	L := writeDataset(Te)
	mol, err := Load(filepath.Join(L.RunDir(0), hybrid.TopologyFileName), filepath.Join(L.UnitDir(0, 0, 0), "positions.dcd"))
	if err != nil {
		Te.Fatal(err)
	}
	//the water is stripped from the topology to match the trajectory
	if mol.Len() != 5 {
		Te.Fatalf("expected 5 stripped atoms, got %d", mol.Len())
	}
	if mol.LenFrames() != 3 {
		Te.Fatalf("expected 3 frames, got %d", mol.LenFrames())
	}
	if mol.Atom(3).Molname != "MOL" {
		Te.Errorf("stripping broke atom order: %+v", mol.Atom(3))
	}
	if math.Abs(mol.Frame(2).At(0, 0)-2) > 1e-4 {
		Te.Errorf("wrong last frame: %f", mol.Frame(2).At(0, 0))
	}
}

func TestFrameIndex(Te *testing.T) {
	for _, c := range []struct{ n, frame, want int }{
		{3, 0, 0}, {3, 2, 2}, {3, -1, 2}, {3, -3, 0},
	} {
		got, err := FrameIndex(c.n, c.frame)
		if err != nil || got != c.want {
			Te.Errorf("FrameIndex(%d,%d) = %d, %v; want %d", c.n, c.frame, got, err, c.want)
		}
	}
	if _, err := FrameIndex(3, 3); err == nil {
		Te.Error("expected an error for a frame past the end")
	}
	if _, err := FrameIndex(3, -4); err == nil {
		Te.Error("expected an error for a negative frame before the start")
	}
}

func TestAlign(Te *testing.T) {
	L := writeDataset(Te)
	refPath := filepath.Join(Te.TempDir(), "ref.pdb")
	if err := os.WriteFile(refPath, []byte(referencePDB), 0o644); err != nil {
		Te.Fatal(err)
	}
	mol, err := Load(filepath.Join(L.RunDir(0), hybrid.TopologyFileName), filepath.Join(L.UnitDir(0, 0, 0), "positions.dcd"))
	if err != nil {
		Te.Fatal(err)
	}
	ref, err := LoadReference(refPath)
	if err != nil {
		Te.Fatal(err)
	}
	aligned, err := Align(mol.Frame(2), mol, ref)
	if err != nil {
		Te.Fatal(err)
	}
	//frame 2 is the base pose moved by (2,2,2); aligning must undo that
	base := baseCoords()
	for i := 0; i < 5; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(aligned.At(i, j)-base.At(i, j)) > 1e-3 {
				Te.Fatalf("atom %d dim %d misaligned: %f vs %f", i, j, aligned.At(i, j), base.At(i, j))
			}
		}
	}
	//the input frame must stay untouched
	if math.Abs(mol.Frame(2).At(0, 0)-2) > 1e-4 {
		Te.Error("Align modified the input frame")
	}
}

func TestAlignErrors(Te *testing.T) {
	L := writeDataset(Te)
	mol, err := Load(filepath.Join(L.RunDir(0), hybrid.TopologyFileName), filepath.Join(L.UnitDir(0, 0, 0), "positions.dcd"))
	if err != nil {
		Te.Fatal(err)
	}
	//a reference with no protein has no landmarks
	noProt := `HETATM    1  C1  MOL B   1       3.000   3.000   3.000  1.00  0.00           C
END
`
	refPath := filepath.Join(Te.TempDir(), "noprot.pdb")
	if err := os.WriteFile(refPath, []byte(noProt), 0o644); err != nil {
		Te.Fatal(err)
	}
	ref, err := LoadReference(refPath)
	if err != nil {
		Te.Fatal(err)
	}
	_, err = Align(mol.Frame(0), mol, ref)
	if err == nil || !fep.IsValidation(err) {
		Te.Errorf("expected a validation error for an empty landmark selection, got %v", err)
	}
}

func refIndexMap() *hybrid.IndexMap {
	return &hybrid.IndexMap{
		Protein:    []int{0, 1, 2},
		OldLigand:  []int{3},
		NewLigand:  []int{3, 4},
		OldComplex: []int{0, 1, 2, 3},
		NewComplex: []int{0, 1, 2, 3, 4},
	}
}

func TestSlice(Te *testing.T) {
	L := writeDataset(Te)
	mol, err := Load(filepath.Join(L.RunDir(0), hybrid.TopologyFileName), filepath.Join(L.UnitDir(0, 0, 0), "positions.dcd"))
	if err != nil {
		Te.Fatal(err)
	}
	m := refIndexMap()
	sliced, err := Slice(mol.Frame(0), mol.Topology, m)
	if err != nil {
		Te.Fatal(err)
	}
	for name, indices := range m.Subsets() {
		sub, ok := sliced[name]
		if !ok {
			Te.Fatalf("missing subset %s", name)
		}
		if sub.Len() != len(indices) {
			Te.Errorf("%s: expected %d atoms, got %d", name, len(indices), sub.Len())
		}
		if sub.LenFrames() != 1 {
			Te.Errorf("%s: expected a single frame", name)
		}
	}
	if sliced[hybrid.SubsetOldLigand].Atom(0).Molname != "MOL" {
		Te.Error("old ligand does not hold the ligand atoms")
	}
	if sliced[hybrid.SubsetNewComplex].Atom(0).Name != "CA" {
		Te.Error("new complex does not start with the protein")
	}
	//subsets are independent copies: mutating one never leaks into another
	sliced[hybrid.SubsetProtein].Frame(0).Set(0, 0, 999)
	sliced[hybrid.SubsetProtein].Atom(0).Name = "XX"
	if sliced[hybrid.SubsetOldComplex].Frame(0).At(0, 0) == 999 {
		Te.Error("coordinate mutation leaked between subsets")
	}
	if sliced[hybrid.SubsetOldComplex].Atom(0).Name == "XX" {
		Te.Error("topology mutation leaked between subsets")
	}
	//slicing again from the same inputs gives the original values
	again, err := Slice(mol.Frame(0), mol.Topology, m)
	if err != nil {
		Te.Fatal(err)
	}
	if again[hybrid.SubsetProtein].Frame(0).At(0, 0) == 999 {
		Te.Error("slicing is not repeatable")
	}
}

func TestSliceIdentity(Te *testing.T) {
	L := writeDataset(Te)
	mol, err := Load(filepath.Join(L.RunDir(0), hybrid.TopologyFileName), filepath.Join(L.UnitDir(0, 0, 0), "positions.dcd"))
	if err != nil {
		Te.Fatal(err)
	}
	sliced, err := Slice(mol.Frame(0), mol.Topology, refIndexMap())
	if err != nil {
		Te.Fatal(err)
	}
	prot := sliced[hybrid.SubsetProtein]
	//re-slicing a subset through the identity mapping reproduces it exactly
	all := make([]int, prot.Len())
	for i := range all {
		all[i] = i
	}
	identity := &hybrid.IndexMap{
		Protein:    all,
		OldLigand:  []int{0},
		NewLigand:  []int{0},
		OldComplex: all,
		NewComplex: all,
	}
	again, err := Slice(prot.Frame(0), prot.Topology, identity)
	if err != nil {
		Te.Fatal(err)
	}
	re := again[hybrid.SubsetProtein]
	if re.Len() != prot.Len() {
		Te.Fatalf("identity re-slice changed the atom count: %d vs %d", re.Len(), prot.Len())
	}
	for i := 0; i < prot.Len(); i++ {
		if re.Atom(i).Name != prot.Atom(i).Name || re.Atom(i).Molid != prot.Atom(i).Molid {
			Te.Errorf("atom %d changed under the identity re-slice", i)
		}
		for j := 0; j < 3; j++ {
			if re.Frame(0).At(i, j) != prot.Frame(0).At(i, j) {
				Te.Errorf("coordinate (%d,%d) changed under the identity re-slice", i, j)
			}
		}
	}
}

func TestSliceEmptySubset(Te *testing.T) {
	L := writeDataset(Te)
	mol, err := Load(filepath.Join(L.RunDir(0), hybrid.TopologyFileName), filepath.Join(L.UnitDir(0, 0, 0), "positions.dcd"))
	if err != nil {
		Te.Fatal(err)
	}
	m := refIndexMap()
	m.OldLigand = nil
	if _, err := Slice(mol.Frame(0), mol.Topology, m); err == nil {
		Te.Error("expected an error for an empty index set")
	}
}

func TestExtractAndWrite(Te *testing.T) {
	L := writeDataset(Te)
	refPath := filepath.Join(Te.TempDir(), "ref.pdb")
	if err := os.WriteFile(refPath, []byte(referencePDB), 0o644); err != nil {
		Te.Fatal(err)
	}
	sliced, err := Extract(L, result.Path{Run: 0, Clone: 0, Gen: 0}, hybrid.ResolveRun, DefaultOptions(refPath))
	if err != nil {
		Te.Fatal(err)
	}
	outDir := Te.TempDir()
	paths, err := sliced.Write(outDir, "RUN0")
	if err != nil {
		Te.Fatal(err)
	}
	if len(paths) != len(hybrid.SubsetNames) {
		Te.Fatalf("expected %d files, got %d", len(hybrid.SubsetNames), len(paths))
	}
	//each file reads back as a valid structure of the right size
	want := map[string]int{
		hybrid.SubsetProtein:    3,
		hybrid.SubsetOldLigand:  1,
		hybrid.SubsetNewLigand:  2,
		hybrid.SubsetOldComplex: 4,
		hybrid.SubsetNewComplex: 5,
	}
	for name, p := range paths {
		if filepath.Base(p) != "RUN0-"+name+".pdb" {
			Te.Errorf("wrong file name: %s", p)
		}
		mol, err := fep.PDBFileRead(p)
		if err != nil {
			Te.Fatalf("%s: %v", name, err)
		}
		if mol.Len() != want[name] {
			Te.Errorf("%s: expected %d atoms, got %d", name, want[name], mol.Len())
		}
	}
	//the default frame is the last one, aligned back onto the reference,
	//so the protein slice sits at the reference coordinates
	prot, err := fep.PDBFileRead(paths[hybrid.SubsetProtein])
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(prot.Frame(0).At(1, 0)-1.5) > 1e-2 {
		Te.Errorf("protein slice not aligned to the reference: %f", prot.Frame(0).At(1, 0))
	}
}
