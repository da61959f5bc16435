/*
 * molecule.go, part of gridfep.
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

//Package fep provides the structural core for extracting validated data
//from distributed free-energy simulations: atom and molecule containers,
//PDB reading and writing, landmark-based superposition and the error
//taxonomy shared by the extraction pipeline packages.
package fep

import (
	"fmt"

	"github.com/gridfep/gridfep/vec"
)

/*Note: several functions here panic instead of returning errors. They are
 * "fundamental" functions: if something goes wrong in them the program is
 * most likely already wrong and should crash. Most panics are related to
 * using a function on a nil object or out-of-bounds access.*/

//Atom contains the per-atom information read from a topology, except for
//the coordinates, which live in a separate matrix.
type Atom struct {
	Name    string
	Id      int
	Molname string //residue name
	Molid   int    //residue number
	Chain   string
	Symbol  string
	Het     bool //was this a HETATM entry?
}

//Copy returns a copy of the Atom object.
func (A *Atom) Copy() *Atom {
	if A == nil {
		panic("Attempted to copy a nil atom")
	}
	at := new(Atom)
	*at = *A
	return at
}

//Topology contains the information about a molecule which is not expected
//to change in time, i.e. everything except for the coordinates.
type Topology struct {
	Atoms []*Atom
}

//NewTopology makes a topology from a slice of atoms. It returns an error
//if the slice is nil.
func NewTopology(ats []*Atom) (*Topology, error) {
	if ats == nil {
		return nil, fmt.Errorf("supplied a nil atom slice")
	}
	top := new(Topology)
	top.Atoms = ats
	return top, nil
}

//Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

//Atom returns the Atom corresponding to the index i of the Atom slice in
//the Topology. Panics if out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

//SetAtom sets the (i+1)th Atom of the topology to at. Panics if out of range.
func (T *Topology) SetAtom(i int, at *Atom) {
	if i >= T.Len() {
		panic("Topology: Tried to set Atom out of bounds")
	}
	T.Atoms[i] = at
}

//CopyAtoms returns a deep copy of the topology.
func (T *Topology) CopyAtoms() *Topology {
	top := new(Topology)
	top.Atoms = make([]*Atom, T.Len())
	for key, val := range T.Atoms {
		top.Atoms[key] = val.Copy()
	}
	return top
}

//SomeAtoms returns a new Topology with the atoms at the positions given
//by atomlist, in that order. The atoms are deep-copied, so changes to the
//returned topology never affect the original.
func (T *Topology) SomeAtoms(atomlist []int) (*Topology, error) {
	ret := make([]*Atom, 0, len(atomlist))
	lenatoms := len(T.Atoms)
	for k, j := range atomlist {
		if j > lenatoms-1 || j < 0 {
			return nil, fmt.Errorf("Atom requested (number: %d, value: %d) out of range", k, j)
		}
		ret = append(ret, T.Atoms[j].Copy())
	}
	return NewTopology(ret)
}

//Molecule contains all the info for a molecule in potentially many
//states (frames). The coordinates, which are expected to change between
//states, are stored separately from the atomic info.
type Molecule struct {
	*Topology
	Coords  []*vec.Matrix
	current int
}

//NewMolecule makes a molecule from a topology and a set of coordinate
//frames. It returns an error if either is nil, or if any frame doesn't
//match the number of atoms.
func NewMolecule(top *Topology, coords []*vec.Matrix) (*Molecule, error) {
	if top == nil {
		return nil, fmt.Errorf("supplied a nil Topology")
	}
	if coords == nil {
		return nil, fmt.Errorf("supplied a nil Coords slice")
	}
	mol := new(Molecule)
	mol.Topology = top
	mol.Coords = coords
	if err := mol.Corrupted(); err != nil {
		return nil, err
	}
	return mol, nil
}

//Copy returns a deep copy of the molecule including coordinates.
func (M *Molecule) Copy() *Molecule {
	if err := M.Corrupted(); err != nil {
		panic(err.Error()) //copying a corrupted molecule means the program is wrong.
	}
	mol := new(Molecule)
	mol.Topology = M.Topology.CopyAtoms()
	mol.Coords = make([]*vec.Matrix, 0, len(M.Coords))
	for _, val := range M.Coords {
		frame := vec.Zeros(val.NVecs())
		frame.Dense.Copy(val.Dense)
		mol.Coords = append(mol.Coords, frame)
	}
	return mol
}

//AddFrame takes a matrix of coordinates and appends it at the end of the
//Coords. It checks that the number of coordinates matches the number of
//atoms.
func (M *Molecule) AddFrame(newframe *vec.Matrix) {
	if newframe == nil {
		panic("Attempted to add nil frame")
	}
	if M.Len() != newframe.NVecs() {
		panic(fmt.Sprintf("Wrong number of coordinates (%d)", newframe.NVecs()))
	}
	if M.Coords == nil {
		M.Coords = make([]*vec.Matrix, 0, 1)
	}
	M.Coords = append(M.Coords, newframe)
}

//Frame returns the coordinates of frame i. Panics if out of range.
func (M *Molecule) Frame(i int) *vec.Matrix {
	if i < 0 || i >= len(M.Coords) {
		panic(fmt.Sprintf("Frame requested (%d) out of range", i))
	}
	return M.Coords[i]
}

//LenFrames returns the number of frames in the molecule.
func (M *Molecule) LenFrames() int {
	return len(M.Coords)
}

//Corrupted checks whether the molecule is corrupted, i.e. the
//coordinates don't match the number of atoms.
func (M *Molecule) Corrupted() error {
	for i := range M.Coords {
		if M.Len() != M.Coords[i].NVecs() {
			return fmt.Errorf("Inconsistent coordinates/atoms in frame %d: Atoms %d, coords: %d", i, M.Len(), M.Coords[i].NVecs())
		}
	}
	return nil
}

/******************************************
//The following implement the Traj interface
******************************************/

//Readable checks that the molecule exists and has some existent
//coordinates left to read, in which case it returns true.
func (M *Molecule) Readable() bool {
	if M != nil && M.Coords != nil && M.current < len(M.Coords) {
		return true
	}
	return false
}

//Next copies the next frame into output, or discards it if output is nil.
func (M *Molecule) Next(output *vec.Matrix, box ...[]float64) error {
	if M.current >= len(M.Coords) {
		return newlastFrameError("", "Next")
	}
	M.current++
	if output == nil {
		return nil
	}
	output.Dense.Copy(M.Coords[M.current-1].Dense)
	return nil
}

//InitRead initializes the molecule to be read as a trajectory.
func (M *Molecule) InitRead() error {
	if M == nil || len(M.Coords) == 0 {
		return fmt.Errorf("Bad molecule")
	}
	M.current = 0
	return nil
}
