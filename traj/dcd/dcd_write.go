/*
 * dcd_write.go, part of gridfep.
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

package dcd

import (
	"encoding/binary"
	"os"

	"github.com/gridfep/gridfep/vec"
)

//DCDWObj is a Charmm/NAMD binary trajectory file opened for writing.
type DCDWObj struct {
	natoms    int32
	writable  bool
	filename  string
	frames    int32
	dcd       *os.File
	dcdFields [][]float32
	endian    binary.ByteOrder
}

//NewWriter initializes a DCD trajectory for writing snapshots of natoms
//atoms to filename. Only plain (uncompressed) files can be written.
func NewWriter(filename string, natoms int) (*DCDWObj, error) {
	traj := new(DCDWObj)
	traj.natoms = int32(natoms)
	traj.filename = filename
	if err := traj.initWrite(); err != nil {
		return nil, errDecorate(err, "NewWriter")
	}
	return traj, nil
}

//Close updates the frame count in the header and closes the file.
func (D *DCDWObj) Close() {
	if !D.writable {
		return
	}
	D.updateFrames()
	D.dcd.Close()
	D.writable = false
}

//Len returns the number of atoms per frame in the trajectory.
func (D *DCDWObj) Len() int {
	return int(D.natoms)
}

//initWrite writes the header of the trajectory: a charmm-flavored,
//little-endian DCD with no unit-cell blocks and no fixed atoms.
func (D *DCDWObj) initWrite() error {
	if D.natoms == 0 {
		return Error{"the number of atoms is set to zero", D.filename, []string{"initWrite"}, true}
	}
	wrapbinerr := func(err error) error {
		return Error{err.Error(), D.filename, []string{"binary.Write", "initWrite"}, true}
	}
	D.endian = binary.LittleEndian
	var err error
	D.dcd, err = os.Create(D.filename)
	if err != nil {
		return Error{err.Error(), D.filename, []string{"os.Create", "initWrite"}, true}
	}
	if err := binary.Write(D.dcd, D.endian, int32(84)); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, []byte("CORD")); err != nil {
		return wrapbinerr(err)
	}
	//The frame count goes here; updated on Close.
	if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
		return wrapbinerr(err)
	}
	//initial time
	if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
		return wrapbinerr(err)
	}
	//step interval (nsavc)
	if err := binary.Write(D.dcd, D.endian, int32(1)); err != nil {
		return wrapbinerr(err)
	}
	//5 zeros plus natom-nfreat
	for i := 0; i < 6; i++ {
		if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
			return wrapbinerr(err)
		}
	}
	//delta time
	if err := binary.Write(D.dcd, D.endian, float32(1)); err != nil {
		return wrapbinerr(err)
	}
	//no unit cell, no 4th dimension, 9 zeros in total, so that the
	//charmm version lands on the last of the 20 header ints
	for i := 0; i < 9; i++ {
		if err := binary.Write(D.dcd, D.endian, int32(0)); err != nil {
			return wrapbinerr(err)
		}
	}
	//charmm version, let's say, 24
	if err := binary.Write(D.dcd, D.endian, int32(24)); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, int32(84)); err != nil {
		return wrapbinerr(err)
	}
	//the title block
	if err := binary.Write(D.dcd, D.endian, int32(4+2*mAXTITLE)); err != nil {
		return wrapbinerr(err)
	}
	var ntitle int32 = 2
	if err := binary.Write(D.dcd, D.endian, ntitle); err != nil {
		return wrapbinerr(err)
	}
	title := make([]byte, 2*mAXTITLE)
	copy(title, []byte("Stripped trajectory written by gridfep"))
	title[len(title)-1] = byte('\000')
	if err := binary.Write(D.dcd, D.endian, title); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, int32(4+2*mAXTITLE)); err != nil {
		return wrapbinerr(err)
	}
	//the atom count block: a 4, natoms, and one more 4
	if err := binary.Write(D.dcd, D.endian, int32(4)); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, D.natoms); err != nil {
		return wrapbinerr(err)
	}
	if err := binary.Write(D.dcd, D.endian, int32(4)); err != nil {
		return wrapbinerr(err)
	}
	D.writable = true
	return nil
}

//WNext writes the next frame to the trajectory. The optional box is
//ignored, it is only there for interface compatibility.
func (D *DCDWObj) WNext(towrite *vec.Matrix, box ...[]float64) error {
	if !D.writable {
		return Error{TrajUnIni, D.filename, []string{"WNext"}, true}
	}
	if towrite == nil {
		return Error{"got nil coordinates", D.filename, []string{"WNext"}, true}
	}
	if int32(towrite.NVecs()) != D.natoms {
		return Error{"Coordinates don't match the trajectory size", D.filename, []string{"WNext"}, true}
	}
	if D.dcdFields == nil {
		D.dcdFields = make([][]float32, 3)
		D.dcdFields[0] = make([]float32, int(D.natoms))
		D.dcdFields[1] = make([]float32, int(D.natoms))
		D.dcdFields[2] = make([]float32, int(D.natoms))
	}
	for i := 0; i < int(D.natoms); i++ {
		D.dcdFields[0][i] = float32(towrite.At(i, 0))
		D.dcdFields[1][i] = float32(towrite.At(i, 1))
		D.dcdFields[2][i] = float32(towrite.At(i, 2))
	}
	if err := D.wnextRaw(D.dcdFields); err != nil {
		return errDecorate(err, "WNext")
	}
	D.frames++
	return nil
}

//wnextRaw writes the X, Y and Z blocks of one frame.
func (D *DCDWObj) wnextRaw(blocks [][]float32) error {
	blocksize := int32(len(blocks[0])) * 4 //the size is required in bytes
	for dim := 0; dim < 3; dim++ {
		if err := binary.Write(D.dcd, D.endian, blocksize); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "wnextRaw"}, true}
		}
		if err := binary.Write(D.dcd, D.endian, blocks[dim]); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "wnextRaw"}, true}
		}
		if err := binary.Write(D.dcd, D.endian, blocksize); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Write", "wnextRaw"}, true}
		}
	}
	return nil
}

//updateFrames rewrites the frame count in the already-written header.
func (D *DCDWObj) updateFrames() {
	if _, err := D.dcd.Seek(8, 0); err != nil {
		return
	}
	_ = binary.Write(D.dcd, D.endian, D.frames)
	_, _ = D.dcd.Seek(0, 2)
}
