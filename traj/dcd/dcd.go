/*
 * dcd.go, part of gridfep.
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

//Package dcd reads and writes Charmm/NAMD binary trajectories, the format
//in which the stripped (solvent-free) per-gen trajectories are stored.
//Only little-endian files without fixed atoms are supported. Trajectories
//compressed as a whole with gzip or zstd are read transparently.
package dcd

import (
	"bytes"
	"encoding/binary"
	"io"

	fep "github.com/gridfep/gridfep"
	"github.com/gridfep/gridfep/vec"
)

const mAXTITLE int32 = 80

//DCDObj is a Charmm/NAMD binary trajectory file opened for reading.
type DCDObj struct {
	natoms     int32
	readLast   bool //Have we read the last frame?
	readable   bool //Is it ready to be read?
	filename   string
	charmm     bool //Charmm traj?
	extrablock bool
	fourdim    bool
	fixed      int32 //Fixed atoms (not supported)
	dcd        io.ReadCloser
	dcdFields  [][]float32
	endian     binary.ByteOrder
}

//New builds a new DCDObj ready to read snapshots from the trajectory in
//filename. Files ending in .gz or .zst are decompressed on the fly.
func New(filename string) (*DCDObj, error) {
	traj := new(DCDObj)
	source, err := prepSource(filename)
	if err != nil {
		return nil, Error{err.Error(), filename, []string{"prepSource", "New"}, true}
	}
	traj.dcd = source
	traj.filename = filename
	if err := traj.initRead(); err != nil {
		source.Close()
		return nil, errDecorate(err, "New")
	}
	return traj, nil
}

//Readable returns true if the object is ready to be read from,
//false otherwise. It doesn't guarantee that there is something to read.
func (D *DCDObj) Readable() bool {
	return D.readable
}

//Len returns the number of atoms per frame in the trajectory.
func (D *DCDObj) Len() int {
	return int(D.natoms)
}

//Close closes the underlying file.
func (D *DCDObj) Close() {
	if D.dcd != nil {
		D.dcd.Close()
	}
	D.readable = false
}

//initRead parses the header of the trajectory. It only supports
//little-endianness, charmm/namd>=2.1 and no fixed atoms.
func (D *DCDObj) initRead() error {
	D.endian = binary.LittleEndian
	NB := bytes.NewBuffer //shortness sake
	var check int32
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	//For some reason the first thing we should read is an 84.
	if check != 84 {
		return Error{WrongFormat + ": expected 84 at start, endianness probably wrong", D.filename, []string{"initRead"}, true}
	}
	//Then the magic number "CORD".
	magic := make([]byte, 4)
	if err := binary.Read(D.dcd, D.endian, magic); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if string(magic) != "CORD" {
		return Error{WrongFormat + ": wrong magic number", D.filename, []string{"initRead"}, true}
	}
	//A big chunk with the frame counts, flags and the charmm version.
	buf := make([]byte, 80)
	if err := binary.Read(D.dcd, D.endian, buf); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	//X-plor sets the last int to zero, charmm sets it to its version
	//number. If we have a charmm file we get some additional flags.
	if err := binary.Read(NB(buf[76:]), D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check == 0 {
		return Error{"X-plor DCD not supported", D.filename, []string{"initRead"}, true}
	}
	D.charmm = true
	if err := binary.Read(NB(buf[40:]), D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 0 {
		D.extrablock = true
	}
	if err := binary.Read(NB(buf[44:]), D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check == 1 {
		D.fourdim = true
	}
	if err := binary.Read(NB(buf[32:]), D.endian, &D.fixed); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 84 {
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	//The title block.
	var blocksize int32
	if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	var ntitle int32
	if err := binary.Read(D.dcd, D.endian, &ntitle); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	title := make([]byte, mAXTITLE*ntitle)
	if err := binary.Read(D.dcd, D.endian, title); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	//One must read a 4 before the natoms, and one more after.
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 4 {
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &D.natoms); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "initRead"}, true}
	}
	if check != 4 {
		return Error{WrongFormat, D.filename, []string{"initRead"}, true}
	}
	if D.fixed != 0 {
		return Error{"Fixed atoms not supported", D.filename, []string{"initRead"}, true}
	}
	D.readable = true
	return nil
}

//Next reads the next frame of the trajectory into output, or discards it
//if output is nil. The (optional) box is filled with the unit cell
//vectors, if present in the frame.
func (D *DCDObj) Next(output *vec.Matrix, box ...[]float64) error {
	if !D.readable {
		return Error{TrajUnIni, D.filename, []string{"Next"}, true}
	}
	if D.dcdFields == nil {
		D.dcdFields = make([][]float32, 3)
		D.dcdFields[0] = make([]float32, int(D.natoms))
		D.dcdFields[1] = make([]float32, int(D.natoms))
		D.dcdFields[2] = make([]float32, int(D.natoms))
	}
	if err := D.nextRaw(D.dcdFields, box...); err != nil {
		return err //already decorated or a lastFrameError
	}
	if output == nil {
		return nil
	}
	if output.NVecs() != int(D.natoms) {
		return Error{NotEnoughSpace, D.filename, []string{"Next"}, true}
	}
	for i := 0; i < int(D.natoms); i++ {
		output.Set(i, 0, float64(D.dcdFields[0][i]))
		output.Set(i, 1, float64(D.dcdFields[1][i]))
		output.Set(i, 2, float64(D.dcdFields[2][i]))
	}
	return nil
}

//nextRaw reads a frame into the given blocks of float32.
func (D *DCDObj) nextRaw(blocks [][]float32, box ...[]float64) error {
	if len(blocks[0]) != int(D.natoms) || len(blocks[1]) != int(D.natoms) || len(blocks[2]) != int(D.natoms) {
		return Error{NotEnoughSpace, D.filename, []string{"nextRaw"}, true}
	}
	if D.readLast {
		D.readable = false
		return newlastFrameError(D.filename, "nextRaw")
	}
	//If there is an extra block (the unit cell) we read or skip it.
	//Sadly, even when the header announces an extra block, it is not
	//present in all snapshots for some trajectories, so we must use the
	//block size to see whether the X block starts immediately.
	var blocksize int32
	if D.extrablock {
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				D.readLast = true
				D.readable = false
				return newlastFrameError(D.filename, "nextRaw")
			}
			return Error{err.Error(), D.filename, []string{"binary.Read", "nextRaw"}, true}
		}
		if blocksize != D.natoms*4 {
			cell, err := D.readByteBlock(blocksize)
			if err != nil {
				return errDecorate(err, "nextRaw")
			}
			if len(box) > 0 && blocksize == 48 && len(box[0]) >= 6 {
				cellvals := make([]float64, 6)
				if err := binary.Read(bytes.NewBuffer(cell), D.endian, cellvals); err == nil {
					copy(box[0], cellvals)
				}
			}
			blocksize = 0
		}
	}
	//Now the coords, each dimension as a block of float32. The X block
	//size is collected only if it was not collected before.
	if blocksize == 0 {
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				D.readLast = true
				D.readable = false
				return newlastFrameError(D.filename, "nextRaw")
			}
			return Error{err.Error(), D.filename, []string{"binary.Read", "nextRaw"}, true}
		}
	}
	if err := D.readFloat32Block(blocksize, blocks[0]); err != nil {
		return errDecorate(err, "nextRaw")
	}
	for dim := 1; dim <= 2; dim++ {
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			return Error{err.Error(), D.filename, []string{"binary.Read", "nextRaw"}, true}
		}
		if err := D.readFloat32Block(blocksize, blocks[dim]); err != nil {
			return errDecorate(err, "nextRaw")
		}
	}
	//We skip the 4-D values if they exist.
	if D.charmm && D.fourdim {
		if err := binary.Read(D.dcd, D.endian, &blocksize); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				D.readLast = true
				return nil
			}
			return Error{err.Error(), D.filename, []string{"binary.Read", "nextRaw"}, true}
		}
		if _, err := D.readByteBlock(blocksize); err != nil {
			return errDecorate(err, "nextRaw")
		}
	}
	return nil
}

//readFloat32Block reads a block of blocksize bytes as float32 into cont,
//and checks the trailing size marker.
func (D *DCDObj) readFloat32Block(blocksize int32, cont []float32) error {
	if int(blocksize/4) != len(cont) {
		return Error{NotEnoughSpace, D.filename, []string{"readFloat32Block"}, true}
	}
	if err := binary.Read(D.dcd, D.endian, cont); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "readFloat32Block"}, true}
	}
	var check int32
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return Error{err.Error(), D.filename, []string{"binary.Read", "readFloat32Block"}, true}
	}
	if check != blocksize {
		return Error{WrongFormat, D.filename, []string{"readFloat32Block"}, true}
	}
	return nil
}

//readByteBlock reads a block of blocksize bytes and checks the trailing
//size marker.
func (D *DCDObj) readByteBlock(blocksize int32) ([]byte, error) {
	cont := make([]byte, blocksize)
	if err := binary.Read(D.dcd, D.endian, cont); err != nil {
		return nil, Error{err.Error(), D.filename, []string{"binary.Read", "readByteBlock"}, true}
	}
	var check int32
	if err := binary.Read(D.dcd, D.endian, &check); err != nil {
		return nil, Error{err.Error(), D.filename, []string{"binary.Read", "readByteBlock"}, true}
	}
	if check != blocksize {
		return nil, Error{WrongFormat, D.filename, []string{"readByteBlock"}, true}
	}
	return cont, nil
}

//assert that DCDObj implements the trajectory interface
var _ fep.Traj = (*DCDObj)(nil)
