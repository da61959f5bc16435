/*
 * interfaces.go, part of gridfep.
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

package fep

import (
	"fmt"

	"github.com/gridfep/gridfep/vec"
)

//Traj is an interface for any trajectory object, including a Molecule.
type Traj interface {

	//Is the trajectory ready to be read?
	Readable() bool

	//Next reads the next frame into output, or discards it if output is
	//nil. It can also fill the (optional) box with the box vectors, if
	//present in the frame.
	Next(output *vec.Matrix, box ...[]float64) error

	//Len returns the number of atoms per frame.
	Len() int
}

//Atomer is the basic interface for a topology.
type Atomer interface {

	//Atom returns the Atom corresponding to the index i of the Atom
	//slice in the Topology. Should panic if out of range.
	Atom(i int) *Atom

	Len() int
}

//TrajError is the interface for errors in trajectories.
type TrajError interface {
	Error
	Critical() bool
	FileName() string
	Format() string
}

//LastFrameError distinguishes the harmless end-of-trajectory condition
//from real trajectory errors, so it can be filtered in a type switch.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination() //does nothing, just to separate this interface from other TrajError's
}

//lastFrameError implements LastFrameError for in-memory molecules.
type lastFrameError struct {
	fileName string
	deco     []string
}

func (E *lastFrameError) NormalLastFrameTermination() {}

func (E *lastFrameError) FileName() string { return E.fileName }

func (E *lastFrameError) Error() string { return "EOF" }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) Format() string { return "molecule" }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}

//CollectFrames reads every remaining frame of traj into a slice of
//newly-allocated matrices. A normal end of trajectory is not an error.
func CollectFrames(traj Traj) ([]*vec.Matrix, error) {
	frames := make([]*vec.Matrix, 0, 1)
	for {
		frame := vec.Zeros(traj.Len())
		err := traj.Next(frame)
		if err != nil {
			if _, ok := err.(LastFrameError); ok {
				break
			}
			return nil, DecorateError(err, "CollectFrames")
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("CollectFrames: trajectory contained no frames")
	}
	return frames, nil
}
