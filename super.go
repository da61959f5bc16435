/*
 * super.go, part of gridfep.
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
	"math"

	"github.com/gridfep/gridfep/vec"
	"gonum.org/v1/gonum/mat"
)

//Centroid returns the geometric center of the coordinates in m as a 1x3
//matrix.
func Centroid(m *vec.Matrix) *vec.Matrix {
	n := m.NVecs()
	c := vec.Zeros(1)
	for i := 0; i < n; i++ {
		c.Set(0, 0, c.At(0, 0)+m.At(i, 0))
		c.Set(0, 1, c.At(0, 1)+m.At(i, 1))
		c.Set(0, 2, c.At(0, 2)+m.At(i, 2))
	}
	c.Scale(1/float64(n), c.Dense)
	return c
}

//sequentialIndexes returns 0..n-1.
func sequentialIndexes(n int) []int {
	r := make([]int, n)
	for i := range r {
		r[i] = i
	}
	return r
}

//Super superimposes the coordinates in test over the ones in templa and
//returns a new matrix with the transformed coordinates of every atom in
//test. Only the atoms with indexes in testlst and templalst (which must
//have the same length) are used to determine the transformation, which is
//then applied to the whole of test. If both lists are nil, all atoms are
//used. test and templa are never modified.
//The rotation is obtained with the Kabsch algorithm, correcting a
//reflection, if obtained, into the best proper rotation.
func Super(test, templa *vec.Matrix, testlst, templalst []int) (*vec.Matrix, error) {
	if testlst == nil && templalst == nil {
		if test.NVecs() != templa.NVecs() {
			return nil, fmt.Errorf("Super: mismatched atom counts (%d vs %d) and no selection lists given", test.NVecs(), templa.NVecs())
		}
		testlst = sequentialIndexes(test.NVecs())
		templalst = sequentialIndexes(templa.NVecs())
	}
	if len(testlst) != len(templalst) {
		return nil, fmt.Errorf("Super: selection lists of different length: %d vs %d", len(testlst), len(templalst))
	}
	if len(testlst) == 0 {
		return nil, fmt.Errorf("Super: empty selection lists")
	}
	n := len(testlst)
	P := vec.Zeros(n)
	if err := P.SomeVecsSafe(test, testlst); err != nil {
		return nil, DecorateError(err, "Super")
	}
	Q := vec.Zeros(n)
	if err := Q.SomeVecsSafe(templa, templalst); err != nil {
		return nil, DecorateError(err, "Super")
	}
	cP := Centroid(P)
	cQ := Centroid(Q)
	P.SubVec(P, cP)
	Q.SubVec(Q, cQ)
	//Cross-covariance of the centered selections.
	var H mat.Dense
	H.Mul(P.Dense.T(), Q.Dense)
	var svd mat.SVD
	if ok := svd.Factorize(&H, mat.SVDFull); !ok {
		return nil, fmt.Errorf("Super: SVD factorization failed")
	}
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	//For row vectors the optimal rotation is R = U D V^T, with D
	//correcting a possible reflection into a proper rotation.
	var VUt mat.Dense
	VUt.Mul(&V, U.T())
	d := mat.Det(&VUt)
	D := mat.NewDiagDense(3, []float64{1, 1, math.Copysign(1, d)})
	var UD, R mat.Dense
	UD.Mul(&U, D)
	R.Mul(&UD, V.T())
	//Apply to the whole test set: center on the selection centroid,
	//rotate, then translate onto the template selection centroid.
	moved := vec.Zeros(test.NVecs())
	moved.SubVec(test, cP)
	rotated := vec.Zeros(test.NVecs())
	rotated.Mul(moved.Dense, &R)
	rotated.AddVec(rotated, cQ)
	return rotated, nil
}

//RMSD returns the root mean square deviation between the coordinate sets
//test and templa, which must have the same shape. No argument is modified.
func RMSD(test, templa *vec.Matrix) (float64, error) {
	if test.NVecs() != templa.NVecs() {
		return 0, fmt.Errorf("RMSD: ill-formed matrices: %d vs %d vectors", test.NVecs(), templa.NVecs())
	}
	n := test.NVecs()
	var acc float64
	for i := 0; i < n; i++ {
		for j := 0; j < 3; j++ {
			d := test.At(i, j) - templa.At(i, j)
			acc += d * d
		}
	}
	return math.Sqrt(acc / float64(n)), nil
}
