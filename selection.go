/*
 * selection.go, part of gridfep.
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

//aminoAcids maps the 3-letter names of aminoacidic residues to the
//corresponding 1-letter names. Membership in this map is what decides
//whether a residue is part of the protein.
var aminoAcids = map[string]byte{
	"SER": 'S',
	"THR": 'T',
	"ASN": 'N',
	"GLN": 'Q',
	"SEC": 'U', //Selenocysteine!
	"CYS": 'C',
	"CYX": 'C', //disulfide-bonded cysteine, amber name
	"GLY": 'G',
	"PRO": 'P',
	"ALA": 'A',
	"VAL": 'V',
	"ILE": 'I',
	"LEU": 'L',
	"MET": 'M',
	"PHE": 'F',
	"TYR": 'Y',
	"TRP": 'W',
	"ARG": 'R',
	"HIS": 'H',
	"HID": 'H', //amber protonation-state names
	"HIE": 'H',
	"HIP": 'H',
	"LYS": 'K',
	"ASP": 'D',
	"GLU": 'E',
}

//waterNames are the residue names recognized as solvent.
var waterNames = map[string]bool{
	"HOH":  true,
	"WAT":  true,
	"SOL":  true,
	"TIP3": true,
	"SPC":  true,
	"SPCE": true,
}

//IsProtein returns whether the residue name corresponds to an
//aminoacidic residue.
func IsProtein(molname string) bool {
	_, ok := aminoAcids[molname]
	return ok
}

//IsWater returns whether the residue name corresponds to a solvent
//molecule.
func IsWater(molname string) bool {
	return waterNames[molname]
}

//SelectWater returns the indexes, in ascending order, of the solvent
//atoms in mol.
func SelectWater(mol Atomer) []int {
	ret := make([]int, 0, mol.Len()/2)
	for i := 0; i < mol.Len(); i++ {
		if IsWater(mol.Atom(i).Molname) {
			ret = append(ret, i)
		}
	}
	return ret
}

//SelectNotWater returns the indexes, in ascending order, of the
//non-solvent atoms in mol.
func SelectNotWater(mol Atomer) []int {
	ret := make([]int, 0, mol.Len())
	for i := 0; i < mol.Len(); i++ {
		if !IsWater(mol.Atom(i).Molname) {
			ret = append(ret, i)
		}
	}
	return ret
}

//SelectProtein returns the indexes, in ascending order, of the protein
//atoms in mol.
func SelectProtein(mol Atomer) []int {
	ret := make([]int, 0, mol.Len())
	for i := 0; i < mol.Len(); i++ {
		if IsProtein(mol.Atom(i).Molname) {
			ret = append(ret, i)
		}
	}
	return ret
}

//SelectResname returns the indexes, in ascending order, of the atoms in
//mol belonging to residues with any of the given names.
func SelectResname(mol Atomer, names ...string) []int {
	wanted := make(map[string]bool, len(names))
	for _, v := range names {
		wanted[v] = true
	}
	ret := make([]int, 0, mol.Len())
	for i := 0; i < mol.Len(); i++ {
		if wanted[mol.Atom(i).Molname] {
			ret = append(ret, i)
		}
	}
	return ret
}

//SelectAlphaCarbons returns the indexes, in ascending order, of the
//protein backbone alpha-carbons in mol. These are the stable landmark
//atoms used for superposition.
func SelectAlphaCarbons(mol Atomer) []int {
	ret := make([]int, 0, mol.Len()/10)
	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		if at.Name == "CA" && IsProtein(at.Molname) {
			ret = append(ret, i)
		}
	}
	return ret
}
