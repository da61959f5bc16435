/*
 * pdb.go, part of gridfep.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gridfep/gridfep/vec"
)

//symbolFromName tries to guess a chemical element symbol from a PDB atom
//name. Mostly based on AMBER names, it only deals with common bio-elements.
func symbolFromName(name string) string {
	if name == "" {
		return ""
	}
	if len(name) == 4 || name[0] == 'H' {
		return "H" //only Hs can have 4-char names in amber
	}
	switch {
	case name == "CL":
		return "Cl"
	case name == "NA":
		return "Na"
	case name == "SE":
		return "Se"
	case name == "MG":
		return "Mg"
	case strings.HasPrefix(name, "ZN"):
		return "Zn"
	}
	switch name[0] {
	case 'C':
		return "C"
	case 'N':
		return "N"
	case 'O':
		return "O"
	case 'P':
		return "P"
	case 'S':
		return "S"
	}
	return ""
}

//readPDBLine parses a valid ATOM or HETATM line of a PDB file and returns
//an Atom object with the info, except for the coordinates, which are
//returned separately as a slice of 3 float64.
func readPDBLine(line string) (*Atom, []float64, error) {
	if len(line) < 54 {
		return nil, nil, fmt.Errorf("line too short (%d chars)", len(line))
	}
	atom := new(Atom)
	atom.Het = strings.HasPrefix(line, "HETATM")
	var err error
	atom.Id, err = strconv.Atoi(strings.TrimSpace(line[6:11]))
	if err != nil {
		return nil, nil, fmt.Errorf("bad serial number: %v", err)
	}
	atom.Name = strings.TrimSpace(line[12:16])
	//4 columns, not the official 3: charmm-style waters (TIP3, SPCE)
	//spill their residue names into column 21
	atom.Molname = strings.TrimSpace(line[17:21])
	atom.Chain = strings.TrimSpace(line[21:22])
	atom.Molid, err = strconv.Atoi(strings.TrimSpace(line[22:26]))
	if err != nil {
		return nil, nil, fmt.Errorf("bad residue number: %v", err)
	}
	coords := make([]float64, 3)
	for i, span := range [][2]int{{30, 38}, {38, 46}, {46, 54}} {
		coords[i], err = strconv.ParseFloat(strings.TrimSpace(line[span[0]:span[1]]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad coordinate %d: %v", i, err)
		}
	}
	if len(line) >= 78 {
		atom.Symbol = strings.TrimSpace(line[76:78])
	}
	if atom.Symbol == "" {
		atom.Symbol = symbolFromName(atom.Name)
	}
	return atom, coords, nil
}

//PDBRead reads a molecule from a PDB-formatted stream. Multi-MODEL files
//yield multi-frame molecules; every model must have the same number of
//atoms. filename is used only to tag errors.
func PDBRead(in io.Reader, filename string) (*Molecule, error) {
	atoms := make([]*Atom, 0, 100)
	frames := make([]*vec.Matrix, 0, 1)
	data := make([]float64, 0, 300)
	firstModel := true
	lineno := 0
	closeFrame := func() error {
		if len(data) == 0 {
			return nil
		}
		frame, err := vec.NewMatrix(data)
		if err != nil {
			return err
		}
		frames = append(frames, frame)
		data = make([]float64, 0, len(data))
		firstModel = false
		return nil
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "ATOM"), strings.HasPrefix(line, "HETATM"):
			atom, coords, err := readPDBLine(line)
			if err != nil {
				return nil, NewValidationError(fmt.Sprintf("PDB line %d: %v", lineno, err), filename, "PDBRead")
			}
			if firstModel {
				atoms = append(atoms, atom)
			}
			data = append(data, coords...)
		case strings.HasPrefix(line, "ENDMDL"):
			if err := closeFrame(); err != nil {
				return nil, DecorateError(err, "PDBRead")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewValidationError(err.Error(), filename, "PDBRead")
	}
	if err := closeFrame(); err != nil {
		return nil, DecorateError(err, "PDBRead")
	}
	if len(atoms) == 0 {
		return nil, NewValidationError("no ATOM or HETATM records found", filename, "PDBRead")
	}
	top, err := NewTopology(atoms)
	if err != nil {
		return nil, err
	}
	mol, err := NewMolecule(top, frames)
	if err != nil {
		return nil, NewValidationError(err.Error(), filename, "PDBRead")
	}
	return mol, nil
}

//PDBFileRead reads a molecule from the PDB file given by path.
func PDBFileRead(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewValidationError(err.Error(), path, "PDBFileRead")
	}
	defer f.Close()
	return PDBRead(f, path)
}

//writePDBLine formats one ATOM/HETATM record.
func writePDBLine(out io.Writer, at *Atom, serial int, x, y, z float64) error {
	record := "ATOM  "
	if at.Het {
		record = "HETATM"
	}
	name := at.Name
	if len(name) < 4 {
		name = " " + name //standard PDB name alignment for short names
	}
	chain := at.Chain
	if chain == "" {
		chain = " "
	}
	_, err := fmt.Fprintf(out, "%s%5d %-4s %-4s%1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
		record, serial, name, at.Molname, chain, at.Molid, x, y, z, 1.0, 0.0, at.Symbol)
	return err
}

//PDBWrite writes the topology mol with the coordinates coord to out as a
//single-model PDB.
func PDBWrite(out io.Writer, coord *vec.Matrix, mol Atomer) error {
	if coord.NVecs() != mol.Len() {
		return fmt.Errorf("PDBWrite: coordinates (%d) don't match atoms (%d)", coord.NVecs(), mol.Len())
	}
	for i := 0; i < mol.Len(); i++ {
		at := mol.Atom(i)
		err := writePDBLine(out, at, i+1, coord.At(i, 0), coord.At(i, 1), coord.At(i, 2))
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out, "END")
	return err
}

//PDBFileWrite writes the topology mol with the coordinates coord to the
//file given by path.
func PDBFileWrite(path string, coord *vec.Matrix, mol Atomer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := PDBWrite(w, coord, mol); err != nil {
		return err
	}
	return w.Flush()
}
