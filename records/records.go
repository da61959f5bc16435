/*
 * records.go, part of gridfep.
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

//Package records loads the per-gen tabular logs (globals.csv) written by
//the simulation core. The upstream writer may be paused and resumed,
//which is known to re-emit its header block and to duplicate data rows;
//this reader resolves both so callers get a clean row table.
package records

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	fep "github.com/gridfep/gridfep"
)

//HeaderMarker is the field name whose presence identifies a header line.
const HeaderMarker = "kT"

//Table is a cleaned tabular log for one gen: an ordered list of rows of
//named numeric fields. It is built by Read and not modified afterwards.
type Table struct {
	path string
	cols []string
	ci   map[string]int
	rows [][]float64
}

//Path returns the file the table was read from.
func (T *Table) Path() string { return T.path }

//Len returns the number of data rows in the table.
func (T *Table) Len() int { return len(T.rows) }

//Columns returns the names of the table's fields, in file order.
func (T *Table) Columns() []string {
	cols := make([]string, len(T.cols))
	copy(cols, T.cols)
	return cols
}

//Has returns whether the table has a field with the given name.
func (T *Table) Has(name string) bool {
	_, ok := T.ci[name]
	return ok
}

//Column returns all values of the named field, in row order.
func (T *Table) Column(name string) ([]float64, error) {
	i, ok := T.ci[name]
	if !ok {
		return nil, fep.NewValidationError(fmt.Sprintf("missing field %q", name), T.path, "Column")
	}
	vals := make([]float64, len(T.rows))
	for k, row := range T.rows {
		vals[k] = row[i]
	}
	return vals, nil
}

//At returns the value of the named field at row i.
func (T *Table) At(i int, name string) (float64, error) {
	ci, ok := T.ci[name]
	if !ok {
		return 0, fep.NewValidationError(fmt.Sprintf("missing field %q", name), T.path, "At")
	}
	if i < 0 || i >= len(T.rows) {
		return 0, fep.NewValidationError(fmt.Sprintf("row %d requested, but table has %d rows", i, len(T.rows)), T.path, "At")
	}
	return T.rows[i][ci], nil
}

//isHeaderLine determines whether the line is a header line, i.e. whether
//any of its comma-separated fields is the header marker.
func isHeaderLine(line string) bool {
	for _, field := range strings.Split(line, ",") {
		if strings.TrimSpace(field) == HeaderMarker {
			return true
		}
	}
	return false
}

//Read parses the record table stream. Because the upstream writer may be
//paused and resumed and re-emit its header, the LAST header occurrence in
//the file is authoritative: rows are parsed starting from that line, and
//exact duplicate rows are dropped. filename is used to tag errors.
func Read(in io.Reader, filename string) (*Table, error) {
	lines := make([]string, 0, 64)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fep.NewValidationError(err.Error(), filename, "Read")
	}
	header := -1
	for i, line := range lines {
		if isHeaderLine(line) {
			header = i
		}
	}
	if header < 0 {
		return nil, fep.NewValidationError(fmt.Sprintf("missing header: no line contains the %q field", HeaderMarker), filename, "Read")
	}
	T := new(Table)
	T.path = filename
	T.cols = strings.Split(lines[header], ",")
	for i := range T.cols {
		T.cols[i] = strings.TrimSpace(T.cols[i])
	}
	T.ci = make(map[string]int, len(T.cols))
	for i, c := range T.cols {
		T.ci[c] = i
	}
	T.rows = make([][]float64, 0, len(lines)-header-1)
	seen := make(map[string]bool, len(lines)-header-1)
	for n, line := range lines[header+1:] {
		if seen[line] {
			continue //duplicate record from the pause/resume bug
		}
		seen[line] = true
		fields := strings.Split(line, ",")
		if len(fields) != len(T.cols) {
			return nil, fep.NewValidationError(
				fmt.Sprintf("row %d has %d fields, header has %d", n+1, len(fields), len(T.cols)), filename, "Read")
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fep.NewValidationError(
					fmt.Sprintf("row %d, field %q: %v", n+1, T.cols[i], err), filename, "Read")
			}
			row[i] = v
		}
		T.rows = append(T.rows, row)
	}
	return T, nil
}

//FileRead reads the record table in the file given by path.
func FileRead(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fep.NewValidationError(err.Error(), path, "FileRead")
	}
	defer f.Close()
	return Read(f, path)
}
