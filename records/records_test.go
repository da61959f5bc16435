/*
 * records_test.go, part of gridfep.
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

package records

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fep "github.com/gridfep/gridfep"
)

func TestReadSimple(Te *testing.T) {
	in := "kT,protocol_work,Enew,Nsteps\n2.5,0.0,1.0,0\n2.5,0.5,1.1,100\n"
	table, err := Read(strings.NewReader(in), "globals.csv")
	require.NoError(Te, err)
	assert.Equal(Te, 2, table.Len())
	assert.Equal(Te, []string{"kT", "protocol_work", "Enew", "Nsteps"}, table.Columns())
	assert.True(Te, table.Has("Enew"))
	v, err := table.At(1, "protocol_work")
	require.NoError(Te, err)
	assert.Equal(Te, 0.5, v)
	col, err := table.Column("Nsteps")
	require.NoError(Te, err)
	assert.Equal(Te, []float64{0, 100}, col)
}

//A paused and resumed writer re-emits the header mid-file; only the rows
//after the last header count.
func TestReadRepeatedHeader(Te *testing.T) {
	in := strings.Join([]string{
		"kT,protocol_work,Nsteps",
		"2.5,0.0,0",
		"2.5,0.5,100",
		"kT,protocol_work,Nsteps",
		"2.5,0.0,0",
		"2.5,0.5,100",
		"2.5,0.7,200",
	}, "\n")
	table, err := Read(strings.NewReader(in), "globals.csv")
	require.NoError(Te, err)
	assert.Equal(Te, 3, table.Len())
	last, err := table.At(2, "Nsteps")
	require.NoError(Te, err)
	assert.Equal(Te, 200.0, last)
}

func TestReadDuplicateRows(Te *testing.T) {
	in := strings.Join([]string{
		"kT,protocol_work",
		"2.5,0.0",
		"2.5,0.0",
		"2.5,0.5",
	}, "\n")
	table, err := Read(strings.NewReader(in), "globals.csv")
	require.NoError(Te, err)
	assert.Equal(Te, 2, table.Len())
}

func TestReadMissingHeader(Te *testing.T) {
	in := "1.0,2.0\n3.0,4.0\n"
	_, err := Read(strings.NewReader(in), "globals.csv")
	require.Error(Te, err)
	assert.True(Te, fep.IsValidation(err))
	assert.Contains(Te, err.Error(), "globals.csv")
}

func TestReadBadRows(Te *testing.T) {
	//wrong field count
	_, err := Read(strings.NewReader("kT,protocol_work\n2.5\n"), "globals.csv")
	require.Error(Te, err)
	assert.True(Te, fep.IsValidation(err))
	//non-numeric field
	_, err = Read(strings.NewReader("kT,protocol_work\n2.5,broken\n"), "globals.csv")
	require.Error(Te, err)
	assert.True(Te, fep.IsValidation(err))
}

func TestAtOutOfRange(Te *testing.T) {
	table, err := Read(strings.NewReader("kT\n2.5\n"), "globals.csv")
	require.NoError(Te, err)
	_, err = table.At(5, "kT")
	require.Error(Te, err)
	assert.Contains(Te, err.Error(), "1 rows")
	_, err = table.At(0, "nope")
	require.Error(Te, err)
}
