/*
 * work.go, part of gridfep.
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

//Package work derives validated, dimensionless protocol work values from
//per-gen record tables. A wrong-length table is a sign of a corrupted
//run, so shape mismatches fail fast with the expected and observed
//counts instead of silently truncating or padding.
package work

import (
	"fmt"

	fep "github.com/gridfep/gridfep"
	"github.com/gridfep/gridfep/records"
	"github.com/gridfep/gridfep/result"
)

//Protocol holds the constants of the nonequilibrium switching protocol.
//The checkpoint indices are fixed positions in the work series, decided
//by the protocol, never inferred from the data.
type Protocol struct {
	NumWorks     int `json:"num_works"`     //expected number of work records per gen
	NumSteps     int `json:"num_steps"`     //expected elapsed simulation steps per gen
	ForwardBegin int `json:"forward_begin"` //checkpoint where the forward switch starts
	ForwardEnd   int `json:"forward_end"`   //checkpoint where the forward switch ends
	ReverseBegin int `json:"reverse_begin"` //checkpoint where the reverse switch starts
	ReverseEnd   int `json:"reverse_end"`   //checkpoint where the reverse switch ends
}

//DefaultProtocol returns the constants of the currently deployed
//switching protocol.
func DefaultProtocol() *Protocol {
	return &Protocol{
		NumWorks:     41,
		NumSteps:     1000000,
		ForwardBegin: 10,
		ForwardEnd:   20,
		ReverseBegin: 30,
		ReverseEnd:   40,
	}
}

//Work is one validated work measurement for a (run, clone, gen) unit.
//All values are dimensionless (divided by kT). It is only built after
//the table passed shape validation, and not modified afterwards.
type Work struct {
	Path                  result.Path `json:"path"`
	ForwardWork           float64     `json:"forward_work"`
	ReverseWork           float64     `json:"reverse_work"`
	ForwardFinalPotential float64     `json:"forward_final_potential"`
	ReverseFinalPotential float64     `json:"reverse_final_potential"`
}

//numSteps returns the elapsed step count described in the table.
func numSteps(table *records.Table) (int, error) {
	if table.Len() == 0 {
		return 0, fep.NewValidationError("empty record table", table.Path(), "numSteps")
	}
	steps, err := table.Column("Step")
	if err != nil {
		return 0, fep.DecorateError(err, "numSteps")
	}
	return int(steps[len(steps)-1]) - int(steps[0]), nil
}

//nodims divides every value in series by scale.
func nodims(series []float64, scale float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = v / scale
	}
	return out
}

//Extract derives the forward and reverse dimensionless work and endpoint
//potential energies from the record table of the unit identified by
//path. It fails if the work series doesn't have exactly p.NumWorks
//entries or the elapsed steps aren't exactly p.NumSteps.
func Extract(table *records.Table, path result.Path, p *Protocol) (*Work, error) {
	if p == nil {
		p = DefaultProtocol()
	}
	steps, err := numSteps(table)
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	//The thermal energy scale comes from the first row; dividing by it
	//makes work and energy unit-independent for downstream statistics.
	kT, err := table.At(0, records.HeaderMarker)
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	if kT == 0 {
		return nil, fep.NewValidationError("kT is zero in first row", table.Path(), "Extract")
	}
	protocolWork, err := table.Column("protocol_work")
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	enew, err := table.Column("Enew")
	if err != nil {
		return nil, fep.DecorateError(err, "Extract")
	}
	workNodims := nodims(protocolWork, kT)
	enewNodims := nodims(enew, kT)
	if len(workNodims) != p.NumWorks {
		return nil, fep.NewValidationError(
			fmt.Sprintf("expected %d work values, but found %d", p.NumWorks, len(workNodims)), table.Path(), "Extract")
	}
	if steps != p.NumSteps {
		return nil, fep.NewValidationError(
			fmt.Sprintf("expected %d steps, but found %d", p.NumSteps, steps), table.Path(), "Extract")
	}
	//Checkpoint accesses are guarded so that a misconfigured protocol
	//surfaces as a validation error naming the row count, never as a
	//raw indexing fault.
	n := len(workNodims)
	for _, i := range []int{p.ForwardBegin, p.ForwardEnd, p.ReverseBegin, p.ReverseEnd} {
		if i < 0 || i >= n {
			return nil, fep.NewValidationError(
				fmt.Sprintf("checkpoint index %d out of range: table has %d work values", i, n), table.Path(), "Extract")
		}
	}
	return &Work{
		Path:                  path,
		ForwardWork:           workNodims[p.ForwardEnd] - workNodims[p.ForwardBegin],
		ReverseWork:           workNodims[p.ReverseEnd] - workNodims[p.ReverseBegin],
		ForwardFinalPotential: enewNodims[p.ForwardEnd],
		ReverseFinalPotential: enewNodims[p.ReverseEnd],
	}, nil
}

//ExtractFile reads and validates the record table of the unit identified
//by path and derives its work values.
func ExtractFile(path result.Path, p *Protocol) (*Work, error) {
	table, err := records.FileRead(path.Path)
	if err != nil {
		return nil, fep.DecorateError(err, "ExtractFile")
	}
	return Extract(table, path, p)
}

//MinReverseWork returns the measurement with the minimum reverse work,
//the structural representative of a run. Ties are broken by input order
//(the first minimal element wins). It fails if works is empty.
func MinReverseWork(works []*Work) (*Work, error) {
	if len(works) == 0 {
		return nil, fep.NewInvalidResultError("cannot select a representative from an empty set of works", "MinReverseWork")
	}
	min := works[0]
	for _, w := range works[1:] {
		if w.ReverseWork < min.ReverseWork {
			min = w
		}
	}
	return min, nil
}
