/*
 * dcd_test.go, part of gridfep.
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
	"compress/gzip"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	fep "github.com/gridfep/gridfep"
	"github.com/gridfep/gridfep/vec"
)

//writeSample writes a little trajectory with nframes frames of natoms
//atoms and returns its path. Atom j of frame i sits at (i+j, i, j).
func writeSample(Te *testing.T, dir string, natoms, nframes int) string {
	path := filepath.Join(dir, "sample.dcd")
	w, err := NewWriter(path, natoms)
	if err != nil {
		Te.Fatal(err)
	}
	for i := 0; i < nframes; i++ {
		frame := vec.Zeros(natoms)
		for j := 0; j < natoms; j++ {
			frame.Set(j, 0, float64(i+j))
			frame.Set(j, 1, float64(i))
			frame.Set(j, 2, float64(j))
		}
		if err := w.WNext(frame); err != nil {
			Te.Fatal(err)
		}
	}
	w.Close()
	return path
}

func checkSample(Te *testing.T, path string, natoms, nframes int) {
	traj, err := New(path)
	if err != nil {
		Te.Fatal(err)
	}
	defer traj.Close()
	if traj.Len() != natoms {
		Te.Fatalf("expected %d atoms, got %d", natoms, traj.Len())
	}
	read := 0
	frame := vec.Zeros(natoms)
	for {
		err := traj.Next(frame)
		if err != nil {
			if _, ok := err.(fep.LastFrameError); ok {
				break
			}
			Te.Fatal(err)
		}
		for j := 0; j < natoms; j++ {
			if math.Abs(frame.At(j, 0)-float64(read+j)) > 1e-6 || frame.At(j, 2) != float64(j) {
				Te.Fatalf("frame %d atom %d misread: %v", read, j, frame.VecView(j))
			}
		}
		read++
	}
	if read != nframes {
		Te.Errorf("expected %d frames, read %d", nframes, read)
	}
}

func TestDCDRoundTrip(Te *testing.T) {
	path := writeSample(Te, Te.TempDir(), 7, 3)
	checkSample(Te, path, 7, 3)
}

func TestDCDCompressed(Te *testing.T) {
	dir := Te.TempDir()
	plain := writeSample(Te, dir, 5, 2)
	raw, err := os.ReadFile(plain)
	if err != nil {
		Te.Fatal(err)
	}
	zw, err := zstd.NewWriter(nil)
	if err != nil {
		Te.Fatal(err)
	}
	zpath := filepath.Join(dir, "sample.dcd.zst")
	if err := os.WriteFile(zpath, zw.EncodeAll(raw, nil), 0o644); err != nil {
		Te.Fatal(err)
	}
	checkSample(Te, zpath, 5, 2)

	gpath := filepath.Join(dir, "sample.dcd.gz")
	gf, err := os.Create(gpath)
	if err != nil {
		Te.Fatal(err)
	}
	gz := gzip.NewWriter(gf)
	if _, err := gz.Write(raw); err != nil {
		Te.Fatal(err)
	}
	gz.Close()
	gf.Close()
	checkSample(Te, gpath, 5, 2)
}

func TestDCDSkipFrames(Te *testing.T) {
	path := writeSample(Te, Te.TempDir(), 4, 3)
	traj, err := New(path)
	if err != nil {
		Te.Fatal(err)
	}
	defer traj.Close()
	//a nil output discards the frame
	if err := traj.Next(nil); err != nil {
		Te.Fatal(err)
	}
	frame := vec.Zeros(4)
	if err := traj.Next(frame); err != nil {
		Te.Fatal(err)
	}
	if frame.At(0, 1) != 1 {
		Te.Errorf("skip landed on the wrong frame: %f", frame.At(0, 1))
	}
}

func TestDCDBadFile(Te *testing.T) {
	dir := Te.TempDir()
	path := filepath.Join(dir, "bad.dcd")
	if err := os.WriteFile(path, []byte("not a trajectory at all"), 0o644); err != nil {
		Te.Fatal(err)
	}
	if _, err := New(path); err == nil {
		Te.Error("expected an error for a malformed file")
	}
}
