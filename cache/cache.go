/*
 * cache.go, part of gridfep.
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

//Package cache memoizes atom-index resolution on disk. Resolving a run
//loads a large auxiliary structure but is pure in the run path, so the
//result is stored once per run, keyed by the run path, and shared
//read-mostly across processes. Entries never expire: callers that need
//fresh results after changing the underlying files must clear the cache
//directory.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gridfep/gridfep/hybrid"
	"github.com/klauspost/compress/zstd"
)

//entryName returns the cache file name for a run path: the entry is
//content-addressable by the run path alone.
func entryName(runDir string) string {
	h := sha256.Sum256([]byte(runDir))
	return hex.EncodeToString(h[:]) + ".json.zst"
}

//read loads and decodes one cache entry.
func read(path string) (*hybrid.IndexMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, err
	}
	m := new(hybrid.IndexMap)
	if err := json.Unmarshal(plain, m); err != nil {
		return nil, err
	}
	return m, nil
}

//write encodes and publishes one cache entry. The entry is written to a
//temporary file and renamed into place, so concurrent writers for the
//same run overwrite each other whole, never interleave.
func write(path string, m *hybrid.IndexMap) error {
	plain, err := json.Marshal(m)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	raw := enc.EncodeAll(plain, nil)
	enc.Close()
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

//Memoized wraps resolve with a disk cache in dir. A hit short-circuits
//to the stored entry; a miss (or an unreadable entry) recomputes and
//overwrites. Calls for the same run within this process are additionally
//deduplicated so the expensive load runs at most once at a time per run.
func Memoized(dir string, resolve hybrid.ResolveFunc) hybrid.ResolveFunc {
	var mu sync.Mutex
	inflight := make(map[string]*sync.Mutex)
	return func(runDir string) (*hybrid.IndexMap, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache dir: %w", err)
		}
		//at most one concurrent computation per run in this process
		mu.Lock()
		lock, ok := inflight[runDir]
		if !ok {
			lock = new(sync.Mutex)
			inflight[runDir] = lock
		}
		mu.Unlock()
		lock.Lock()
		defer lock.Unlock()
		entry := filepath.Join(dir, entryName(runDir))
		if m, err := read(entry); err == nil {
			return m, nil
		}
		//A miss or a corrupted entry: recompute and overwrite.
		m, err := resolve(runDir)
		if err != nil {
			return nil, err
		}
		if err := write(entry, m); err != nil {
			return nil, fmt.Errorf("cache write for %s: %w", runDir, err)
		}
		return m, nil
	}
}
