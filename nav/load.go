// nav/load.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package nav

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// navData is the on-disk JSON shape of a navigation database file.
type navData struct {
	Airports []*Airport `json:"airports"`
	Navaids  []*Navaid  `json:"navaids"`
	Fixes    []*Fix     `json:"fixes"`
	Airways  []*Airway  `json:"airways"`
}

// LoadJSON reads a navigation database from a JSON file; files with a
// .zst suffix are zstd-compressed.
func LoadJSON(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return LoadJSONBytes(b)
}

// LoadJSONBytes builds a database from in-memory JSON, for embedded or
// test data.
func LoadJSONBytes(b []byte) (*Database, error) {
	var data navData
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}

	db := newDatabase()
	for _, ap := range data.Airports {
		db.Airports[ap.Ident] = ap
	}
	for _, n := range data.Navaids {
		db.Navaids[n.Ident] = n
	}
	for _, fix := range data.Fixes {
		db.Fixes[fix.Ident] = fix
	}
	for _, a := range data.Airways {
		db.Airways[a.Name] = a
	}

	db.assignIDs()
	db.Checksum = fmt.Sprintf("%x", sha256.Sum256(b))
	return db, nil
}
