// cmd/flyplan/main_test.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"testing"

	"github.com/flyplan/flyplan/nav"
	"github.com/flyplan/flyplan/route"
)

func testDatabase(t *testing.T) *nav.Database {
	t.Helper()
	db, err := nav.LoadJSONBytes([]byte(`{
  "airports": [
    {"ident": "KAAA", "name": "Alpha Field", "location": "40,-79.3",
     "runways": [{"id": "9", "heading": 90, "threshold": "40,-79.3", "length": 10000}]},
    {"ident": "KBBB", "name": "Bravo Field", "location": "40,-68.7",
     "runways": [{"id": "27", "heading": 270, "threshold": "40,-68.7", "length": 10000}]}
  ],
  "fixes": [
    {"ident": "ALPHA", "location": "40,-77"},
    {"ident": "BRAVO", "location": "40,-74"},
    {"ident": "CHARL", "location": "40,-71"},
    {"ident": "DELTA", "location": "41,-74"}
  ],
  "airways": [
    {"name": "T161", "level": 1,
     "fixes": [{"fix": "ALPHA"}, {"fix": "BRAVO"}, {"fix": "CHARL"}]}
  ]
}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return db
}

func TestBuildRouteAirwayExpansion(t *testing.T) {
	db := testDatabase(t)
	c := route.NewController(db, nil, nil, route.Options{})

	if err := buildRoute(c, db, []string{"kaaa", "ALPHA", "T161", "CHARL", "KBBB"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := c.Plan().Entries
	want := []string{"KAAA", "ALPHA", "BRAVO", "CHARL", "KBBB"}
	if len(entries) != len(want) {
		t.Fatalf("route has %d entries, expected %d: %+v", len(entries), len(want), entries)
	}
	for i, e := range entries {
		if e.Ident != want[i] {
			t.Errorf("entry %d is %s, expected %s", i, e.Ident, want[i])
		}
	}

	// The airway name survives on every leg along it, including the
	// filled-in intermediate fix.
	for _, i := range []int{2, 3} {
		if entries[i].Airway != "T161" {
			t.Errorf("entry %d (%s) lost its airway: %q", i, entries[i].Ident, entries[i].Airway)
		}
	}
	for _, i := range []int{0, 1, 4} {
		if entries[i].Airway != "" {
			t.Errorf("entry %d (%s) has unexpected airway %q", i, entries[i].Ident, entries[i].Airway)
		}
	}

	// The whole route string is one undo step.
	if _, err := c.Undo(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Route().Size() != 0 {
		t.Errorf("undo left %d entries", c.Route().Size())
	}
}

func TestBuildRouteErrors(t *testing.T) {
	db := testDatabase(t)

	c := route.NewController(db, nil, nil, route.Options{})
	if err := buildRoute(c, db, []string{"KAAA", "ALPHA", "T161"}); err == nil {
		t.Errorf("trailing airway token accepted")
	}

	c = route.NewController(db, nil, nil, route.Options{})
	if err := buildRoute(c, db, []string{"KAAA", "ALPHA", "T161", "DELTA"}); err == nil {
		t.Errorf("airway link to a fix off the airway accepted")
	}
}
