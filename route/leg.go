// route/leg.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"fmt"

	"github.com/flyplan/flyplan/nav"
)

// RouteLeg binds one flight plan entry to its resolved database object
// and the derived geometry from the previous leg. Legs are recomputed,
// never edited; the entry sequence is the ground truth.
type RouteLeg struct {
	Entry FlightplanEntry
	Ref   nav.Ref // resolved database object; zero if KindUser or KindInvalid

	CourseTrue float32 // degrees from the previous leg; 0 for the first leg
	CourseMag  float32
	Distance   float32 // nm from the previous leg
	CumDist    float32 // nm from the departure
}

// IsProcedure reports whether the leg is owned by a procedure range and
// therefore not individually editable.
func (l *RouteLeg) IsProcedure() bool { return l.Entry.Procedure != ProcedureNone }

// IsEnroute reports whether the leg is a free enroute leg.
func (l *RouteLeg) IsEnroute() bool { return l.Entry.Procedure == ProcedureNone }

func (l *RouteLeg) IsValid() bool { return l.Entry.Kind != KindInvalid }

func (l *RouteLeg) String() string {
	if l.IsProcedure() {
		return fmt.Sprintf("%s [%s]", l.Entry.Ident, l.Entry.Procedure)
	}
	if l.Entry.Airway != "" {
		return fmt.Sprintf("%s %s", l.Entry.Airway, l.Entry.Ident)
	}
	return l.Entry.Ident
}
