// route/errors.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import "errors"

var (
	ErrInvalidIndex     = errors.New("invalid route index")
	ErrEmptyRoute       = errors.New("route is empty")
	ErrProcedureLeg     = errors.New("leg belongs to a procedure")
	ErrNotAdjacent      = errors.New("move is not an adjacent swap")
	ErrNoRouteFound     = errors.New("no route found")
	ErrRouteTooIndirect = errors.New("found route rejected as too indirect")
	ErrUnknownWaypoint  = errors.New("unknown waypoint")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrNothingToRedo    = errors.New("nothing to redo")
)
