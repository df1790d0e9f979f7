// route/undo.go
// Copyright(c) 2025 flyplan contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package route

import (
	"github.com/brunoga/deep"
)

// DefaultUndoLimit bounds the undo history; the oldest command is
// evicted when it is exceeded.
const DefaultUndoLimit = 50

// CommandType classifies undo commands for merge eligibility:
// consecutive commands of a mergeable type collapse into one step.
type CommandType int

const (
	CommandEdit CommandType = iota
	CommandCalculate
	CommandProcedure
	CommandAltitude // mergeable: rapid consecutive altitude edits
	CommandReverse
)

func (t CommandType) mergeable() bool { return t == CommandAltitude }

// RouteCommand is one undoable step: the full flight plan value before
// and after, with procedure-generated entries filtered out since
// procedures are regenerated from the plan's specs on replay.
type RouteCommand struct {
	Before Flightplan
	After  Flightplan
	Text   string
	Type   CommandType
}

// UndoStack is a bounded stack of flight plan snapshots. It is a pure
// value store: replay goes through Route.ApplySnapshot, and the stack
// holds no reference into any live Route.
type UndoStack struct {
	commands []*RouteCommand
	index    int // last applied command; -1 when at the bottom
	clean    int // index matching the last-saved state; neverClean if unreachable
	limit    int
}

const neverClean = -2

func NewUndoStack(limit int) *UndoStack {
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	return &UndoStack{index: -1, clean: -1, limit: limit}
}

// PreChange captures the current plan as the before-state of a pending
// command. The command is not recorded until PostChange.
func (u *UndoStack) PreChange(text string, typ CommandType, plan Flightplan) *RouteCommand {
	return &RouteCommand{
		Before: deep.MustCopy(plan).RemoveProcedureEntries(),
		Text:   text,
		Type:   typ,
	}
}

// PostChange captures the after-state and records the command. A
// mergeable command following one of the same type updates the top of
// the stack instead of pushing; otherwise any redo tail is discarded,
// the command is pushed, and the bottom is evicted past the limit.
func (u *UndoStack) PostChange(cmd *RouteCommand, plan Flightplan) {
	cmd.After = deep.MustCopy(plan).RemoveProcedureEntries()

	if cmd.Type.mergeable() && u.index >= 0 && u.index == len(u.commands)-1 {
		if top := u.commands[u.index]; top.Type == cmd.Type {
			top.After = cmd.After
			top.Text = cmd.Text
			if u.clean == u.index {
				u.clean = neverClean
			}
			return
		}
	}

	// Pushing invalidates anything that was undone.
	if u.index < len(u.commands)-1 {
		u.commands = u.commands[:u.index+1]
		if u.clean > u.index {
			u.clean = neverClean
		}
	}

	u.commands = append(u.commands, cmd)
	u.index = len(u.commands) - 1

	if len(u.commands) > u.limit {
		u.commands = u.commands[1:]
		u.index--
		if u.clean >= 0 {
			u.clean--
		} else if u.clean == -1 {
			// The pre-history state fell off; it can never be reached again.
			u.clean = neverClean
		}
	}
}

func (u *UndoStack) CanUndo() bool { return u.index >= 0 }
func (u *UndoStack) CanRedo() bool { return u.index < len(u.commands)-1 }

// Undo steps the cursor back and returns the snapshot to apply plus the
// command's label. Undo itself is not recorded.
func (u *UndoStack) Undo() (Flightplan, string, error) {
	if !u.CanUndo() {
		return Flightplan{}, "", ErrNothingToUndo
	}
	cmd := u.commands[u.index]
	u.index--
	return cmd.Before, cmd.Text, nil
}

// Redo steps the cursor forward and returns the snapshot to apply plus
// the command's label.
func (u *UndoStack) Redo() (Flightplan, string, error) {
	if !u.CanRedo() {
		return Flightplan{}, "", ErrNothingToRedo
	}
	u.index++
	cmd := u.commands[u.index]
	return cmd.After, cmd.Text, nil
}

// SetClean marks the current position as matching the saved state.
func (u *UndoStack) SetClean() { u.clean = u.index }

// HasChanged reports whether the plan differs from the last-saved state.
func (u *UndoStack) HasChanged() bool { return u.index != u.clean }

// Clear empties the history, as when a new plan replaces the current
// one.
func (u *UndoStack) Clear() {
	u.commands = nil
	u.index = -1
	u.clean = -1
}

func (u *UndoStack) Len() int { return len(u.commands) }

// UndoText returns the label of the command Undo would revert, "" if
// none.
func (u *UndoStack) UndoText() string {
	if !u.CanUndo() {
		return ""
	}
	return u.commands[u.index].Text
}

// RedoText returns the label of the command Redo would reapply, "" if
// none.
func (u *UndoStack) RedoText() string {
	if !u.CanRedo() {
		return ""
	}
	return u.commands[u.index+1].Text
}
