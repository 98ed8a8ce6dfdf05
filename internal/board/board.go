// Package board contains the pure kanban board logic: grouping issues into
// ordered columns, resolving drag-and-drop targets into concrete slots, and
// applying single-issue moves with rollback support.
//
// Nothing in this package touches the database. Callers load statuses and
// issues, run the transform, and persist only the one row a move changed.
// Keeping the reducer pure makes the drag-and-drop semantics directly
// testable and lets the HTTP layer apply a move optimistically and roll it
// back if persistence fails.
package board

import (
	"errors"
	"sort"

	"github.com/tbourn/go-issue-board/internal/domain"
)

var (
	// ErrUnknownStatus means the drop target references a column that does
	// not exist on the board.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrUnknownIssue means the referenced issue is not on the board.
	ErrUnknownIssue = errors.New("unknown issue")
)

// Column is one rendered kanban lane: a status plus its issues in display
// order. OverWIP is advisory; it flags lanes above their WIP limit but never
// blocks a move.
type Column struct {
	Status  domain.Status  `json:"status"`
	Issues  []domain.Issue `json:"issues"`
	OverWIP bool           `json:"over_wip"`
}

// Columns groups issues into lanes ordered by status position. Issues inside
// a lane sort by position ascending; duplicate positions keep their input
// order, so a freshly moved issue renders in the slot ApplyMove placed it.
// Issues whose status is not in statuses are dropped (their column was
// deleted).
func Columns(statuses []domain.Status, issues []domain.Issue) []Column {
	ordered := make([]domain.Status, len(statuses))
	copy(ordered, statuses)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	byStatus := make(map[string][]domain.Issue, len(ordered))
	for _, is := range issues {
		byStatus[is.StatusID] = append(byStatus[is.StatusID], is)
	}

	cols := make([]Column, 0, len(ordered))
	for _, st := range ordered {
		lane := byStatus[st.ID]
		sort.SliceStable(lane, func(i, j int) bool { return lane[i].Position < lane[j].Position })
		over := st.WIPLimit != nil && len(lane) > *st.WIPLimit
		cols = append(cols, Column{Status: st, Issues: lane, OverWIP: over})
	}
	return cols
}

// DropTarget describes where a dragged issue was released: always a column,
// optionally a specific card inside it.
type DropTarget struct {
	StatusID string `json:"status_id"`
	IssueID  string `json:"issue_id,omitempty"`
}

// Placement is a concrete slot on the board.
type Placement struct {
	StatusID string `json:"status_id"`
	Index    int    `json:"index"`
}

// ResolveDropTarget converts a drop target into a placement against the
// current board layout. Dropping onto empty column space appends (index is
// the lane length); dropping onto a card takes that card's current index, so
// the moved issue lands where the card was.
func ResolveDropTarget(cols []Column, t DropTarget) (Placement, error) {
	for _, col := range cols {
		if col.Status.ID != t.StatusID {
			continue
		}
		if t.IssueID == "" {
			return Placement{StatusID: t.StatusID, Index: len(col.Issues)}, nil
		}
		for i, is := range col.Issues {
			if is.ID == t.IssueID {
				return Placement{StatusID: t.StatusID, Index: i}, nil
			}
		}
		return Placement{}, ErrUnknownIssue
	}
	return Placement{}, ErrUnknownStatus
}

// Move records the placement change of one issue: where it was and where it
// went. It doubles as the undo token for rollback.
type Move struct {
	IssueID string    `json:"issue_id"`
	From    Placement `json:"from"`
	To      Placement `json:"to"`
}

// ApplyMove mutates the moved issue's StatusID and Position and relocates it
// within the slice so it sits immediately before the card currently rendered
// at to.Index in the target lane (or at the end for an append). Sibling
// fields are never touched; their positions may end up duplicated with the
// moved issue's, and the input-order tiebreak in Columns then renders the
// moved issue in the slot it took. Returns the Move describing the change.
func ApplyMove(issues []domain.Issue, issueID string, to Placement) (Move, error) {
	src := -1
	for i := range issues {
		if issues[i].ID == issueID {
			src = i
			break
		}
	}
	if src < 0 {
		return Move{}, ErrUnknownIssue
	}
	m := Move{
		IssueID: issueID,
		From:    Placement{StatusID: issues[src].StatusID, Index: issues[src].Position},
		To:      to,
	}
	moved := issues[src]
	moved.StatusID = to.StatusID
	moved.Position = to.Index

	// Take the moved issue out, then find the flat index of the card that
	// renders at to.Index in the target lane among the remaining issues.
	copy(issues[src:], issues[src+1:])
	rest := issues[:len(issues)-1]

	lane := make([]int, 0, len(rest))
	for i := range rest {
		if rest[i].StatusID == to.StatusID {
			lane = append(lane, i)
		}
	}
	sort.SliceStable(lane, func(a, b int) bool { return rest[lane[a]].Position < rest[lane[b]].Position })

	at := len(rest)
	if to.Index >= 0 && to.Index < len(lane) {
		at = lane[to.Index]
	}
	copy(issues[at+1:], issues[at:len(issues)-1])
	issues[at] = moved
	return m, nil
}

// Undo reverts a previously applied move, restoring the issue's original
// placement. Unknown issues are ignored (the board may have been reloaded).
func Undo(issues []domain.Issue, m Move) {
	for i := range issues {
		if issues[i].ID == m.IssueID {
			issues[i].StatusID = m.From.StatusID
			issues[i].Position = m.From.Index
			return
		}
	}
}
