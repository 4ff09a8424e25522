// Package ranking produces the deterministic display order for task and
// room snapshots. All functions are pure: the same snapshot, viewer and
// clock reading always yield the same order.
package ranking

import (
	"sort"
	"time"

	"taskcolab/internal/models"
)

// UrgencyRank maps urgency to its comparison weight. Only an explicit
// "medium" earns 2; anything unset or unknown ranks with "low".
func UrgencyRank(u models.Urgency) int {
	switch u {
	case models.UrgencyHigh:
		return 3
	case models.UrgencyMedium:
		return 2
	default:
		return 1
	}
}

// Rank sorts tasks for display, in place, stable. Discriminators in order,
// first non-tie wins:
//
//  1. overdue (dueAt in the past) before everything else
//  2. higher urgency rank first
//  3. earlier dueAt first; no dueAt sorts last
//  4. tasks assigned to the viewer first, when the viewer is known
//  5. later createdAt first
func Rank(tasks []models.Task, viewerID string, now time.Time) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(&tasks[i], &tasks[j], viewerID, now)
	})
}

// Ranked returns a ranked copy, leaving the snapshot untouched.
func Ranked(tasks []models.Task, viewerID string, now time.Time) []models.Task {
	out := make([]models.Task, len(tasks))
	copy(out, tasks)
	Rank(out, viewerID, now)
	return out
}

func less(a, b *models.Task, viewerID string, now time.Time) bool {
	overA := overdue(a, now)
	overB := overdue(b, now)
	if overA != overB {
		return overA
	}

	ua, ub := UrgencyRank(a.Urgency), UrgencyRank(b.Urgency)
	if ua != ub {
		return ua > ub
	}

	da, daOK := dueMillis(a)
	db, dbOK := dueMillis(b)
	if daOK != dbOK {
		return daOK // a due date beats no due date
	}
	if daOK && da != db {
		return da < db
	}

	if viewerID != "" {
		mineA := assignedTo(a, viewerID)
		mineB := assignedTo(b, viewerID)
		if mineA != mineB {
			return mineA
		}
	}

	return a.CreatedAt.After(b.CreatedAt)
}

func overdue(t *models.Task, now time.Time) bool {
	return t.DueAt != nil && t.DueAt.Before(now)
}

func dueMillis(t *models.Task) (int64, bool) {
	if t.DueAt == nil {
		return 0, false
	}
	return t.DueAt.UnixMilli(), true
}

func assignedTo(t *models.Task, viewerID string) bool {
	for _, a := range t.Assignees {
		if a == viewerID {
			return true
		}
	}
	return false
}

// FilterAssignedTo keeps only tasks assigned to the viewer, preserving
// relative order. Applied after ranking, never before.
func FilterAssignedTo(tasks []models.Task, viewerID string) []models.Task {
	if viewerID == "" {
		return tasks
	}
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if assignedTo(&t, viewerID) {
			out = append(out, t)
		}
	}
	return out
}

// TasksByUpdatedAtDesc recovers the server's recency order client-side:
// updatedAt descending, stable. Used while a task target runs its fallback
// subscription.
func TasksByUpdatedAtDesc(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].UpdatedAt.After(tasks[j].UpdatedAt)
	})
}

// RoomsByUpdatedAtDesc is the same recovery for the rooms target.
func RoomsByUpdatedAtDesc(rooms []models.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
	})
}
