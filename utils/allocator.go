package utils

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"taskforge/models"
)

// DeadlinePolicy selects how subtask deadlines are spaced out.
type DeadlinePolicy string

const (
	// DeadlineSequential staggers deadlines by item order, with a wider
	// stride for complex items.
	DeadlineSequential DeadlinePolicy = "sequential"
	// DeadlineRandom picks a uniform deadline between 3 and 7 days out.
	DeadlineRandom DeadlinePolicy = "random"
)

var ErrNoMembers = errors.New("team has no members to assign work to")

// Assignee is one team member in the allocation roster.
type Assignee struct {
	UserID   uint
	JoinedAt time.Time
}

// Roster builds a deterministic allocation roster from team members. Members
// are ordered by join time, then by user ID, so repeated runs walk the team
// in the same order.
func Roster(members []models.TeamMember) []Assignee {
	roster := make([]Assignee, 0, len(members))
	for _, m := range members {
		roster = append(roster, Assignee{
			UserID:   m.UserID,
			JoinedAt: m.JoinedAt,
		})
	}
	sort.Slice(roster, func(i, j int) bool {
		if !roster[i].JoinedAt.Equal(roster[j].JoinedAt) {
			return roster[i].JoinedAt.Before(roster[j].JoinedAt)
		}
		return roster[i].UserID < roster[j].UserID
	})
	return roster
}

// PlanAssignments distributes n items across the roster, always handing the
// next item to the member with the fewest items assigned during this run.
// Counters start at zero for every member. Ties go to the earlier roster
// position. The returned slice has one user ID per item, in item order.
func PlanAssignments(roster []Assignee, n int) ([]uint, error) {
	if len(roster) == 0 {
		return nil, ErrNoMembers
	}

	counts := make([]int, len(roster))
	assigned := make([]uint, n)
	for item := 0; item < n; item++ {
		best := 0
		for i := 1; i < len(counts); i++ {
			if counts[i] < counts[best] {
				best = i
			}
		}
		assigned[item] = roster[best].UserID
		counts[best]++
	}
	return assigned, nil
}

// BulkTaskDeadline spaces deadlines for a batch of freshly generated tasks:
// the i-th task is due 7 + i/2 days from now, capped at 14 days.
func BulkTaskDeadline(now time.Time, i int) time.Time {
	days := 7 + i/2
	if days > 14 {
		days = 14
	}
	return now.AddDate(0, 0, days)
}

// IsComplexSubtask reports whether a subtask should get the wider deadline
// stride. Long descriptions and research/design/implementation work qualify.
func IsComplexSubtask(title, description string) bool {
	if len(description) > 150 {
		return true
	}
	lower := strings.ToLower(title)
	return strings.Contains(lower, "research") ||
		strings.Contains(lower, "design") ||
		strings.Contains(lower, "implement")
}

// SequentialSubtaskDeadline places the i-th subtask 1 + i*stride days out,
// where the stride is 2 for complex subtasks and 1 otherwise.
func SequentialSubtaskDeadline(now time.Time, i int, complex bool) time.Time {
	stride := 1
	if complex {
		stride = 2
	}
	return now.AddDate(0, 0, 1+i*stride)
}

// RandomSubtaskDeadline picks a deadline uniformly between 3 and 7 days out.
func RandomSubtaskDeadline(now time.Time, rng *rand.Rand) time.Time {
	return now.AddDate(0, 0, 3+rng.Intn(5))
}
