package models

import (
	"time"

	"gorm.io/gorm"
)

// Task statuses as rendered on the Kanban board
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
)

// Task represents a team-scoped unit of work produced from a goal or created
// manually on the board
type Task struct {
	gorm.Model
	TeamID uint `gorm:"not null;index" json:"team_id"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	Status   string `gorm:"default:'todo'" json:"status"` // todo, in-progress, completed
	Position int    `gorm:"default:0" json:"position"`    // ordering within the status column

	Deadline   *time.Time `json:"deadline,omitempty"`
	AssignedTo *uint      `gorm:"index" json:"assigned_to,omitempty"`

	// 1-3 labels from the fixed taxonomy, attached by tag inference
	Tags []string `gorm:"type:jsonb;serializer:json" json:"tags,omitempty"`

	// Relations
	Team     Team      `json:"-"`
	Subtasks []Subtask `gorm:"foreignKey:TaskID" json:"subtasks,omitempty"`
}

// Subtask is a finer-grained unit of work under one task
type Subtask struct {
	gorm.Model
	TaskID uint `gorm:"not null;index" json:"task_id"`

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`

	IsCompleted bool   `gorm:"default:false" json:"is_completed"`
	Position    int    `gorm:"default:0" json:"position"`
	Status      string `gorm:"default:'todo'" json:"status"`
	Priority    string `gorm:"default:'medium'" json:"priority"`

	Deadline   *time.Time `json:"deadline,omitempty"`
	AssignedTo *uint      `gorm:"index" json:"assigned_to,omitempty"`

	// Relations
	Task Task `json:"-"`
}

// TaskAssignment is an append-only audit record: one row per allocation
// event, never updated
type TaskAssignment struct {
	gorm.Model
	TaskID     uint `gorm:"not null;index" json:"task_id"`
	AssignedTo uint `gorm:"not null" json:"assigned_to"`
	AssignedBy uint `gorm:"not null" json:"assigned_by"`
}

// SubtaskAssignment mirrors TaskAssignment for subtasks
type SubtaskAssignment struct {
	gorm.Model
	SubtaskID  uint `gorm:"not null;index" json:"subtask_id"`
	AssignedTo uint `gorm:"not null" json:"assigned_to"`
	AssignedBy uint `gorm:"not null" json:"assigned_by"`
}
