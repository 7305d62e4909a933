package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectStatus is the lifecycle state of a construction project
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "PLANNING"
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
	ProjectCompleted ProjectStatus = "COMPLETED"
)

// Valid reports whether the status is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted:
		return true
	}
	return false
}

// Project groups material orders, expenses, tasks and members
type Project struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	OwnerID   uint                `gorm:"not null;index" json:"owner_id"`
	Name      string              `gorm:"not null" json:"name"`
	Location  string              `json:"location"`
	Budget    decimal.NullDecimal `gorm:"type:decimal(16,2)" json:"budget"`
	Status    ProjectStatus       `gorm:"not null;default:'PLANNING'" json:"status"`
	Members   []ProjectMember     `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	Tasks     []Task              `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	DeletedAt gorm.DeletedAt      `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Project model
func (Project) TableName() string {
	return "projects"
}

// ProjectMember is the join row between projects and the users working on them
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_project_member" json:"project_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_project_member" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the ProjectMember model
func (ProjectMember) TableName() string {
	return "project_members"
}

// TaskStatus is the progress state of a project task
type TaskStatus string

const (
	TaskTodo       TaskStatus = "TODO"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// Valid reports whether the status is a known task status
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskDone:
		return true
	}
	return false
}

// Task is a unit of work on a project
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ProjectID   uint       `gorm:"not null;index" json:"project_id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	AssigneeID  *uint      `gorm:"index" json:"assignee_id"`
	Status      TaskStatus `gorm:"not null;default:'TODO'" json:"status"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for the Task model
func (Task) TableName() string {
	return "tasks"
}
