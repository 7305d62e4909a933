package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildmart/marketplace-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProjectService manages projects and their tasks
type ProjectService struct {
	db *gorm.DB
}

// NewProjectService creates a project service backed by db
func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

// ProjectInput holds the fields of a new project
type ProjectInput struct {
	Name     string
	Location string
	Status   models.ProjectStatus
}

// TaskInput holds the fields of a new task
type TaskInput struct {
	Title       string
	Description string
	AssigneeID  *uint
	DueDate     *time.Time
}

// loadAccessibleProject returns the project when the user owns it or is a member
func loadAccessibleProject(db *gorm.DB, userID, projectID uint) (*models.Project, error) {
	var project models.Project
	if err := db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}
	if project.OwnerID == userID {
		return &project, nil
	}

	var members int64
	err := db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&members).Error
	if err != nil {
		return nil, fmt.Errorf("check project membership: %w", err)
	}
	if members == 0 {
		return nil, ErrForbidden.WithMessage("You are not a member of project %d", projectID)
	}
	return &project, nil
}

// loadOwnedProject returns the project only when the user owns it
func loadOwnedProject(db *gorm.DB, userID, projectID uint) (*models.Project, error) {
	project, err := loadAccessibleProject(db, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != userID {
		return nil, ErrForbidden.WithMessage("Only the project owner can do this")
	}
	return project, nil
}

// CreateProject creates a project owned by the principal
func (s *ProjectService) CreateProject(ctx context.Context, p Principal, in ProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrMissingField.WithMessage("name is required")
	}
	status := in.Status
	if status == "" {
		status = models.ProjectPlanning
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus.WithMessage("Unknown project status %q", status)
	}

	project := models.Project{
		OwnerID:  p.UserID,
		Name:     name,
		Location: strings.TrimSpace(in.Location),
		Status:   status,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	log.Info().Uint("project_id", project.ID).Uint("owner_id", p.UserID).Msg("project created")
	return &project, nil
}

// ListMyProjects returns projects the principal owns or is a member of
func (s *ProjectService) ListMyProjects(ctx context.Context, p Principal) ([]models.Project, error) {
	projects := []models.Project{}
	memberOf := s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", p.UserID)
	err := s.db.WithContext(ctx).
		Where("owner_id = ? OR id IN (?)", p.UserID, memberOf).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns a project with its tasks and members
func (s *ProjectService) GetProject(ctx context.Context, p Principal, projectID uint) (*models.Project, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadAccessibleProject(db, p.UserID, projectID); err != nil {
		return nil, err
	}
	var project models.Project
	if err := db.Preload("Tasks").Preload("Members.User").First(&project, projectID).Error; err != nil {
		return nil, fmt.Errorf("load project %d: %w", projectID, err)
	}
	return &project, nil
}

// CreateTask adds a TODO task to a project the principal can access
func (s *ProjectService) CreateTask(ctx context.Context, p Principal, projectID uint, in TaskInput) (*models.Task, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadAccessibleProject(db, p.UserID, projectID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrMissingField.WithMessage("title is required")
	}

	task := models.Task{
		ProjectID:   projectID,
		Title:       title,
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
		Status:      models.TaskTodo,
		DueDate:     in.DueDate,
	}
	if err := db.Create(&task).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// UpdateTask changes a task's status
func (s *ProjectService) UpdateTask(ctx context.Context, p Principal, taskID uint, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus.WithMessage("Status must be TODO, IN_PROGRESS or DONE")
	}

	db := s.db.WithContext(ctx)
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task %d: %w", taskID, err)
	}
	if _, err := loadAccessibleProject(db, p.UserID, task.ProjectID); err != nil {
		return nil, err
	}

	if err := db.Model(&task).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("update task %d: %w", taskID, err)
	}
	task.Status = status
	return &task, nil
}
