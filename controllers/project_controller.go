package controllers

import (
	"net/http"
	"time"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
)

// CreateProjectRequest is the body of POST /user/createProject
type CreateProjectRequest struct {
	Name     string               `json:"name" binding:"required"`
	Location string               `json:"location"`
	Status   models.ProjectStatus `json:"status"`
}

// CreateTaskRequest is the body of POST /user/createTask/:id
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	AssigneeID  *uint      `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

// UpdateTaskRequest is the body of PUT /user/updateTask/:id
type UpdateTaskRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// CreateProject handles POST /user/createProject
func CreateProject(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	project, err := services.NewProjectService(config.GetDB()).CreateProject(c.Request.Context(), p, services.ProjectInput{
		Name:     req.Name,
		Location: req.Location,
		Status:   req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, project)
}

// GetProjects handles GET /user/getProjects - projects the caller owns or works on
func GetProjects(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	projects, err := services.NewProjectService(config.GetDB()).ListMyProjects(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, projects)
}

// GetProjectByID handles GET /user/getProject/:id
func GetProjectByID(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	project, err := services.NewProjectService(config.GetDB()).GetProject(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, project)
}

// CreateTask handles POST /user/createTask/:id where :id is the project
func CreateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	task, err := services.NewProjectService(config.GetDB()).CreateTask(c.Request.Context(), p, projectID, services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, task)
}

// UpdateTask handles PUT /user/updateTask/:id
func UpdateTask(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	task, err := services.NewProjectService(config.GetDB()).UpdateTask(c.Request.Context(), p, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, task)
}
