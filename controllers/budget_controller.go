package controllers

import (
	"net/http"
	"time"

	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SetBudgetRequest is the body of PUT /user/setBudget/:id
type SetBudgetRequest struct {
	Budget *decimal.Decimal `json:"budget" binding:"required"`
}

// ExpenseRequest is the body of POST /user/addExpense/:id
type ExpenseRequest struct {
	Description string                 `json:"description" binding:"required"`
	Amount      *decimal.Decimal       `json:"amount" binding:"required"`
	Category    models.ExpenseCategory `json:"category"`
	Date        *time.Time             `json:"date"`
}

// UpdateExpenseRequest is the body of PUT /user/updateExpense/:id
type UpdateExpenseRequest struct {
	Description *string                 `json:"description"`
	Amount      *decimal.Decimal        `json:"amount"`
	Category    *models.ExpenseCategory `json:"category"`
	Date        *time.Time              `json:"date"`
}

// GetBudget handles GET /user/getBudget/:id - the project's budget summary
// with spent, remaining and the category breakdown
func GetBudget(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	summary, err := ledgerService().Summary(c.Request.Context(), p, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, summary)
}

// SetBudget handles PUT /user/setBudget/:id
func SetBudget(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	var req SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	project, err := ledgerService().SetBudget(c.Request.Context(), p, projectID, *req.Budget)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, project)
}

// GetExpenses handles GET /user/getExpenses/:id
func GetExpenses(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	expenses, err := ledgerService().ListExpenses(c.Request.Context(), p, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, expenses)
}

// AddExpense handles POST /user/addExpense/:id where :id is the project
func AddExpense(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c)
	if !ok {
		return
	}
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	expense, err := ledgerService().AddExpense(c.Request.Context(), p, projectID, services.ExpenseInput{
		Description: req.Description,
		Amount:      *req.Amount,
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, expense)
}

// UpdateExpense handles PUT /user/updateExpense/:id
func UpdateExpense(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	expense, err := ledgerService().UpdateExpense(c.Request.Context(), p, id, services.ExpensePatch{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, expense)
}

// DeleteExpense handles DELETE /user/deleteExpense/:id
func DeleteExpense(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := ledgerService().DeleteExpense(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Expense deleted",
	})
}
