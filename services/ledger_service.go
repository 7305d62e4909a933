package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/buildmart/marketplace-api/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryShare is one row of a project's spend breakdown
type CategoryShare struct {
	Category       models.ExpenseCategory `json:"category"`
	Amount         decimal.Decimal        `json:"amount"`
	PercentOfTotal decimal.Decimal        `json:"percent_of_total"`
	Count          int                    `json:"count"`
}

// BudgetSummary is the derived view of a project's budget and spend
type BudgetSummary struct {
	ProjectID    uint            `json:"project_id"`
	Budget       decimal.Decimal `json:"budget"`
	HasBudget    bool            `json:"has_budget"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	OverBudget   bool            `json:"over_budget"`
	Breakdown    []CategoryShare `json:"category_breakdown"`
	ExpenseCount int             `json:"expense_count"`
}

// ExpenseInput holds the fields of a new expense
type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Category    models.ExpenseCategory
	Date        *time.Time
}

// ExpensePatch carries the fields of an expense update; nil means unchanged
type ExpensePatch struct {
	Description *string
	Amount      *decimal.Decimal
	Category    *models.ExpenseCategory
	Date        *time.Time
}

// LedgerService tracks project budgets and expenses
type LedgerService struct {
	db    *gorm.DB
	cache SummaryCache
}

// NewLedgerService creates a ledger service. cache may be nil.
func NewLedgerService(db *gorm.DB, cache SummaryCache) *LedgerService {
	if cache == nil {
		cache = noopSummaryCache{}
	}
	return &LedgerService{db: db, cache: cache}
}

// SetBudget overwrites the project budget. Only the owner may set it.
func (s *LedgerService) SetBudget(ctx context.Context, p Principal, projectID uint, amount decimal.Decimal) (*models.Project, error) {
	if amount.IsNegative() {
		return nil, ErrInvalidAmount.WithMessage("Budget cannot be negative")
	}

	db := s.db.WithContext(ctx)
	project, err := loadOwnedProject(db, p.UserID, projectID)
	if err != nil {
		return nil, err
	}
	budget := decimal.NewNullDecimal(amount.Round(2))
	if err := db.Model(&models.Project{}).Where("id = ?", project.ID).Update("budget", budget).Error; err != nil {
		return nil, fmt.Errorf("set budget of project %d: %w", projectID, err)
	}
	project.Budget = budget

	s.invalidate(ctx, projectID)
	log.Info().Uint("project_id", projectID).Str("budget", amount.StringFixed(2)).Msg("budget set")
	return project, nil
}

// AddExpense books a manual expense against a project
func (s *LedgerService) AddExpense(ctx context.Context, p Principal, projectID uint, in ExpenseInput) (*models.Expense, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadAccessibleProject(db, p.UserID, projectID); err != nil {
		return nil, err
	}

	expense := models.Expense{
		ProjectID:   projectID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    in.Category,
		CreatedByID: p.UserID,
	}
	if expense.Category == "" {
		expense.Category = models.CategoryOther
	}
	expense.Date = time.Now().UTC()
	if in.Date != nil {
		expense.Date = *in.Date
	}
	if err := validateExpense(expense); err != nil {
		return nil, err
	}

	if err := db.Create(&expense).Error; err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	s.invalidate(ctx, projectID)
	return &expense, nil
}

// UpdateExpense edits an expense of a project the principal can access
func (s *LedgerService) UpdateExpense(ctx context.Context, p Principal, expenseID uint, patch ExpensePatch) (*models.Expense, error) {
	db := s.db.WithContext(ctx)
	expense, err := s.loadExpense(db, p, expenseID)
	if err != nil {
		return nil, err
	}

	if patch.Description != nil {
		expense.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Amount != nil {
		expense.Amount = *patch.Amount
	}
	if patch.Category != nil {
		expense.Category = *patch.Category
	}
	if patch.Date != nil {
		expense.Date = *patch.Date
	}
	if err := validateExpense(*expense); err != nil {
		return nil, err
	}

	err = db.Model(&models.Expense{}).Where("id = ?", expense.ID).Updates(map[string]interface{}{
		"description": expense.Description,
		"amount":      expense.Amount,
		"category":    expense.Category,
		"date":        expense.Date,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update expense %d: %w", expenseID, err)
	}
	s.invalidate(ctx, expense.ProjectID)
	return expense, nil
}

// DeleteExpense removes an expense
func (s *LedgerService) DeleteExpense(ctx context.Context, p Principal, expenseID uint) error {
	db := s.db.WithContext(ctx)
	expense, err := s.loadExpense(db, p, expenseID)
	if err != nil {
		return err
	}
	if err := db.Delete(&models.Expense{}, expense.ID).Error; err != nil {
		return fmt.Errorf("delete expense %d: %w", expenseID, err)
	}
	s.invalidate(ctx, expense.ProjectID)
	return nil
}

// ListExpenses returns a project's expenses, newest first
func (s *LedgerService) ListExpenses(ctx context.Context, p Principal, projectID uint) ([]models.Expense, error) {
	db := s.db.WithContext(ctx)
	if _, err := loadAccessibleProject(db, p.UserID, projectID); err != nil {
		return nil, err
	}
	expenses := []models.Expense{}
	if err := db.Where("project_id = ?", projectID).Order("date DESC, id DESC").Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Summary returns the budget summary of a project, from cache when possible
func (s *LedgerService) Summary(ctx context.Context, p Principal, projectID uint) (*BudgetSummary, error) {
	// read before the project and its expenses: a write landing in between
	// bumps the generation, so the summary below is stored where nobody looks
	generation, err := s.cache.Generation(ctx, projectID)
	cacheable := err == nil
	if err != nil {
		log.Warn().Err(err).Uint("project_id", projectID).Msg("summary cache generation read failed")
	}

	db := s.db.WithContext(ctx)
	project, err := loadAccessibleProject(db, p.UserID, projectID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		cached, ok, err := s.cache.Get(ctx, projectID, generation)
		if err != nil {
			log.Warn().Err(err).Uint("project_id", projectID).Msg("summary cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	expenses := []models.Expense{}
	if err := db.Where("project_id = ?", projectID).Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	summary := ComputeSummary(*project, expenses)

	if cacheable {
		if err := s.cache.Set(ctx, generation, summary); err != nil {
			log.Warn().Err(err).Uint("project_id", projectID).Msg("summary cache write failed")
		}
	}
	return summary, nil
}

// ComputeSummary derives totals and the category breakdown from a project's
// expenses. Remaining may be negative.
func ComputeSummary(project models.Project, expenses []models.Expense) *BudgetSummary {
	summary := &BudgetSummary{
		ProjectID:    project.ID,
		Budget:       decimal.Zero,
		TotalSpent:   decimal.Zero,
		Breakdown:    []CategoryShare{},
		ExpenseCount: len(expenses),
	}
	if project.Budget.Valid {
		summary.Budget = project.Budget.Decimal
		summary.HasBudget = true
	}

	byCategory := map[models.ExpenseCategory]*CategoryShare{}
	for _, expense := range expenses {
		summary.TotalSpent = summary.TotalSpent.Add(expense.Amount)
		share, ok := byCategory[expense.Category]
		if !ok {
			share = &CategoryShare{Category: expense.Category, Amount: decimal.Zero}
			byCategory[expense.Category] = share
		}
		share.Amount = share.Amount.Add(expense.Amount)
		share.Count++
	}

	summary.Remaining = summary.Budget.Sub(summary.TotalSpent)
	summary.OverBudget = summary.HasBudget && summary.Remaining.IsNegative()

	for _, share := range byCategory {
		share.PercentOfTotal = percentOf(share.Amount, summary.TotalSpent)
		summary.Breakdown = append(summary.Breakdown, *share)
	}
	sort.Slice(summary.Breakdown, func(i, j int) bool {
		a, b := summary.Breakdown[i], summary.Breakdown[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Category < b.Category
	})
	return summary
}

func percentOf(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(1)
}

// HandleOrderEvent keeps project spend in line with material orders. A placed
// order books one Materials expense; a cancelled order removes it. Replayed
// events are harmless.
func (s *LedgerService) HandleOrderEvent(ctx context.Context, event OrderEvent) error {
	if event.ProjectID == 0 || event.OrderID == 0 {
		return nil
	}
	db := s.db.WithContext(ctx)

	switch event.Type {
	case OrderPlacedEvent:
		orderID := event.OrderID
		expense := models.Expense{
			ProjectID:   event.ProjectID,
			Description: orderExpenseDescription(event),
			Amount:      event.TotalPrice,
			Category:    models.CategoryMaterials,
			Date:        event.OccurredAt,
			OrderID:     &orderID,
			CreatedByID: event.UserID,
		}
		if expense.Date.IsZero() {
			expense.Date = time.Now().UTC()
		}
		result := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).Create(&expense)
		if result.Error != nil {
			return fmt.Errorf("book expense for order %d: %w", event.OrderID, result.Error)
		}
		if result.RowsAffected == 0 {
			log.Debug().Uint("order_id", event.OrderID).Msg("order expense already booked")
			return nil
		}
		log.Info().Uint("order_id", event.OrderID).Uint("project_id", event.ProjectID).Msg("order expense booked")

	case OrderCancelledEvent:
		if err := db.Where("order_id = ?", event.OrderID).Delete(&models.Expense{}).Error; err != nil {
			return fmt.Errorf("remove expense for order %d: %w", event.OrderID, err)
		}

	default:
		return fmt.Errorf("unknown order event type %q", event.Type)
	}

	s.invalidate(ctx, event.ProjectID)
	return nil
}

func orderExpenseDescription(event OrderEvent) string {
	name := event.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", event.ProductID)
	}
	return fmt.Sprintf("Order %s: %d x %s", event.OrderReference, event.Quantity, name)
}

func (s *LedgerService) loadExpense(db *gorm.DB, p Principal, expenseID uint) (*models.Expense, error) {
	var expense models.Expense
	if err := db.First(&expense, expenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("load expense %d: %w", expenseID, err)
	}
	if _, err := loadAccessibleProject(db, p.UserID, expense.ProjectID); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *LedgerService) invalidate(ctx context.Context, projectID uint) {
	if err := s.cache.Invalidate(ctx, projectID); err != nil {
		log.Warn().Err(err).Uint("project_id", projectID).Msg("summary cache invalidation failed")
	}
}

func validateExpense(e models.Expense) error {
	switch {
	case e.Description == "":
		return ErrMissingField.WithMessage("description is required")
	case !e.Amount.IsPositive():
		return ErrInvalidAmount
	case !e.Category.Valid():
		return ErrInvalidCategory.WithMessage("Category must be one of Materials, Labor, Equipment, Transportation, Permits, Consultants or Other")
	}
	return nil
}
