package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendsync/internal/auth"
	"github.com/mmynk/spendsync/internal/calculator"
	"github.com/mmynk/spendsync/internal/middleware"
	"github.com/mmynk/spendsync/internal/models"
)

// recentLimit is the number of recent expenses on the dashboard.
const recentLimit = 5

func (s *Server) handleLogin(c *gin.Context) {
	var req models.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := s.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abort(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.respondWithToken(c, http.StatusOK, user)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req models.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || !strings.Contains(req.Email, "@") {
		abort(c, http.StatusBadRequest, "Name and a valid email are required")
		return
	}
	user, err := s.auth.Register(c.Request.Context(), req.Email, strings.TrimSpace(req.Name), req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailExists):
		abort(c, http.StatusConflict, "Email already registered")
		return
	case errors.Is(err, auth.ErrWeakPassword):
		abort(c, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	case err != nil:
		abort(c, http.StatusInternalServerError, "Registration failed")
		return
	}
	s.db.initProfile(user, DefaultCurrency, decimal.NewFromInt(DefaultBudget))
	s.respondWithToken(c, http.StatusCreated, user)
}

func (s *Server) respondWithToken(c *gin.Context, status int, user models.User) {
	token, err := s.jwt.Generate(user)
	if err != nil {
		abort(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(status, models.AuthResponse{User: user, Token: token})
}

func (s *Server) handleMe(c *gin.Context) {
	user, ok := s.db.userByID(middleware.GetUserID(c))
	if !ok {
		abort(c, http.StatusUnauthorized, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, s.db.profile(middleware.GetUserID(c)))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := models.ProfilePatchFromMap(fields); err != nil {
		abort(c, http.StatusBadRequest, validationMessage(err))
		return
	}
	c.JSON(http.StatusOK, s.db.updateProfile(middleware.GetUserID(c), fields))
}

func (s *Server) handleListExpenses(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		abort(c, http.StatusBadRequest, "Invalid page")
		return
	}
	category := models.Category(c.Query("category"))
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))

	var matched []models.Expense
	for _, e := range s.db.listExpenses(middleware.GetUserID(c)) {
		if category != "" && e.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(e.Notes), search) {
			continue
		}
		matched = append(matched, e)
	}

	totalPages := max(1, (len(matched)+s.pageSize-1)/s.pageSize)
	lo := min((page-1)*s.pageSize, len(matched))
	hi := min(lo+s.pageSize, len(matched))

	c.JSON(http.StatusOK, models.ExpensePage{
		Expenses:    append([]models.Expense{}, matched[lo:hi]...),
		TotalPages:  totalPages,
		CurrentPage: page,
	})
}

func (s *Server) handleCreateExpense(c *gin.Context) {
	var draft models.ExpenseDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		abort(c, http.StatusBadRequest, "Invalid expense")
		return
	}
	if strings.TrimSpace(draft.Description) == "" {
		abort(c, http.StatusBadRequest, "Description is required")
		return
	}
	if draft.Amount.LessThan(models.MinAmount) {
		abort(c, http.StatusBadRequest, "Amount must be at least 0.01")
		return
	}
	if draft.Date.IsZero() {
		draft.Date = models.NewDate(s.now())
	}
	if draft.Category == "" {
		draft.Category = models.CategoryOther
	}

	created := s.db.insertExpense(middleware.GetUserID(c), models.Expense{
		Description:   draft.Description,
		Amount:        draft.Amount,
		Category:      draft.Category,
		Date:          draft.Date,
		PaymentMethod: draft.PaymentMethod,
		Notes:         draft.Notes,
	})
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateExpense(c *gin.Context) {
	var patch models.ExpensePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abort(c, http.StatusBadRequest, "Invalid expense")
		return
	}
	if patch.Amount != nil && patch.Amount.LessThan(models.MinAmount) {
		abort(c, http.StatusBadRequest, "Amount must be at least 0.01")
		return
	}

	updated, ok := s.db.updateExpense(middleware.GetUserID(c), c.Param("id"), func(e *models.Expense) {
		if patch.Description != nil {
			e.Description = *patch.Description
		}
		if patch.Amount != nil {
			e.Amount = *patch.Amount
		}
		if patch.Category != nil {
			e.Category = *patch.Category
		}
		if patch.Date != nil {
			e.Date = *patch.Date
		}
		if patch.PaymentMethod != nil {
			e.PaymentMethod = *patch.PaymentMethod
		}
		if patch.Notes != nil {
			e.Notes = *patch.Notes
		}
	})
	if !ok {
		abort(c, http.StatusNotFound, "Expense not found")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(c *gin.Context) {
	if !s.db.deleteExpense(middleware.GetUserID(c), c.Param("id")) {
		abort(c, http.StatusNotFound, "Expense not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

func (s *Server) handleUploadReceipt(c *gin.Context) {
	userID, id := middleware.GetUserID(c), c.Param("id")
	file, err := c.FormFile("receipt")
	if err != nil {
		abort(c, http.StatusBadRequest, "Receipt file is required")
		return
	}

	updated, ok := s.db.updateExpense(userID, id, func(e *models.Expense) {
		e.HasReceipt = true
		e.ReceiptURL = fmt.Sprintf("/receipts/%s/%s", id, path.Base(file.Filename))
	})
	if !ok {
		abort(c, http.StatusNotFound, "Expense not found")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDashboard(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenses := s.db.listExpenses(userID)
	now := s.now()

	var month []models.Expense
	period := calculator.PeriodOf(now)
	for _, e := range expenses {
		if period.Contains(e.Date) {
			month = append(month, e)
		}
	}

	stats := calculator.Stats(expenses, s.db.budget(userID), now)
	c.JSON(http.StatusOK, models.Dashboard{
		Stats:             &stats,
		CategoryBreakdown: calculator.Breakdown(month),
		RecentExpenses:    append([]models.Expense{}, expenses[:min(recentLimit, len(expenses))]...),
	})
}

func (s *Server) handleTrend(c *gin.Context) {
	months, err := strconv.Atoi(c.DefaultQuery("months", "6"))
	if err != nil || months < 1 || months > 24 {
		abort(c, http.StatusBadRequest, "months must be between 1 and 24")
		return
	}
	expenses := s.db.listExpenses(middleware.GetUserID(c))
	c.JSON(http.StatusOK, calculator.Trend(expenses, months, s.now()))
}

func validationMessage(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
