package apitest

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendsync/internal/calculator"
	"github.com/mmynk/spendsync/internal/middleware"
	"github.com/mmynk/spendsync/internal/models"
)

// ScanAmount is the amount every OCR scan reports.
var ScanAmount = models.MustAmount("12.50")

// forecastMonths is how many past months a prediction averages.
const forecastMonths = 3

func (s *Server) handleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		abort(c, http.StatusBadRequest, "Message is required")
		return
	}

	userID := middleware.GetUserID(c)
	stats := calculator.Stats(s.db.listExpenses(userID), s.db.budget(userID), s.now())
	reply := fmt.Sprintf("You have spent %s across %d transactions this month, with %s of your budget remaining.",
		stats.TotalSpent.StringFixed(2), stats.TotalTransactions, stats.BudgetRemaining.StringFixed(2))

	c.JSON(http.StatusOK, models.ChatReply{ID: uuid.NewString(), Response: reply})
}

// handleInsights derives a few insights from the current month's spending.
func (s *Server) handleInsights(c *gin.Context) {
	userID := middleware.GetUserID(c)
	now := s.now()
	expenses := s.db.listExpenses(userID)
	stats := calculator.Stats(expenses, s.db.budget(userID), now)

	insights := []models.Insight{}
	if stats.BudgetRemaining.IsNegative() {
		insights = append(insights, models.Insight{
			ID:          uuid.NewString(),
			Kind:        models.InsightWarning,
			Title:       "Over budget",
			Description: fmt.Sprintf("You are %s over your monthly budget.", stats.BudgetRemaining.Abs().StringFixed(2)),
			Impact:      stats.BudgetRemaining.Abs().InexactFloat64(),
			CreatedAt:   now,
		})
	}

	var month []models.Expense
	period := calculator.PeriodOf(now)
	for _, e := range expenses {
		if period.Contains(e.Date) {
			month = append(month, e)
		}
	}
	if breakdown := calculator.Breakdown(month); len(breakdown) > 0 {
		top := breakdown[0]
		saving := top.Amount.Mul(decimal.NewFromFloat(0.1)).Round(2)
		insights = append(insights, models.Insight{
			ID:          uuid.NewString(),
			Kind:        models.InsightSaving,
			Title:       "Top category: " + top.Name,
			Description: fmt.Sprintf("Cutting %s spending by 10%% would save %s.", top.Name, saving.StringFixed(2)),
			Impact:      saving.InexactFloat64(),
			CreatedAt:   now,
		})
	}
	if stats.MonthlyChange.Spent > 0 {
		insights = append(insights, models.Insight{
			ID:          uuid.NewString(),
			Kind:        models.InsightPrediction,
			Title:       "Spending is up",
			Description: fmt.Sprintf("Spending is up %.1f%% on last month.", stats.MonthlyChange.Spent),
			Impact:      stats.MonthlyChange.Spent,
			CreatedAt:   now,
		})
	}
	c.JSON(http.StatusOK, insights)
}

// handleOCR returns a fixed scan named after the uploaded file.
func (s *Server) handleOCR(c *gin.Context) {
	file, err := c.FormFile("receipt")
	if err != nil {
		abort(c, http.StatusBadRequest, "Receipt file is required")
		return
	}
	merchant := strings.TrimSuffix(filepath.Base(file.Filename), filepath.Ext(file.Filename))
	amount := ScanAmount
	date := models.NewDate(s.now())

	c.JSON(http.StatusOK, models.ReceiptScan{
		Merchant:    merchant,
		Description: "Purchase at " + merchant,
		Amount:      &amount,
		Category:    models.CategoryFood,
		Date:        &date,
		Confidence:  0.9,
	})
}

// handlePredict forecasts next month per category as the average of the
// last forecastMonths months.
func (s *Server) handlePredict(c *gin.Context) {
	now := s.now()
	expenses := s.db.listExpenses(middleware.GetUserID(c))

	window := make(map[calculator.Period]bool, forecastMonths)
	p := calculator.PeriodOf(now)
	next := time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC)
	for range forecastMonths {
		window[p] = true
		p = p.Prev()
	}

	var recent []models.Expense
	for _, e := range expenses {
		if window[calculator.PeriodOf(e.Date.Time)] {
			recent = append(recent, e)
		}
	}

	predictions := []models.Prediction{}
	divisor := decimal.NewFromInt(forecastMonths)
	for _, b := range calculator.Breakdown(recent) {
		predictions = append(predictions, models.Prediction{
			Category: models.Category(b.Name),
			Amount:   models.NewAmount(b.Amount.Div(divisor).Round(2)),
			Period:   calculator.PeriodOf(next).String(),
		})
	}
	c.JSON(http.StatusOK, predictions)
}
