package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
)

const (
	msgSendMessageFailed     = "Failed to send message"
	msgFetchInsightsFailed   = "Failed to fetch insights"
	msgAnalyzeReceiptFailed  = "Failed to analyze receipt"
	msgPredictExpensesFailed = "Failed to predict expenses"
)

// AssistantState is a snapshot of the assistant store.
type AssistantState struct {
	// Messages is append-only, in insertion order.
	Messages    []models.ChatMessage
	Insights    []models.Insight
	Predictions []models.Prediction
	LastScan    *models.ReceiptScan

	Chat           resource.State
	InsightsLoad   resource.State
	Scan           resource.State
	PredictionLoad resource.State
}

// Processing reports whether a chat message is awaiting a reply.
func (s AssistantState) Processing() bool {
	return s.Chat.Loading()
}

// Assistant holds the chat transcript and generated insights.
type Assistant struct {
	base
	newID func() string

	mu          sync.Mutex
	messages    []models.ChatMessage
	insights    []models.Insight
	predictions []models.Prediction
	lastScan    *models.ReceiptScan
	chat        *resource.Tracker
	insightsTr  *resource.Tracker
	scanTr      *resource.Tracker
	predictTr   *resource.Tracker
}

// NewAssistant creates an empty assistant store.
func NewAssistant(deps Deps) *Assistant {
	return &Assistant{
		base:  newBase("assistant", deps),
		newID: uuid.NewString,
		// Replies are appended, never superseded, so chat always applies
		// results in settle order regardless of the configured policy.
		chat:       resource.NewTracker(resource.SettledLast),
		insightsTr: resource.NewTracker(deps.Policy),
		scanTr:     resource.NewTracker(deps.Policy),
		predictTr:  resource.NewTracker(deps.Policy),
	}
}

// Snapshot returns a copy of the current state.
func (a *Assistant) Snapshot() AssistantState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := AssistantState{
		Messages:       append([]models.ChatMessage(nil), a.messages...),
		Insights:       append([]models.Insight(nil), a.insights...),
		Predictions:    append([]models.Prediction(nil), a.predictions...),
		Chat:           a.chat.State(),
		InsightsLoad:   a.insightsTr.State(),
		Scan:           a.scanTr.State(),
		PredictionLoad: a.predictTr.State(),
	}
	if a.lastScan != nil {
		scan := *a.lastScan
		st.LastScan = &scan
	}
	return st
}

// PostUserMessage appends the user's message to the transcript. It makes no
// network call.
func (a *Assistant) PostUserMessage(text string) (models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return models.ChatMessage{}, &models.ValidationError{Field: "message", Message: "message is empty"}
	}
	msg := models.ChatMessage{
		ID:        a.newID(),
		Role:      models.RoleUser,
		Content:   text,
		Timestamp: a.now(),
	}
	a.mu.Lock()
	a.messages = append(a.messages, msg)
	a.mu.Unlock()
	a.changed()
	return msg, nil
}

// SendChatMessage asks the backend to answer text and appends the reply. On
// failure nothing is appended and the error is recorded; a user message
// already posted with PostUserMessage stays in the transcript.
func (a *Assistant) SendChatMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return &models.ValidationError{Field: "message", Message: "message is empty"}
	}
	ticket, start := a.begin(&a.mu, a.chat, "chat")

	var reply models.ChatReply
	err := a.api.Post(ctx, "/ai/chat", models.ChatRequest{Message: text}, &reply, msgSendMessageFailed)
	return a.settle(&a.mu, a.chat, ticket, "chat", start, err, func() {
		id := reply.ID
		if id == "" {
			id = a.newID()
		}
		a.messages = append(a.messages, models.ChatMessage{
			ID:        id,
			Role:      models.RoleAssistant,
			Content:   reply.Response,
			Timestamp: a.now(),
		})
	})
}

// FetchInsights replaces the insights wholesale.
func (a *Assistant) FetchInsights(ctx context.Context) error {
	ticket, start := a.begin(&a.mu, a.insightsTr, "fetch_insights")

	var insights []models.Insight
	err := a.api.Get(ctx, "/ai/insights", nil, &insights, msgFetchInsightsFailed)
	return a.settle(&a.mu, a.insightsTr, ticket, "fetch_insights", start, err, func() {
		a.insights = insights
	})
}

// AnalyzeReceipt runs OCR on a receipt image and keeps the extracted fields
// as LastScan. The scan is also returned for prefilling an expense form.
func (a *Assistant) AnalyzeReceipt(ctx context.Context, file apiclient.File) (models.ReceiptScan, error) {
	if file.Body == nil {
		return models.ReceiptScan{}, &models.ValidationError{Field: "receipt", Message: "receipt file is required"}
	}
	ticket, start := a.begin(&a.mu, a.scanTr, "analyze_receipt")

	var scan models.ReceiptScan
	err := a.api.Upload(ctx, "/ai/ocr", "receipt", file, &scan, msgAnalyzeReceiptFailed)
	err = a.settle(&a.mu, a.scanTr, ticket, "analyze_receipt", start, err, func() {
		s := scan
		a.lastScan = &s
	})
	return scan, err
}

// PredictExpenses replaces the spending predictions wholesale.
func (a *Assistant) PredictExpenses(ctx context.Context) error {
	ticket, start := a.begin(&a.mu, a.predictTr, "predict_expenses")

	var predictions []models.Prediction
	err := a.api.Get(ctx, "/ai/predict-expenses", nil, &predictions, msgPredictExpensesFailed)
	return a.settle(&a.mu, a.predictTr, ticket, "predict_expenses", start, err, func() {
		a.predictions = predictions
	})
}

// ClearChat empties the transcript. A reply still in flight is appended to
// the empty transcript when it arrives.
func (a *Assistant) ClearChat() {
	a.mu.Lock()
	a.messages = nil
	a.mu.Unlock()
	a.changed()
}

// ClearError drops recorded failures.
func (a *Assistant) ClearError() {
	a.mu.Lock()
	a.chat.ClearError()
	a.insightsTr.ClearError()
	a.scanTr.ClearError()
	a.predictTr.ClearError()
	a.mu.Unlock()
	a.changed()
}

// Reset empties the store, e.g. after logout. Results of requests still in
// flight are discarded.
func (a *Assistant) Reset() {
	a.mu.Lock()
	a.messages = nil
	a.insights = nil
	a.predictions = nil
	a.lastScan = nil
	a.chat.Reset()
	a.insightsTr.Reset()
	a.scanTr.Reset()
	a.predictTr.Reset()
	a.mu.Unlock()
	a.changed()
}
