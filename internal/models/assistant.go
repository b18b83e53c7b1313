package models

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of the assistant conversation. User messages get
// client-generated IDs.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the body of POST /ai/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatReply is the response of POST /ai/chat. ID is optional; when the
// backend omits it the client generates one.
type ChatReply struct {
	ID       string `json:"id,omitempty"`
	Response string `json:"response"`
}

// InsightKind classifies an insight.
type InsightKind string

const (
	InsightSaving         InsightKind = "saving"
	InsightWarning        InsightKind = "warning"
	InsightPrediction     InsightKind = "prediction"
	InsightRecommendation InsightKind = "recommendation"
)

// Insight is a generated observation about the user's spending.
type Insight struct {
	ID          string      `json:"id"`
	Kind        InsightKind `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Impact      float64     `json:"impact"`
	CreatedAt   time.Time   `json:"createdAt,omitzero"`
}

// ReceiptScan holds the fields extracted from a receipt image by POST /ai/ocr.
// Every field is a suggestion; the user still submits the expense form.
type ReceiptScan struct {
	Merchant    string   `json:"merchant,omitempty"`
	Description string   `json:"description,omitempty"`
	Amount      *Amount  `json:"amount,omitempty"`
	Category    Category `json:"category,omitempty"`
	Date        *Date    `json:"date,omitempty"`
	Confidence  float64  `json:"confidence,omitempty"`
}

// Input converts the scan into a prefilled expense form.
func (r ReceiptScan) Input() ExpenseInput {
	in := ExpenseInput{
		Description: r.Description,
		Category:    r.Category,
	}
	if in.Description == "" {
		in.Description = r.Merchant
	}
	if r.Amount != nil {
		in.Amount = r.Amount.String()
	}
	if r.Date != nil {
		in.Date = r.Date.String()
	}
	return in
}

// Prediction is a forecast of next-period spending in one category.
type Prediction struct {
	Category Category `json:"category"`
	Amount   Amount   `json:"amount"`
	Period   string   `json:"period"`
}
