// Package storage persists user queries and sales leads.
package storage

import (
	"context"
	"strings"
	"time"
)

// QueryRecord is one answered user query.
type QueryRecord struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	QueryText    string    `json:"query_text"`
	ResponseText string    `json:"response_text"`
	Category     string    `json:"category,omitempty"`
	Confidence   float64   `json:"confidence"`
	Action       string    `json:"action,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsLead       bool      `json:"is_lead"`
}

// Lead is a contact left by a prospective customer. Email is unique.
type Lead struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone,omitempty"`
	Industry         string    `json:"industry,omitempty"`
	TelegramUsername string    `json:"telegram_username,omitempty"`
	UserID           int64     `json:"user_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// QueryFilter narrows ListQueries. Zero values match everything.
type QueryFilter struct {
	UserID int64
	Limit  int
	Offset int
}

// Driver defines the interface for persisting and retrieving records in a
// storage backend.
type Driver interface {
	// SaveQuery stores a query record and returns it with ID and Timestamp set.
	SaveQuery(ctx context.Context, q *QueryRecord) (*QueryRecord, error)

	// ListQueries returns query records newest first.
	ListQueries(ctx context.Context, filter QueryFilter) ([]*QueryRecord, error)

	// SaveLead stores a lead. A lead whose email is already stored fails
	// with ErrDuplicateLead. When the lead carries a UserID, that user's
	// queries are flagged as coming from a lead.
	SaveLead(ctx context.Context, lead *Lead) (*Lead, error)

	// GetLead looks a lead up by email.
	GetLead(ctx context.Context, email string) (*Lead, error)

	// ListLeads returns all leads, oldest first.
	ListLeads(ctx context.Context) ([]*Lead, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Normalize trims the lead and lower-cases its email.
func (l *Lead) Normalize() {
	l.Name = strings.TrimSpace(l.Name)
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
	l.Phone = strings.TrimSpace(l.Phone)
	l.Industry = strings.TrimSpace(l.Industry)
	l.TelegramUsername = strings.TrimPrefix(strings.TrimSpace(l.TelegramUsername), "@")
}

// Validate checks the fields every backend requires.
func (l *Lead) Validate() error {
	if l == nil || l.Name == "" || l.Email == "" {
		return ErrInvalidLead
	}
	return nil
}
