package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ecofes/lubebot/api/mcp"
	"github.com/ecofes/lubebot/pkg/storage"
	"github.com/ecofes/lubebot/pkg/worker"
)

// ClassifyRequest is the body of POST /v1/classify.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Text     string `json:"text"`
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// LeadRequest is the body of POST /v1/leads.
type LeadRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone,omitempty"`
	Industry         string `json:"industry,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	UserID           int64  `json:"user_id,omitempty"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleClassify scores a query without answering it.
func (s *Server) handleClassify(c *fiber.Ctx) error {
	var req ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "text is required")
	}

	return c.JSON(mcp.Classify(s.config.Classifier, req.Text))
}

// handleAsk answers a query and records it in the background.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "text is required")
	}

	reply := s.config.Router.Respond(c.UserContext(), req.Text)
	s.logger.Info("query answered",
		"user_id", req.UserID,
		"category", reply.Category,
		"action", reply.Action,
	)

	if s.config.Pool != nil {
		s.config.Pool.Enqueue(worker.Job{Query: &storage.QueryRecord{
			UserID:       req.UserID,
			Username:     req.Username,
			QueryText:    req.Text,
			ResponseText: reply.Text,
			Category:     string(reply.Category),
			Confidence:   reply.Confidence,
			Action:       string(reply.Action),
		}})
	}

	return c.JSON(reply)
}

// handleCreateLead stores a lead synchronously so duplicates are reported.
func (s *Server) handleCreateLead(c *fiber.Ctx) error {
	if s.config.Storage == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "record store is not configured")
	}

	var req LeadRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	lead, err := s.config.Storage.SaveLead(c.UserContext(), &storage.Lead{
		Name:             req.Name,
		Email:            req.Email,
		Phone:            req.Phone,
		Industry:         req.Industry,
		TelegramUsername: req.TelegramUsername,
		UserID:           req.UserID,
	})
	switch {
	case errors.Is(err, storage.ErrInvalidLead):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrDuplicateLead):
		return errorJSON(c, fiber.StatusConflict, "lead with this email already exists")
	case err != nil:
		s.logger.Error("saving lead failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to save lead")
	}

	s.logger.Info("lead captured", "lead_id", lead.ID)
	if s.config.Pool != nil {
		s.config.Pool.Enqueue(worker.Job{Lead: lead})
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

// handleListLeads returns every stored lead.
func (s *Server) handleListLeads(c *fiber.Ctx) error {
	if s.config.Storage == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "record store is not configured")
	}

	leads, err := s.config.Storage.ListLeads(c.UserContext())
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list leads")
	}
	return c.JSON(map[string]any{
		"count": len(leads),
		"leads": leads,
	})
}

// handleListQueries returns recorded queries, newest first.
// Query parameters: user_id, limit, offset.
func (s *Server) handleListQueries(c *fiber.Ctx) error {
	if s.config.Storage == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "record store is not configured")
	}

	var filter storage.QueryFilter
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return errorJSON(c, fiber.StatusBadRequest, name+" must be a non-negative integer")
			}
			*dst = n
		}
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "user_id must be an integer")
		}
		filter.UserID = id
	}

	records, err := s.config.Storage.ListQueries(c.UserContext(), filter)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list queries")
	}
	return c.JSON(map[string]any{
		"count":   len(records),
		"queries": records,
	})
}

// handleIndexStats reports the index size and the last build.
func (s *Server) handleIndexStats(c *fiber.Ctx) error {
	stats, err := s.config.Index.Stats(c.UserContext())
	if err != nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(stats)
}

// handleIndexRebuild clears the index and indexes the corpus again.
func (s *Server) handleIndexRebuild(c *fiber.Ctx) error {
	report, err := s.config.Index.Rebuild(c.UserContext())
	if err != nil {
		s.logger.Error("index rebuild failed", "error", err)
		return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(report)
}
