package services

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// HistoryLimit caps how many login attempts are read back.
const HistoryLimit = 50

// LoginHistoryService records sign-in/sign-up attempts. Failures never
// reach the caller.
type LoginHistoryService interface {
	Record(ctx context.Context, email string, kind models.LoginType, success bool, userID, errMsg string)
	List(ctx context.Context, userID string) []models.LoginAttempt
}

type loginHistoryService struct {
	tables    backend.Tables
	userAgent string
	log       logging.Logger
}

func NewLoginHistoryService(tables backend.Tables, userAgent string, log logging.Logger) LoginHistoryService {
	return &loginHistoryService{tables: tables, userAgent: userAgent, log: log.With("service", "login_history")}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *loginHistoryService) Record(ctx context.Context, email string, kind models.LoginType, success bool, userID, errMsg string) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error(ctx, "record login attempt panicked", "panic", p)
		}
	}()

	attempt := models.LoginAttempt{
		UserID:       optional(userID),
		Email:        email,
		LoginType:    kind,
		UserAgent:    s.userAgent,
		Success:      success,
		ErrorMessage: optional(errMsg),
	}
	if err := s.tables.Insert(ctx, models.LoginHistoryTable, attempt, nil); err != nil {
		s.log.Warn(ctx, "record login attempt failed", "email", email, "type", kind, "error", err)
		return
	}
	s.log.Debug(ctx, "login attempt recorded", "email", email, "type", kind, "success", success)
}

// List returns the newest attempts of userID; errors yield an empty list.
func (s *loginHistoryService) List(ctx context.Context, userID string) []models.LoginAttempt {
	q := backend.Query{}.Eq("user_id", userID).OrderBy("created_at", false).WithLimit(HistoryLimit)

	var rows []models.LoginAttempt
	if err := s.tables.Select(ctx, models.LoginHistoryTable, q, &rows); err != nil {
		s.log.Error(ctx, "fetch login history failed", "user_id", userID, "error", err)
		return []models.LoginAttempt{}
	}
	if rows == nil {
		rows = []models.LoginAttempt{}
	}
	return rows
}
