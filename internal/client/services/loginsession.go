package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// LoginSessionService manages rows of the login session table. Unlike
// LoginHistoryService it returns errors; callers decide whether they matter.
type LoginSessionService interface {
	Create(ctx context.Context, userID, token, userAgent string) (*models.LoginSession, error)
	ActiveSessions(ctx context.Context, userID string) ([]models.LoginSession, error)
	// History returns the newest sessions; limit <= 0 means HistoryLimit.
	History(ctx context.Context, userID string, limit int) ([]models.LoginSession, error)
	UpdateLastActivity(ctx context.Context, token string) error
	Deactivate(ctx context.Context, token, userID string) error
	DeactivateByID(ctx context.Context, id, userID string) error
	DeactivateAll(ctx context.Context, userID string) error
	// GetByToken returns (nil, nil) when no active session has token.
	GetByToken(ctx context.Context, token string) (*models.LoginSession, error)
}

type loginSessionService struct {
	tables backend.Tables
	log    logging.Logger
	now    func() time.Time
}

func NewLoginSessionService(tables backend.Tables, log logging.Logger) LoginSessionService {
	return &loginSessionService{tables: tables, log: log.With("service", "login_sessions"), now: time.Now}
}

// DetectDeviceType classifies a user agent string.
func DetectDeviceType(userAgent string) models.DeviceType {
	if userAgent == "" {
		return models.DeviceUnknown
	}
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return models.DeviceMobile
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return models.DeviceTablet
	default:
		return models.DeviceDesktop
	}
}

// GenerateSessionToken returns a random UUID suffixed with the current unix
// time in milliseconds, base 36.
func GenerateSessionToken() string {
	return uuid.NewString() + "-" + strconv.FormatInt(time.Now().UnixMilli(), 36)
}

func (s *loginSessionService) Create(ctx context.Context, userID, token, userAgent string) (*models.LoginSession, error) {
	now := s.now().UTC()
	row := models.NewLoginSession{
		UserID:       userID,
		SessionToken: token,
		UserAgent:    optional(userAgent),
		DeviceType:   DetectDeviceType(userAgent),
		LoginTime:    now,
		LastActivity: now,
		IsActive:     true,
	}

	var created models.LoginSession
	if err := s.tables.Insert(ctx, models.LoginSessionsTable, row, &created); err != nil {
		return nil, fmt.Errorf("create login session: %w", err)
	}
	s.log.Info(ctx, "login session created", "id", created.ID, "device", created.DeviceType)
	return &created, nil
}

func (s *loginSessionService) ActiveSessions(ctx context.Context, userID string) ([]models.LoginSession, error) {
	q := backend.Query{}.Eq("user_id", userID).Eq("is_active", true).OrderBy("last_activity", false)
	return s.list(ctx, q, "fetch active sessions")
}

func (s *loginSessionService) History(ctx context.Context, userID string, limit int) ([]models.LoginSession, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	q := backend.Query{}.Eq("user_id", userID).OrderBy("login_time", false).WithLimit(limit)
	return s.list(ctx, q, "fetch session history")
}

func (s *loginSessionService) list(ctx context.Context, q backend.Query, what string) ([]models.LoginSession, error) {
	var rows []models.LoginSession
	if err := s.tables.Select(ctx, models.LoginSessionsTable, q, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if rows == nil {
		rows = []models.LoginSession{}
	}
	return rows, nil
}

type activityPatch struct {
	LastActivity time.Time `json:"last_activity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type deactivatePatch struct {
	IsActive   bool      `json:"is_active"`
	LogoutTime time.Time `json:"logout_time"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *loginSessionService) UpdateLastActivity(ctx context.Context, token string) error {
	now := s.now().UTC()
	q := backend.Query{}.Eq("session_token", token).Eq("is_active", true)
	if err := s.tables.Update(ctx, models.LoginSessionsTable, q, activityPatch{LastActivity: now, UpdatedAt: now}); err != nil {
		return fmt.Errorf("update last activity: %w", err)
	}
	return nil
}

func (s *loginSessionService) deactivate(ctx context.Context, q backend.Query, what string) error {
	now := s.now().UTC()
	if err := s.tables.Update(ctx, models.LoginSessionsTable, q, deactivatePatch{LogoutTime: now, UpdatedAt: now}); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (s *loginSessionService) Deactivate(ctx context.Context, token, userID string) error {
	return s.deactivate(ctx, backend.Query{}.Eq("session_token", token).Eq("user_id", userID), "deactivate session")
}

func (s *loginSessionService) DeactivateByID(ctx context.Context, id, userID string) error {
	return s.deactivate(ctx, backend.Query{}.Eq("id", id).Eq("user_id", userID), "deactivate session by id")
}

func (s *loginSessionService) DeactivateAll(ctx context.Context, userID string) error {
	return s.deactivate(ctx, backend.Query{}.Eq("user_id", userID).Eq("is_active", true), "deactivate all sessions")
}

func (s *loginSessionService) GetByToken(ctx context.Context, token string) (*models.LoginSession, error) {
	q := backend.Query{}.Eq("session_token", token).Eq("is_active", true).One()

	var sess models.LoginSession
	err := s.tables.Select(ctx, models.LoginSessionsTable, q, &sess)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch session by token: %w", err)
	}
	return &sess, nil
}
