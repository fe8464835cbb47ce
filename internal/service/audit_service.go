package service

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sf10-api/internal/models"
	appErrors "github.com/noah-isme/sf10-api/pkg/errors"
)

// auditSink is the narrow interface services use to append audit entries.
type auditSink interface {
	Append(ctx context.Context, accountID, message string) error
	AppendStatus(ctx context.Context, accountID, message string, status int) error
}

type auditRepository interface {
	Create(ctx context.Context, log *models.SystemLog) error
	ListRecent(ctx context.Context, limit int) ([]models.SystemLog, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]models.SystemLog, error)
}

type requestInfoKey struct{}

// RequestInfo carries the request path and method through the context so
// audit entries written deep in the service layer keep the legacy log shape.
type RequestInfo struct {
	Path   string
	Method string
}

// WithRequestInfo attaches request info to a context.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom extracts request info, zero-valued when absent.
func RequestInfoFrom(ctx context.Context) RequestInfo {
	if info, ok := ctx.Value(requestInfoKey{}).(RequestInfo); ok {
		return info
	}
	return RequestInfo{}
}

// AuditService appends and queries the immutable system log. Audit logging is
// best effort: failures are logged, never surfaced to the caller.
type AuditService struct {
	repo   auditRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(repo auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, logger: logger}
}

// Append records a successful state-changing operation.
func (s *AuditService) Append(ctx context.Context, accountID, message string) error {
	return s.AppendStatus(ctx, accountID, message, http.StatusOK)
}

// AppendStatus records an operation outcome with an explicit status.
func (s *AuditService) AppendStatus(ctx context.Context, accountID, message string, status int) error {
	info := RequestInfoFrom(ctx)
	log := &models.SystemLog{
		Path:       info.Path,
		Method:     info.Method,
		Authorized: true,
		Status:     status,
		Message:    message,
	}
	if accountID != "" {
		log.AccountID = &accountID
	}
	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.Warn("failed to append system log", zap.Error(err))
		return err
	}
	return nil
}

// ListRecent returns the newest entries with the requesting teacher's own
// name replaced by "You" in the message.
func (s *AuditService) ListRecent(ctx context.Context, requesterName string) ([]models.SystemLogEntry, error) {
	logs, err := s.repo.ListRecent(ctx, 100)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list system logs")
	}
	return personalize(logs, requesterName), nil
}

// ListOwn returns the newest entries belonging to the requester's account.
func (s *AuditService) ListOwn(ctx context.Context, accountID, requesterName string) ([]models.SystemLogEntry, error) {
	logs, err := s.repo.ListByAccount(ctx, accountID, 50)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list account system logs")
	}
	return personalize(logs, requesterName), nil
}

func personalize(logs []models.SystemLog, requesterName string) []models.SystemLogEntry {
	entries := make([]models.SystemLogEntry, 0, len(logs))
	for _, log := range logs {
		message := log.Message
		if requesterName != "" {
			message = strings.ReplaceAll(message, requesterName, "You")
		}
		entries = append(entries, models.SystemLogEntry{
			Key:       log.ID,
			Message:   message,
			Status:    log.Status,
			Timestamp: log.CreatedAt,
		})
	}
	return entries
}
