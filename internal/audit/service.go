package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AccessLogRow is one persisted decision.
type AccessLogRow struct {
	ID         uuid.UUID `json:"id"`
	UserID     int64     `json:"user_id"`
	Path       string    `json:"path"`
	Method     string    `json:"method"`
	Decision   string    `json:"decision"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ViolationRow is one persisted failed-policy record.
type ViolationRow struct {
	ID            uuid.UUID `json:"id"`
	UserID        int64     `json:"user_id"`
	FeatureID     int64     `json:"feature_id"`
	PolicyID      int64     `json:"policy_id"`
	Attribute     string    `json:"attribute"`
	ExpectedValue string    `json:"expected_value"`
	ActualValue   string    `json:"actual_value"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TimelineFilters narrows and pages audit listings.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	UserID   int64
	Decision string
	Page     int
	PageSize int
}

// PagingInfo describes the returned window.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// RepositoryPort defines the read queries the timeline needs.
type RepositoryPort interface {
	AccessLogWindow(ctx context.Context, f TimelineFilters, limit, offset int) ([]AccessLogRow, error)
	ViolationWindow(ctx context.Context, f TimelineFilters, limit, offset int) ([]ViolationRow, error)
}

// AccessLogResult bundles rows with paging metadata.
type AccessLogResult struct {
	Rows   []AccessLogRow `json:"rows"`
	Paging PagingInfo     `json:"paging"`
}

// ViolationResult bundles rows with paging metadata.
type ViolationResult struct {
	Rows   []ViolationRow `json:"rows"`
	Paging PagingInfo     `json:"paging"`
}

// Service coordinates audit timeline reads.
type Service struct {
	repo RepositoryPort
}

// NewService builds an audit timeline service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// AccessLogs returns one page of access log rows, newest first.
func (s *Service) AccessLogs(ctx context.Context, filters TimelineFilters) (AccessLogResult, error) {
	if s.repo == nil {
		return AccessLogResult{}, fmt.Errorf("audit: repository not configured")
	}
	page, pageSize, offset := window(filters)
	rows, err := s.repo.AccessLogWindow(ctx, filters, pageSize+1, offset)
	if err != nil {
		return AccessLogResult{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return AccessLogResult{Rows: rows, Paging: paging(page, pageSize, hasNext)}, nil
}

// Violations returns one page of policy violation rows, newest first.
func (s *Service) Violations(ctx context.Context, filters TimelineFilters) (ViolationResult, error) {
	if s.repo == nil {
		return ViolationResult{}, fmt.Errorf("audit: repository not configured")
	}
	page, pageSize, offset := window(filters)
	rows, err := s.repo.ViolationWindow(ctx, filters, pageSize+1, offset)
	if err != nil {
		return ViolationResult{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	return ViolationResult{Rows: rows, Paging: paging(page, pageSize, hasNext)}, nil
}

func window(filters TimelineFilters) (page, pageSize, offset int) {
	pageSize = filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page = filters.Page
	if page <= 0 {
		page = 1
	}
	return page, pageSize, (page - 1) * pageSize
}

func paging(page, pageSize int, hasNext bool) PagingInfo {
	info := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		info.PrevPage = page - 1
	}
	if hasNext {
		info.NextPage = page + 1
	}
	return info
}
