// Package domain defines the business logic for the shared feed.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// ErrEmptyContent is returned when a posted entry has no text.
	ErrEmptyContent = errors.New("entry content is empty")
	// ErrContentTooLong is returned when a posted entry exceeds MaxContentLength.
	ErrContentTooLong = errors.New("entry content too long")
)

// MaxContentLength bounds the size of a single feed entry.
const MaxContentLength = 500

// MaxFeedLength caps how many entries a feed read may return.
const MaxFeedLength = 100

// seedDedupeKey marks the one-time welcome entry so restarts never write it twice.
const seedDedupeKey = "seed:welcome"

// seedUserID is the author recorded on the seed entry.
const seedUserID = "system"

// Repository captures persistence operations for feed entries.
type Repository interface {
	Create(ctx context.Context, entry Entry, dedupeKey string) error
	FindByDedupeKey(ctx context.Context, key string) (*Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}

// Service orchestrates feed workflows.
type Service struct {
	repo        Repository
	appVersion  string
	seedContent string
}

// NewService constructs a Service. appVersion is stamped onto every entry the
// service accepts.
func NewService(repo Repository, appVersion, seedContent string) *Service {
	return &Service{repo: repo, appVersion: appVersion, seedContent: seedContent}
}

// PostEntryInput captures the payload from the API layer.
type PostEntryInput struct {
	UserID  string
	Content string
	IsAdmin bool
}

// PostEntry validates and persists a new feed entry.
func (s *Service) PostEntry(ctx context.Context, input PostEntryInput) (*Entry, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	entry := Entry{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		Content:    content,
		IsAdmin:    input.IsAdmin,
		AppVersion: s.appVersion,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, entry, ""); err != nil {
		return nil, fmt.Errorf("persist entry: %w", err)
	}
	return &entry, nil
}

// ListFeed returns the most recent entries, newest first. The limit is
// clamped to 1..MaxFeedLength; zero or negative means "as many as allowed".
func (s *Service) ListFeed(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxFeedLength {
		limit = MaxFeedLength
	}
	return s.repo.ListRecent(ctx, limit)
}

// EnsureSeed writes the one-time welcome entry. The boolean reports whether
// the entry already existed from an earlier run.
func (s *Service) EnsureSeed(ctx context.Context) (*Entry, bool, error) {
	if existing, err := s.repo.FindByDedupeKey(ctx, seedDedupeKey); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, true, nil
	}

	entry := Entry{
		ID:         uuid.NewString(),
		UserID:     seedUserID,
		Content:    s.seedContent,
		IsAdmin:    true,
		AppVersion: s.appVersion,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, entry, seedDedupeKey); err != nil {
		return nil, false, fmt.Errorf("persist seed entry: %w", err)
	}
	return &entry, false, nil
}
