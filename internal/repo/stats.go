// Package repo implements the persistence layer for the bot's documents.
// This file provides the aggregate numbers shown on the admin dashboard and
// exposed by the stats API.
package repo

import (
	"context"

	"github.com/tbourn/html-downloader-bot/internal/domain"
)

// DashboardStats holds aggregate, non-secret counters.
type DashboardStats struct {
	APIKeyCount   int   `json:"api_key_count"`
	TotalRequests int64 `json:"total_requests"`
	TodayRequests int64 `json:"today_requests"`
	UserCount     int   `json:"user_count"`
}

// DashboardStats applies the lazy day rollover and then snapshots the
// counters. A stale "today" value is only corrected here or on the next
// increment.
func (s *Store) DashboardStats(ctx context.Context) DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked(ctx)
	return DashboardStats{
		APIKeyCount:   len(s.keys.Keys),
		TotalRequests: s.usage.Total,
		TodayRequests: s.usage.Today,
		UserCount:     len(s.users.Users),
	}
}

// StatsSnapshot is the read-only variant of DashboardStats: a stale "today"
// counter is reported as zero but nothing is written. Use it from processes
// that share the documents with a running server.
func (s *Store) StatsSnapshot() DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := s.usage.Today
	if s.usage.LastResetDate != domain.DayKey(s.clock()) {
		today = 0
	}
	return DashboardStats{
		APIKeyCount:   len(s.keys.Keys),
		TotalRequests: s.usage.Total,
		TodayRequests: today,
		UserCount:     len(s.users.Users),
	}
}
