package service

import (
	"time"

	"daily-todo/internal/model"
)

func (s *SchedulerService) scheduled(handle model.NotificationHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[handle]
	return ok
}

// nextRun is only known once the scheduler runs.
func (s *SchedulerService) nextRun(handle model.NotificationHandle) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[handle]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	next := s.cron.Entry(id).Next
	return next, !next.IsZero()
}
