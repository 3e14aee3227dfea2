// Package contest owns the contest lifecycle, announcements and the
// violation ladder that auto-disqualifies repeat offenders.
package contest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"codearena/internal/store"
	"codearena/internal/submission"
	appErr "codearena/pkg/errors"
	"codearena/pkg/logger"
)

// Broadcaster pushes contest events to connected clients.
type Broadcaster interface {
	EmitAll(event string, data interface{})
	EmitTo(teamID, event string, data interface{})
}

// ScoreBoard drops disqualified teams from the live ranking.
type ScoreBoard interface {
	Remove(ctx context.Context, teamID string) error
}

// Threshold at which a violation turns into disqualification.
const disqualifyAt = 2

// Service manages contest settings and team violations.
type Service struct {
	store *store.Store
	locks *submission.TeamLocker
	hub   Broadcaster
	board ScoreBoard

	// settingsMu serializes read-modify-write of the settings row so
	// concurrent admin calls cannot drop an announcement.
	settingsMu sync.Mutex
}

// NewService wires the contest service. locks must be the same instance the
// submission service uses. hub and board may be nil in tests.
func NewService(st *store.Store, locks *submission.TeamLocker, hub Broadcaster, board ScoreBoard) *Service {
	return &Service{store: st, locks: locks, hub: hub, board: board}
}

// StartInput configures a contest start. Zero values keep stored settings.
type StartInput struct {
	ScheduledStart  string
	DurationMinutes int
}

// Start activates the contest and broadcasts contest_started.
func (s *Service) Start(ctx context.Context, in StartInput) (*store.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	settings.IsActive = true
	settings.StoppedAt = ""
	if in.DurationMinutes > 0 {
		settings.DurationMinutes = in.DurationMinutes
	}
	if in.ScheduledStart != "" {
		settings.ScheduledStart = in.ScheduledStart
		settings.StartedAt = in.ScheduledStart
	} else {
		settings.StartedAt = store.NowISO()
	}

	if err := s.store.Settings.Save(ctx, settings); err != nil {
		return nil, err
	}

	logger.Info(ctx, "contest started",
		zap.String("started_at", settings.StartedAt),
		zap.Int("duration_minutes", settings.DurationMinutes))
	if s.hub != nil {
		s.hub.EmitAll("contest_started", map[string]interface{}{
			"startedAt":       settings.StartedAt,
			"contestDuration": settings.DurationMinutes,
		})
	}
	return settings, nil
}

// Stop deactivates the contest and broadcasts contest_stopped.
func (s *Service) Stop(ctx context.Context) (*store.Settings, error) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	settings.IsActive = false
	settings.StoppedAt = store.NowISO()

	if err := s.store.Settings.Save(ctx, settings); err != nil {
		return nil, err
	}

	logger.Info(ctx, "contest stopped", zap.String("stopped_at", settings.StoppedAt))
	if s.hub != nil {
		s.hub.EmitAll("contest_stopped", map[string]interface{}{
			"stoppedAt": settings.StoppedAt,
		})
	}
	return settings, nil
}

// Announce appends a message to the rolling announcement log and broadcasts
// it. The log keeps the newest MaxAnnouncements entries.
func (s *Service) Announce(ctx context.Context, message string) (*store.Announcement, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, appErr.New(appErr.AnnouncementEmpty)
	}

	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()

	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	ann := store.Announcement{Message: message, CreatedAt: store.NowISO()}
	settings.Announcements = append(settings.Announcements, ann)
	if overflow := len(settings.Announcements) - store.MaxAnnouncements; overflow > 0 {
		settings.Announcements = settings.Announcements[overflow:]
	}

	if err := s.store.Settings.Save(ctx, settings); err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.EmitAll("announcement", ann)
	}
	return &ann, nil
}

// ViolationResult reports how a violation was handled.
type ViolationResult struct {
	TeamID       string `json:"teamID"`
	Violations   int    `json:"violations"`
	Disqualified bool   `json:"disqualified"`
	// Status is "warning", "disqualified" or "ignored".
	Status string `json:"status"`
}

// ReportViolation records one proctoring violation for a team. The first
// offense warns; the second disqualifies and freezes the team. Violations
// against submitted or already disqualified teams are ignored.
func (s *Service) ReportViolation(ctx context.Context, teamID, kind string) (*ViolationResult, error) {
	if teamID == "" || strings.TrimSpace(kind) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("team id and violation kind are required")
	}

	s.locks.Lock(teamID)
	defer s.locks.Unlock(teamID)

	team, err := s.store.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.Submitted || team.Disqualified {
		return &ViolationResult{
			TeamID:       teamID,
			Violations:   team.Violations,
			Disqualified: team.Disqualified,
			Status:       "ignored",
		}, nil
	}

	team.Violations++
	result := &ViolationResult{TeamID: teamID, Violations: team.Violations, Status: "warning"}

	if team.Violations >= disqualifyAt {
		team.Disqualified = true
		team.DisqualifiedReason = fmt.Sprintf("Auto-disqualified: %s (2nd offense)", kind)
		team.Submitted = true
		team.EndTime = store.NowISO()
		result.Disqualified = true
		result.Status = "disqualified"
	}

	if err := s.store.Teams.Update(ctx, team); err != nil {
		return nil, err
	}

	logger.Warn(ctx, "violation recorded",
		zap.String("team_id", teamID),
		zap.String("kind", kind),
		zap.Int("violations", team.Violations),
		zap.Bool("disqualified", team.Disqualified))

	if result.Disqualified {
		s.dropFromBoard(ctx, teamID)
		if s.hub != nil {
			s.hub.EmitTo(teamID, "disqualified", map[string]interface{}{
				"teamID": teamID,
				"reason": team.DisqualifiedReason,
			})
		}
	}
	return result, nil
}

// Disqualify flags a team manually. Unlike the violation ladder this always
// takes effect, even on submitted teams.
func (s *Service) Disqualify(ctx context.Context, teamID, reason string) error {
	if teamID == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("team id is required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Disqualified by admin"
	}

	s.locks.Lock(teamID)
	defer s.locks.Unlock(teamID)

	team, err := s.store.Teams.GetByID(ctx, teamID)
	if err != nil {
		return err
	}
	if team.Disqualified {
		return nil
	}

	team.Disqualified = true
	team.DisqualifiedReason = reason
	team.Submitted = true
	if team.EndTime == "" {
		team.EndTime = store.NowISO()
	}
	if err := s.store.Teams.Update(ctx, team); err != nil {
		return err
	}

	logger.Warn(ctx, "team disqualified by admin",
		zap.String("team_id", teamID),
		zap.String("reason", reason))
	s.dropFromBoard(ctx, teamID)
	if s.hub != nil {
		s.hub.EmitTo(teamID, "disqualified", map[string]interface{}{
			"teamID": teamID,
			"reason": reason,
		})
	}
	return nil
}

func (s *Service) dropFromBoard(ctx context.Context, teamID string) {
	if s.board == nil {
		return
	}
	if err := s.board.Remove(ctx, teamID); err != nil {
		logger.Warn(ctx, "leaderboard removal failed",
			zap.String("team_id", teamID), zap.Error(err))
	}
}

// StatusView is the public contest status. Announcements holds the newest
// five, oldest first.
type StatusView struct {
	IsActive        bool                 `json:"isActive"`
	ScheduledStart  string               `json:"scheduledStart,omitempty"`
	DurationMinutes int                  `json:"contestDuration"`
	StartedAt       string               `json:"startedAt,omitempty"`
	StoppedAt       string               `json:"stoppedAt,omitempty"`
	Announcements   []store.Announcement `json:"announcements"`
}

// Me returns the caller's own team record. Credentials never leave the
// store layer; the team model hides them from serialization.
func (s *Service) Me(ctx context.Context, teamID string) (*store.Team, error) {
	return s.store.Teams.GetByID(ctx, teamID)
}

// Status returns the contest state every client polls on load.
func (s *Service) Status(ctx context.Context) (*StatusView, error) {
	settings, err := s.store.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	recent := settings.Announcements
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	if recent == nil {
		recent = []store.Announcement{}
	}
	return &StatusView{
		IsActive:        settings.IsActive,
		ScheduledStart:  settings.ScheduledStart,
		DurationMinutes: settings.DurationMinutes,
		StartedAt:       settings.StartedAt,
		StoppedAt:       settings.StoppedAt,
		Announcements:   recent,
	}, nil
}
