package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	programrepo "github.com/borealisconf/borealis-backend/internal/data/repos/program"
	types "github.com/borealisconf/borealis-backend/internal/domain"
	"github.com/borealisconf/borealis-backend/internal/pkg/slug"
	"github.com/borealisconf/borealis-backend/internal/platform/apierr"
	"github.com/borealisconf/borealis-backend/internal/platform/gcs"
	"github.com/borealisconf/borealis-backend/internal/platform/logger"
	"github.com/borealisconf/borealis-backend/internal/platform/redcache"
)

const (
	cacheKeySpeakers = "program:speakers"
	cacheKeySessions = "program:sessions"
	cacheKeySchedule = "program:schedule"
	programCacheTTL  = 60 * time.Second
)

type SpeakerInput struct {
	AccountID *uuid.UUID
	Name      string
	Title     string
	Company   string
	Bio       string
	Links     map[string]string
	Featured  *bool
	Published *bool
}

type SessionInput struct {
	SpeakerID uuid.UUID
	Title     string
	Abstract  string
	Format    string
	Track     string
	Room      string
	StartsAt  *time.Time
	EndsAt    *time.Time
	Published *bool
}

// ScheduleDay groups published, scheduled sessions for one calendar
// day in starts_at order.
type ScheduleDay struct {
	Date     string           `json:"date"`
	Sessions []*types.Session `json:"sessions"`
}

type ProgramService interface {
	// public
	ListSpeakers(ctx context.Context) ([]*types.Speaker, error)
	GetSpeakerBySlug(ctx context.Context, slugStr string) (*types.Speaker, []*types.Session, error)
	ListSessions(ctx context.Context, track string) ([]*types.Session, error)
	GetSessionBySlug(ctx context.Context, slugStr string) (*types.Session, error)
	Schedule(ctx context.Context) ([]ScheduleDay, error)

	// admin
	CreateSpeaker(ctx context.Context, input SpeakerInput) (*types.Speaker, error)
	UpdateSpeaker(ctx context.Context, speakerID uuid.UUID, input SpeakerInput) (*types.Speaker, error)
	DeleteSpeaker(ctx context.Context, speakerID uuid.UUID) error
	UploadSpeakerPhoto(ctx context.Context, speakerID uuid.UUID, photo []byte) (*types.Speaker, error)
	ListAllSpeakers(ctx context.Context) ([]*types.Speaker, error)
	CreateSession(ctx context.Context, input SessionInput) (*types.Session, error)
	UpdateSession(ctx context.Context, sessionID uuid.UUID, input SessionInput) (*types.Session, error)
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	ListAllSessions(ctx context.Context) ([]*types.Session, error)
}

type programService struct {
	db            *gorm.DB
	log           *logger.Logger
	speakerRepo   programrepo.SpeakerRepo
	sessionRepo   programrepo.SessionRepo
	bucketService gcs.BucketService
	cardService   SocialCardService
	cache         *redcache.Cache
}

func NewProgramService(
	db *gorm.DB,
	log *logger.Logger,
	speakerRepo programrepo.SpeakerRepo,
	sessionRepo programrepo.SessionRepo,
	bucketService gcs.BucketService,
	cardService SocialCardService,
	cache *redcache.Cache,
) ProgramService {
	serviceLog := log.With("service", "ProgramService")
	return &programService{
		db:            db,
		log:           serviceLog,
		speakerRepo:   speakerRepo,
		sessionRepo:   sessionRepo,
		bucketService: bucketService,
		cardService:   cardService,
		cache:         cache,
	}
}

// --- public reads ---

func (ps *programService) ListSpeakers(ctx context.Context) ([]*types.Speaker, error) {
	var cached []*types.Speaker
	if hit, err := ps.cache.GetJSON(ctx, cacheKeySpeakers, &cached); err == nil && hit {
		return cached, nil
	}

	speakers, err := ps.speakerRepo.ListPublished(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list speakers: %w", err)
	}
	if err := ps.cache.SetJSON(ctx, cacheKeySpeakers, speakers, programCacheTTL); err != nil {
		ps.log.Warn("speaker cache write failed (ignored)", "error", err)
	}
	return speakers, nil
}

func (ps *programService) GetSpeakerBySlug(ctx context.Context, slugStr string) (*types.Speaker, []*types.Session, error) {
	speaker, err := ps.speakerRepo.GetBySlug(ctx, nil, slugStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierr.NotFound("speaker_not_found", fmt.Errorf("no such speaker"))
		}
		return nil, nil, fmt.Errorf("get speaker: %w", err)
	}
	if !speaker.Published {
		return nil, nil, apierr.NotFound("speaker_not_found", fmt.Errorf("no such speaker"))
	}
	sessions, err := ps.sessionRepo.ListBySpeakerID(ctx, nil, speaker.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list speaker sessions: %w", err)
	}
	return speaker, sessions, nil
}

func (ps *programService) ListSessions(ctx context.Context, track string) ([]*types.Session, error) {
	// Only the unfiltered listing is cached; track filters are rare.
	if track == "" {
		var cached []*types.Session
		if hit, err := ps.cache.GetJSON(ctx, cacheKeySessions, &cached); err == nil && hit {
			return cached, nil
		}
	}

	sessions, err := ps.sessionRepo.ListPublished(ctx, nil, track)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if track == "" {
		if err := ps.cache.SetJSON(ctx, cacheKeySessions, sessions, programCacheTTL); err != nil {
			ps.log.Warn("session cache write failed (ignored)", "error", err)
		}
	}
	return sessions, nil
}

func (ps *programService) GetSessionBySlug(ctx context.Context, slugStr string) (*types.Session, error) {
	session, err := ps.sessionRepo.GetBySlug(ctx, nil, slugStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("session_not_found", fmt.Errorf("no such session"))
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !session.Published {
		return nil, apierr.NotFound("session_not_found", fmt.Errorf("no such session"))
	}
	return session, nil
}

func (ps *programService) Schedule(ctx context.Context) ([]ScheduleDay, error) {
	var cached []ScheduleDay
	if hit, err := ps.cache.GetJSON(ctx, cacheKeySchedule, &cached); err == nil && hit {
		return cached, nil
	}

	sessions, err := ps.sessionRepo.ListScheduled(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list scheduled sessions: %w", err)
	}

	days := []ScheduleDay{}
	for _, session := range sessions {
		date := session.StartsAt.Format("2006-01-02")
		if len(days) == 0 || days[len(days)-1].Date != date {
			days = append(days, ScheduleDay{Date: date})
		}
		days[len(days)-1].Sessions = append(days[len(days)-1].Sessions, session)
	}

	if err := ps.cache.SetJSON(ctx, cacheKeySchedule, days, programCacheTTL); err != nil {
		ps.log.Warn("schedule cache write failed (ignored)", "error", err)
	}
	return days, nil
}

// --- admin writes ---

func (ps *programService) CreateSpeaker(ctx context.Context, input SpeakerInput) (*types.Speaker, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apierr.BadRequest("missing_name", fmt.Errorf("speaker name is required"))
	}

	speaker := &types.Speaker{
		ID:        uuid.New(),
		AccountID: input.AccountID,
		Name:      name,
		Title:     strings.TrimSpace(input.Title),
		Company:   strings.TrimSpace(input.Company),
		Bio:       input.Bio,
	}
	if input.Featured != nil {
		speaker.Featured = *input.Featured
	}
	if input.Published != nil {
		speaker.Published = *input.Published
	}
	if input.Links != nil {
		links, err := linksJSON(input.Links)
		if err != nil {
			return nil, err
		}
		speaker.Links = links
	}

	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uniq, err := uniqueSpeakerSlug(ctx, tx, ps.speakerRepo, slug.Make(name))
		if err != nil {
			return err
		}
		speaker.Slug = uniq
		_, err = ps.speakerRepo.Create(ctx, tx, speaker)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create speaker: %w", err)
	}

	ps.invalidateProgramCache(ctx)
	return speaker, nil
}

func (ps *programService) UpdateSpeaker(ctx context.Context, speakerID uuid.UUID, input SpeakerInput) (*types.Speaker, error) {
	fields := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" {
		fields["name"] = name
	}
	if input.Title != "" {
		fields["title"] = strings.TrimSpace(input.Title)
	}
	if input.Company != "" {
		fields["company"] = strings.TrimSpace(input.Company)
	}
	if input.Bio != "" {
		fields["bio"] = input.Bio
	}
	if input.Featured != nil {
		fields["featured"] = *input.Featured
	}
	if input.Published != nil {
		fields["published"] = *input.Published
	}
	if input.Links != nil {
		links, err := linksJSON(input.Links)
		if err != nil {
			return nil, err
		}
		fields["links"] = links
	}

	var speaker *types.Speaker
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ps.speakerRepo.GetByID(ctx, tx, speakerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("speaker_not_found", fmt.Errorf("no such speaker"))
			}
			return err
		}
		if err := ps.speakerRepo.Update(ctx, tx, speakerID, fields); err != nil {
			return fmt.Errorf("update speaker: %w", err)
		}
		got, err := ps.speakerRepo.GetByID(ctx, tx, speakerID)
		if err != nil {
			return err
		}
		speaker = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.invalidateProgramCache(ctx)
	return speaker, nil
}

func (ps *programService) DeleteSpeaker(ctx context.Context, speakerID uuid.UUID) error {
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions, err := ps.sessionRepo.ListBySpeakerID(ctx, tx, speakerID)
		if err != nil {
			return err
		}
		if len(sessions) > 0 {
			return apierr.Conflict("speaker_has_sessions", fmt.Errorf("speaker still has published sessions"))
		}
		return ps.speakerRepo.Delete(ctx, tx, speakerID)
	})
	if err != nil {
		return err
	}
	ps.invalidateProgramCache(ctx)
	return nil
}

func (ps *programService) UploadSpeakerPhoto(ctx context.Context, speakerID uuid.UUID, photo []byte) (*types.Speaker, error) {
	if len(photo) == 0 {
		return nil, apierr.BadRequest("empty_photo", fmt.Errorf("photo payload is empty"))
	}

	speaker, err := ps.speakerRepo.GetByID(ctx, nil, speakerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("speaker_not_found", fmt.Errorf("no such speaker"))
		}
		return nil, err
	}

	oldKey := speaker.PhotoKey
	newKey := fmt.Sprintf("%s/%d.png", speaker.ID.String(), time.Now().UnixNano())
	if err := ps.bucketService.Upload(ctx, gcs.CategoryPhoto, newKey, bytes.NewReader(photo)); err != nil {
		return nil, apierr.Upstream("photo_upload_failed", err)
	}

	photoURL := ps.bucketService.PublicURL(gcs.CategoryPhoto, newKey)
	if err := ps.speakerRepo.Update(ctx, nil, speakerID, map[string]any{
		"photo_key": newKey,
		"photo_url": photoURL,
	}); err != nil {
		return nil, fmt.Errorf("persist photo fields: %w", err)
	}
	speaker.PhotoKey = newKey
	speaker.PhotoURL = photoURL

	if oldKey != "" && oldKey != newKey {
		if err := ps.bucketService.Delete(ctx, gcs.CategoryPhoto, oldKey); err != nil {
			ps.log.Warn("failed to delete old speaker photo (ignored)", "oldKey", oldKey, "error", err)
		}
	}

	ps.invalidateProgramCache(ctx)
	return speaker, nil
}

func (ps *programService) ListAllSpeakers(ctx context.Context) ([]*types.Speaker, error) {
	return ps.speakerRepo.ListAll(ctx, nil)
}

func (ps *programService) CreateSession(ctx context.Context, input SessionInput) (*types.Session, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apierr.BadRequest("missing_title", fmt.Errorf("session title is required"))
	}
	format := input.Format
	if format == "" {
		format = types.SessionFormatTalk
	}
	if !validSessionFormat(format) {
		return nil, apierr.BadRequest("invalid_format", fmt.Errorf("unknown session format %q", format))
	}
	if input.StartsAt != nil && input.EndsAt != nil && !input.EndsAt.After(*input.StartsAt) {
		return nil, apierr.BadRequest("invalid_schedule", fmt.Errorf("session must end after it starts"))
	}

	session := &types.Session{
		ID:        uuid.New(),
		SpeakerID: input.SpeakerID,
		Title:     title,
		Abstract:  input.Abstract,
		Format:    format,
		Track:     strings.TrimSpace(input.Track),
		Room:      strings.TrimSpace(input.Room),
		StartsAt:  input.StartsAt,
		EndsAt:    input.EndsAt,
	}
	if input.Published != nil {
		session.Published = *input.Published
	}

	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		speaker, err := ps.speakerRepo.GetByID(ctx, tx, input.SpeakerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.BadRequest("unknown_speaker", fmt.Errorf("no such speaker"))
			}
			return err
		}
		uniq, err := uniqueSessionSlug(ctx, tx, ps.sessionRepo, slug.Make(title))
		if err != nil {
			return err
		}
		session.Slug = uniq
		if _, err := ps.sessionRepo.Create(ctx, tx, session); err != nil {
			return err
		}
		if ps.cardService != nil {
			if err := ps.cardService.CreateAndUploadSessionCard(ctx, tx, session, speaker.Name); err != nil {
				ps.log.Warn("session card render failed (ignored)", "error", err)
			} else if err := ps.sessionRepo.Update(ctx, tx, session.ID, map[string]any{
				"card_key": session.CardKey,
				"card_url": session.CardURL,
			}); err != nil {
				return fmt.Errorf("persist card fields: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.invalidateProgramCache(ctx)
	return session, nil
}

func (ps *programService) UpdateSession(ctx context.Context, sessionID uuid.UUID, input SessionInput) (*types.Session, error) {
	fields := map[string]any{}
	if title := strings.TrimSpace(input.Title); title != "" {
		fields["title"] = title
	}
	if input.Abstract != "" {
		fields["abstract"] = input.Abstract
	}
	if input.Format != "" {
		if !validSessionFormat(input.Format) {
			return nil, apierr.BadRequest("invalid_format", fmt.Errorf("unknown session format %q", input.Format))
		}
		fields["format"] = input.Format
	}
	if input.Track != "" {
		fields["track"] = strings.TrimSpace(input.Track)
	}
	if input.Room != "" {
		fields["room"] = strings.TrimSpace(input.Room)
	}
	if input.StartsAt != nil {
		fields["starts_at"] = *input.StartsAt
	}
	if input.EndsAt != nil {
		fields["ends_at"] = *input.EndsAt
	}
	if input.SpeakerID != uuid.Nil {
		fields["speaker_id"] = input.SpeakerID
	}
	if input.Published != nil {
		fields["published"] = *input.Published
	}

	var session *types.Session
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ps.sessionRepo.GetByID(ctx, tx, sessionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierr.NotFound("session_not_found", fmt.Errorf("no such session"))
			}
			return err
		}
		if err := ps.sessionRepo.Update(ctx, tx, sessionID, fields); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		got, err := ps.sessionRepo.GetByID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if got.StartsAt != nil && got.EndsAt != nil && !got.EndsAt.After(*got.StartsAt) {
			return apierr.BadRequest("invalid_schedule", fmt.Errorf("session must end after it starts"))
		}
		session = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	ps.invalidateProgramCache(ctx)
	return session, nil
}

func (ps *programService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := ps.sessionRepo.Delete(ctx, nil, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	ps.invalidateProgramCache(ctx)
	return nil
}

func (ps *programService) ListAllSessions(ctx context.Context) ([]*types.Session, error) {
	return ps.sessionRepo.ListAll(ctx, nil)
}

// --- helpers ---

func (ps *programService) invalidateProgramCache(ctx context.Context) {
	if err := ps.cache.Delete(ctx, cacheKeySpeakers, cacheKeySessions, cacheKeySchedule); err != nil {
		ps.log.Warn("program cache invalidation failed (ignored)", "error", err)
	}
}

func uniqueSpeakerSlug(ctx context.Context, tx *gorm.DB, speakerRepo programrepo.SpeakerRepo, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		exists, err := speakerRepo.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, n)
	}
}

func uniqueSessionSlug(ctx context.Context, tx *gorm.DB, sessionRepo programrepo.SessionRepo, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		exists, err := sessionRepo.SlugExists(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = slug.WithSuffix(base, n)
	}
}

func validSessionFormat(f string) bool {
	switch f {
	case types.SessionFormatTalk, types.SessionFormatWorkshop, types.SessionFormatLightning:
		return true
	default:
		return false
	}
}

func linksJSON(links map[string]string) (datatypes.JSON, error) {
	raw, err := json.Marshal(links)
	if err != nil {
		return nil, fmt.Errorf("encode links: %w", err)
	}
	return datatypes.JSON(raw), nil
}
