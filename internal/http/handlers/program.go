package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type ProgramHandler struct {
	programService services.ProgramService
}

func NewProgramHandler(programService services.ProgramService) *ProgramHandler {
	return &ProgramHandler{programService: programService}
}

// --- public ---

func (ph *ProgramHandler) ListSpeakers(c *gin.Context) {
	speakers, err := ph.programService.ListSpeakers(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"speakers": speakers})
}

func (ph *ProgramHandler) GetSpeaker(c *gin.Context) {
	speaker, sessions, err := ph.programService.GetSpeakerBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"speaker": speaker, "sessions": sessions})
}

func (ph *ProgramHandler) ListSessions(c *gin.Context) {
	sessions, err := ph.programService.ListSessions(c.Request.Context(), c.Query("track"))
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

func (ph *ProgramHandler) GetSession(c *gin.Context) {
	session, err := ph.programService.GetSessionBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, session)
}

func (ph *ProgramHandler) Schedule(c *gin.Context) {
	days, err := ph.programService.Schedule(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"days": days})
}

// --- admin ---

type speakerRequest struct {
	AccountID *uuid.UUID        `json:"account_id"`
	Name      string            `json:"name"`
	Title     string            `json:"title"`
	Company   string            `json:"company"`
	Bio       string            `json:"bio"`
	Links     map[string]string `json:"links"`
	Featured  *bool             `json:"featured"`
	Published *bool             `json:"published"`
}

func (r speakerRequest) toInput() services.SpeakerInput {
	return services.SpeakerInput{
		AccountID: r.AccountID,
		Name:      r.Name,
		Title:     r.Title,
		Company:   r.Company,
		Bio:       r.Bio,
		Links:     r.Links,
		Featured:  r.Featured,
		Published: r.Published,
	}
}

func (ph *ProgramHandler) ListAllSpeakers(c *gin.Context) {
	speakers, err := ph.programService.ListAllSpeakers(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"speakers": speakers})
}

func (ph *ProgramHandler) CreateSpeaker(c *gin.Context) {
	var req speakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	speaker, err := ph.programService.CreateSpeaker(c.Request.Context(), req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, speaker)
}

func (ph *ProgramHandler) UpdateSpeaker(c *gin.Context) {
	speakerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req speakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	speaker, err := ph.programService.UpdateSpeaker(c.Request.Context(), speakerID, req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, speaker)
}

func (ph *ProgramHandler) DeleteSpeaker(c *gin.Context) {
	speakerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := ph.programService.DeleteSpeaker(c.Request.Context(), speakerID); err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (ph *ProgramHandler) UploadSpeakerPhoto(c *gin.Context) {
	speakerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	photo, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	speaker, err := ph.programService.UploadSpeakerPhoto(c.Request.Context(), speakerID, photo)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, speaker)
}

type sessionRequest struct {
	SpeakerID uuid.UUID  `json:"speaker_id"`
	Title     string     `json:"title"`
	Abstract  string     `json:"abstract"`
	Format    string     `json:"format"`
	Track     string     `json:"track"`
	Room      string     `json:"room"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Published *bool      `json:"published"`
}

func (r sessionRequest) toInput() services.SessionInput {
	return services.SessionInput{
		SpeakerID: r.SpeakerID,
		Title:     r.Title,
		Abstract:  r.Abstract,
		Format:    r.Format,
		Track:     r.Track,
		Room:      r.Room,
		StartsAt:  r.StartsAt,
		EndsAt:    r.EndsAt,
		Published: r.Published,
	}
}

func (ph *ProgramHandler) ListAllSessions(c *gin.Context) {
	sessions, err := ph.programService.ListAllSessions(c.Request.Context())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

func (ph *ProgramHandler) CreateSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := ph.programService.CreateSession(c.Request.Context(), req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, session)
}

func (ph *ProgramHandler) UpdateSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	session, err := ph.programService.UpdateSession(c.Request.Context(), sessionID, req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, session)
}

func (ph *ProgramHandler) DeleteSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := ph.programService.DeleteSession(c.Request.Context(), sessionID); err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
