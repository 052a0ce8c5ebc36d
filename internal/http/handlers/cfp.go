package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/borealisconf/borealis-backend/internal/http/response"
	"github.com/borealisconf/borealis-backend/internal/platform/ctxutil"
	"github.com/borealisconf/borealis-backend/internal/services"
)

type CFPHandler struct {
	cfpService services.CFPService
}

func NewCFPHandler(cfpService services.CFPService) *CFPHandler {
	return &CFPHandler{cfpService: cfpService}
}

type submissionRequest struct {
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	Format        string `json:"format"`
	Track         string `json:"track"`
	AudienceLevel string `json:"audience_level"`
	SpeakerBio    string `json:"speaker_bio"`
	Notes         string `json:"notes"`
}

func (r submissionRequest) toInput() services.SubmissionInput {
	return services.SubmissionInput{
		Title:         r.Title,
		Abstract:      r.Abstract,
		Format:        r.Format,
		Track:         r.Track,
		AudienceLevel: r.AudienceLevel,
		SpeakerBio:    r.SpeakerBio,
		Notes:         r.Notes,
	}
}

func callerID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.AccountID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.AccountID, true
}

func submissionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

// --- owner ---

func (fh *CFPHandler) CreateDraft(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	submission, err := fh.cfpService.CreateDraft(c.Request.Context(), accountID, req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondCreated(c, submission)
}

func (fh *CFPHandler) UpdateDraft(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	submission, err := fh.cfpService.UpdateDraft(c.Request.Context(), accountID, id, req.toInput())
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (fh *CFPHandler) Submit(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}
	submission, err := fh.cfpService.Submit(c.Request.Context(), accountID, id)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (fh *CFPHandler) Withdraw(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}
	submission, err := fh.cfpService.Withdraw(c.Request.Context(), accountID, id)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (fh *CFPHandler) ListOwn(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	submissions, err := fh.cfpService.ListOwn(c.Request.Context(), accountID)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submissions": submissions})
}

func (fh *CFPHandler) GetOwn(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}
	submission, err := fh.cfpService.GetOwn(c.Request.Context(), accountID, id)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (fh *CFPHandler) UploadSlides(c *gin.Context) {
	accountID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("slides")
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
	submission, err := fh.cfpService.UploadSlides(c.Request.Context(), accountID, id, fileHeader.Filename, f)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

// --- admin ---

func (fh *CFPHandler) ListByStatus(c *gin.Context) {
	summaries, err := fh.cfpService.ListByStatus(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"submissions": summaries})
}

func (fh *CFPHandler) StartReview(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	submission, err := fh.cfpService.StartReview(c.Request.Context(), id)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (fh *CFPHandler) Decide(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	submission, err := fh.cfpService.Decide(c.Request.Context(), id, req.Accept)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, submission)
}

func (fh *CFPHandler) UpsertReview(c *gin.Context) {
	reviewerID, ok := callerID(c)
	if !ok {
		return
	}
	id, ok := submissionID(c)
	if !ok {
		return
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	review, err := fh.cfpService.UpsertReview(c.Request.Context(), reviewerID, id, services.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, review)
}

func (fh *CFPHandler) ListReviews(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}
	reviews, err := fh.cfpService.ListReviews(c.Request.Context(), id)
	if err != nil {
		response.Respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"reviews": reviews})
}
