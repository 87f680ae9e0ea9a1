package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hireflow/hireflow/internal/config"
	"github.com/hireflow/hireflow/internal/exam"
	"github.com/hireflow/hireflow/internal/export"
	"github.com/hireflow/hireflow/internal/models"
	"github.com/hireflow/hireflow/internal/proctor"
	"github.com/hireflow/hireflow/internal/repository"
	"github.com/hireflow/hireflow/internal/session"
	"github.com/rs/zerolog/log"
)

// Handler holds dependencies for handlers
type Handler struct {
	cfg         *config.Config
	exams       *exam.Service
	exports     *export.Service
	invitations *repository.InvitationsRepository
	tests       *repository.TestsRepository
	images      *repository.ImagesRepository
}

func NewHandler(
	cfg *config.Config,
	exams *exam.Service,
	exports *export.Service,
	invitations *repository.InvitationsRepository,
	tests *repository.TestsRepository,
	images *repository.ImagesRepository,
) *Handler {
	return &Handler{
		cfg:         cfg,
		exams:       exams,
		exports:     exports,
		invitations: invitations,
		tests:       tests,
		images:      images,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// ValidateInvitation resolves a token. A missing invitation answers
// success:false so the client can fall back to direct test access.
func (h *Handler) ValidateInvitation(c *gin.Context) {
	token := c.Param("token")

	inv, err := h.invitations.GetInvitationByToken(c.Request.Context(), token)
	if err != nil {
		log.Error().Err(err).Str("token", token).Msg("Failed to look up invitation")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}
	if inv == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "invitation": inv})
}

func (h *Handler) GetTest(c *gin.Context) {
	testID := c.Param("id")

	test, err := h.tests.GetTestByID(c.Request.Context(), testID)
	if err != nil {
		log.Error().Err(err).Str("testId", testID).Msg("Failed to look up test")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}
	if test == nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "test": test})
}

type startSessionRequest struct {
	Token   string `json:"token" binding:"required"`
	Preview bool   `json:"preview"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sess, err := h.exams.StartSession(c.Request.Context(), req.Token, req.Preview)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"session": gin.H{
			"id":               sess.ID,
			"test":             sess.Test,
			"invitation":       sess.Invitation,
			"startedAt":        sess.StartedAt,
			"deadline":         sess.Deadline,
			"verificationStep": sess.Gate.Step(),
			"answers":          sess.Answers(),
		},
	})
}

type systemChecksRequest struct {
	Checks session.SystemChecks `json:"checks"`
}

func (h *Handler) PassSystemChecks(c *gin.Context) {
	var req systemChecksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.exams.PassSystemChecks(c.Request.Context(), c.Param("id"), req.Checks); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "step": session.GateIdentity})
}

type identityRequest struct {
	StudentID      string `json:"studentId" binding:"required"`
	CapturedImages int    `json:"capturedImages"`
}

func (h *Handler) PassIdentity(c *gin.Context) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.exams.PassIdentity(c.Request.Context(), c.Param("id"), req.StudentID, req.CapturedImages); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "step": session.GateRules})
}

type rulesRequest struct {
	Accepted bool `json:"accepted"`
}

func (h *Handler) AcceptRules(c *gin.Context) {
	var req rulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.exams.AcceptRules(c.Request.Context(), c.Param("id"), req.Accepted); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "step": session.GateComplete})
}

type answerRequest struct {
	SectionID  string `json:"sectionId" binding:"required"`
	QuestionID string `json:"questionId" binding:"required"`
	Answer     string `json:"answer"`
}

func (h *Handler) SaveAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.exams.SaveAnswer(c.Request.Context(), c.Param("id"), req.SectionID, req.QuestionID, req.Answer); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type codeRequest struct {
	SectionID  string `json:"sectionId" binding:"required"`
	QuestionID string `json:"questionId" binding:"required"`
	Code       string `json:"code"`
}

func (h *Handler) SaveCode(c *gin.Context) {
	var req codeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.exams.SaveCode(c.Request.Context(), c.Param("id"), req.SectionID, req.QuestionID, req.Code); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetEditorCode(c *gin.Context) {
	sectionID := c.Query("sectionId")
	questionID := c.Query("questionId")
	if sectionID == "" || questionID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "sectionId and questionId are required", Code: "INVALID_REQUEST"})
		return
	}

	code, err := h.exams.EditorCode(c.Request.Context(), c.Param("id"), sectionID, questionID)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "code": code})
}

type codeRunRequest struct {
	SectionID  string                `json:"sectionId" binding:"required"`
	QuestionID string                `json:"questionId" binding:"required"`
	Submission models.CodeSubmission `json:"submission" binding:"required"`
}

// RecordCodeRun stores one client-reported execution record. The runner
// stream feeds the same history asynchronously.
func (h *Handler) RecordCodeRun(c *gin.Context) {
	var req codeRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if err := h.exams.RecordCodeRun(c.Request.Context(), c.Param("id"), req.SectionID, req.QuestionID, req.Submission, "api"); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type proctorEventRequest struct {
	Kind string `json:"kind" binding:"required"`
	At   int64  `json:"at"` // unix millis; zero means now
}

func (h *Handler) RecordProctorEvent(c *gin.Context) {
	var req proctorEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	at := time.Now()
	if req.At > 0 {
		at = time.UnixMilli(req.At)
	}

	count, terminated, err := h.exams.RecordProctorEvent(c.Request.Context(), c.Param("id"), proctor.EventKind(req.Kind), at)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"tabSwitchCount": count,
		"terminated":     terminated,
	})
}

type cameraStatusRequest struct {
	Slot      string `json:"slot" binding:"required"`
	Attached  bool   `json:"attached"`
	ErrorName string `json:"errorName"`
}

func (h *Handler) CameraStatus(c *gin.Context) {
	var req cameraStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	advice, err := h.exams.CameraStatus(c.Request.Context(), c.Param("id"), proctor.SlotKind(req.Slot), req.Attached, req.ErrorName)
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"class":        advice.Class,
		"retry":        advice.Retry,
		"retryAfterMs": advice.RetryAfter.Milliseconds(),
	})
}

func (h *Handler) Submit(c *gin.Context) {
	result, err := h.exams.Submit(c.Request.Context(), c.Param("id"), exam.TriggerUser)
	if err != nil {
		var blocked *exam.BlockedError
		if errors.As(err, &blocked) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success":   false,
				"code":      "SUBMISSION_BLOCKED",
				"error":     blocked.Error(),
				"questions": blocked.Questions,
			})
			return
		}
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *Handler) GetResult(c *gin.Context) {
	summary, err := h.exams.ResultSummary(c.Request.Context(), c.Param("invitationId"))
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": summary})
}

// UploadVerificationImage stores a face or ID-card capture. Failure is
// non-fatal to the verification gate; the client only warns.
func (h *Handler) UploadVerificationImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required", Code: "INVALID_REQUEST"})
		return
	}

	token := c.PostForm("token")
	imageType := c.PostForm("type")
	preview := c.PostForm("isPreview") == "true"
	if token == "" || imageType == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "token and type are required", Code: "INVALID_REQUEST"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read image", Code: "INVALID_REQUEST"})
		return
	}
	defer src.Close()

	imageURL, err := h.images.SaveImage(token, imageType, preview, src)
	if err != nil {
		log.Error().Err(err).Str("token", token).Msg("Failed to store verification image")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "imageUrl": imageURL})
}

func (h *Handler) GetUploadedImage(c *gin.Context) {
	data, err := h.images.ReadImage(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

func (h *Handler) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, exam.ErrSessionNotFound), errors.Is(err, exam.ErrTestNotFound), errors.Is(err, exam.ErrResultNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
	case errors.Is(err, exam.ErrInvitationExpired):
		c.JSON(http.StatusGone, ErrorResponse{Error: err.Error(), Code: "INVITATION_EXPIRED"})
	case errors.Is(err, exam.ErrInvitationCompleted):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "INVITATION_COMPLETED"})
	case errors.Is(err, exam.ErrSessionFinished):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: "SESSION_FINISHED"})
	default:
		// Gate and validation failures stay local; nothing here reaches
		// an upstream service.
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "VALIDATION_FAILED"})
	}
}
