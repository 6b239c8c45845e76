package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/progress-reconciler/internal/domain"
	"github.com/yungbote/progress-reconciler/internal/domain/progress"
	"github.com/yungbote/progress-reconciler/internal/http/response"
	"github.com/yungbote/progress-reconciler/internal/platform/apierr"
	"github.com/yungbote/progress-reconciler/internal/platform/ctxutil"
	"github.com/yungbote/progress-reconciler/internal/platform/logger"
	"github.com/yungbote/progress-reconciler/internal/services"
)

type ProgressHandler struct {
	log *logger.Logger
	svc services.ProgressService
}

func NewProgressHandler(log *logger.Logger, svc services.ProgressService) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), svc: svc}
}

type updateContentStateRequest struct {
	UserID      string               `json:"userId"`
	Contents    []types.ContentEvent `json:"contents"`
	Assessments []json.RawMessage    `json:"assessments"`
}

type updateContentStateBody struct {
	Request *updateContentStateRequest `json:"request" binding:"required"`
}

type readContentStateRequest struct {
	UserID     string   `json:"userId" binding:"required"`
	BatchID    string   `json:"batchId" binding:"required"`
	CourseID   string   `json:"courseId"`
	ContentIDs []string `json:"contentIds"`
}

type readContentStateBody struct {
	Request *readContentStateRequest `json:"request" binding:"required"`
}

// POST /api/v1/content/state/update
func (h *ProgressHandler) UpdateContentState(c *gin.Context) {
	var body updateContentStateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidBody, err)
		return
	}

	req := services.UpdateRequest{
		UserID:        strings.TrimSpace(body.Request.UserID),
		ContentEvents: body.Request.Contents,
	}
	for i, raw := range body.Request.Assessments {
		ev, err := progress.DecodeAssessmentEvent(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidBody, fmt.Errorf("assessments[%d]: %w", i, err))
			return
		}
		req.AssessmentEvents = append(req.AssessmentEvents, ev)
	}
	td := ctxutil.GetTraceData(c.Request.Context())
	if td != nil {
		td.UserID = req.UserID
		td.EventCount = len(req.ContentEvents) + len(req.AssessmentEvents)
	}

	ledger, err := h.svc.UpdateContentState(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrTooManyEvents) {
			response.RespondAPIError(c, apierr.BadRequest(apierr.CodeTooManyEvents, err))
			return
		}
		h.log.Error("update content state failed", "error", err)
		response.RespondAPIError(c, apierr.Internal(err))
		return
	}
	if ledger == nil {
		ledger = services.NewOutcomeLedger()
	}
	if td != nil {
		td.FailedUnits = ledger.Failed()
	}
	if ledger.AllFailed() {
		response.RespondErrorWithResult(c, http.StatusBadRequest, apierr.CodeAllUnitsFailed, errors.New("every event failed"), ledger)
		return
	}
	response.RespondOK(c, response.ResultEnvelope{Result: ledger})
}

// POST /api/v1/content/state/read
func (h *ProgressHandler) ReadContentState(c *gin.Context) {
	var body readContentStateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeInvalidBody, err)
		return
	}
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		td.UserID = strings.TrimSpace(body.Request.UserID)
		td.BatchID = strings.TrimSpace(body.Request.BatchID)
	}
	rows, err := h.svc.ReadContentState(c.Request.Context(), services.ReadRequest{
		UserID:     body.Request.UserID,
		BatchID:    body.Request.BatchID,
		CourseID:   body.Request.CourseID,
		ContentIDs: body.Request.ContentIDs,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidReadArgs) {
			response.RespondAPIError(c, apierr.BadRequest(apierr.CodeInvalidRequest, err))
			return
		}
		h.log.Error("read content state failed", "error", err)
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, apierr.CodeStoreUnavailable, err))
		return
	}
	if rows == nil {
		rows = []*types.ProgressRecord{}
	}
	response.RespondOK(c, response.ResultEnvelope{Result: gin.H{"contentList": rows}})
}
