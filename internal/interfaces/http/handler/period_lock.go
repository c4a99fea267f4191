package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	periodapp "github.com/arledger/backend/internal/application/period"
	"github.com/arledger/backend/internal/domain/period"
)

// PeriodLockHandler handles accounting-period lock API endpoints
type PeriodLockHandler struct {
	BaseHandler
	locks *periodapp.LockService
}

// NewPeriodLockHandler creates a new PeriodLockHandler
func NewPeriodLockHandler(locks *periodapp.LockService) *PeriodLockHandler {
	return &PeriodLockHandler{
		locks: locks,
	}
}

// PeriodLockResponse represents a period lock in API responses
type PeriodLockResponse struct {
	ID           string `json:"id"`
	PeriodType   string `json:"period_type"`
	PeriodKey    string `json:"period_key"`
	LockedAt     string `json:"locked_at"`
	LockedBy     string `json:"locked_by"`
	Note         string `json:"note,omitempty"`
	Active       bool   `json:"active"`
	UnlockedAt   string `json:"unlocked_at,omitempty"`
	UnlockReason string `json:"unlock_reason,omitempty"`
	Version      int    `json:"version"`
}

func newPeriodLockResponse(lock *period.PeriodLock) PeriodLockResponse {
	resp := PeriodLockResponse{
		ID:           lock.ID.String(),
		PeriodType:   string(lock.PeriodType),
		PeriodKey:    lock.PeriodKey,
		LockedAt:     lock.LockedAt.Format(time.RFC3339),
		LockedBy:     lock.LockedBy,
		Note:         lock.Note,
		Active:       lock.Active,
		UnlockReason: lock.UnlockReason,
		Version:      lock.Version,
	}
	if lock.UnlockedAt != nil {
		resp.UnlockedAt = lock.UnlockedAt.Format(time.RFC3339)
	}
	return resp
}

// LockPeriodRequest represents a request to lock an accounting period
type LockPeriodRequest struct {
	PeriodType string `json:"period_type" binding:"required,oneof=MONTH QUARTER YEAR"`
	PeriodKey  string `json:"period_key" binding:"required,min=4,max=10"`
	Note       string `json:"note" binding:"max=500"`
}

// Lock locks an accounting period against financial mutations
func (h *PeriodLockHandler) Lock(c *gin.Context) {
	var req LockPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lock, err := h.locks.LockPeriod(c.Request.Context(),
		period.PeriodType(req.PeriodType), req.PeriodKey, req.Note, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, newPeriodLockResponse(lock))
}

// UnlockPeriodRequest represents a request to unlock a period
type UnlockPeriodRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// Unlock deactivates a period lock. The reason is mandatory and audited.
func (h *PeriodLockHandler) Unlock(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid lock ID")
		return
	}

	var req UnlockPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lock, err := h.locks.UnlockPeriod(c.Request.Context(), id, req.Reason, getActor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, newPeriodLockResponse(lock))
}

// List returns period locks, active ones only when ?active=true
func (h *PeriodLockHandler) List(c *gin.Context) {
	activeOnly := false
	if activeParam := c.Query("active"); activeParam != "" {
		parsed, err := strconv.ParseBool(activeParam)
		if err != nil {
			h.BadRequest(c, "active must be a boolean")
			return
		}
		activeOnly = parsed
	}

	locks, err := h.locks.ListLocks(c.Request.Context(), activeOnly)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]PeriodLockResponse, 0, len(locks))
	for _, lock := range locks {
		out = append(out, newPeriodLockResponse(lock))
	}
	h.Success(c, out)
}
