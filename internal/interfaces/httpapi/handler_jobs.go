package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/jobscheduler"
	"github.com/riskibarqy/fixture-calendar-sync/internal/usecase"
)

// internalJobRequest is the optional body sent by the job queue. Its fields
// are only logged so a chained delivery can be traced back to its run.
type internalJobRequest struct {
	DispatchID string `json:"dispatch_id" validate:"omitempty,max=256"`
	PassKind   string `json:"pass_kind" validate:"omitempty,max=32"`
	PreviousID string `json:"previous_id" validate:"omitempty,max=128"`
}

func (h *Handler) RunNightlyPassJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunNightlyPassJob")
	defer span.End()

	h.runPassJob(w, r.WithContext(ctx), jobscheduler.PassNightly)
}

func (h *Handler) RunLiveRefreshJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunLiveRefreshJob")
	defer span.End()

	h.runPassJob(w, r.WithContext(ctx), jobscheduler.PassLive)
}

func (h *Handler) RunScheduleRefreshJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunScheduleRefreshJob")
	defer span.End()

	h.runPassJob(w, r.WithContext(ctx), jobscheduler.PassSchedule)
}

func (h *Handler) runPassJob(w http.ResponseWriter, r *http.Request, kind jobscheduler.PassKind) {
	ctx := r.Context()
	if h.scheduler == nil {
		writeError(ctx, w, fmt.Errorf("%w: scheduler is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalJobRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}
	dispatchID := strings.TrimSpace(req.DispatchID)

	result, err := h.scheduler.RunPass(ctx, kind, time.Now())
	if err != nil {
		h.logger.WarnContext(ctx, "internal pass job failed", "kind", kind, "dispatch_id", dispatchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "internal pass job finished",
		"kind", kind,
		"dispatch_id", dispatchID,
		"previous_id", req.PreviousID,
		"pass_id", result.Run.ID,
		"status", result.Run.Status,
	)
	writeSuccess(ctx, w, http.StatusOK, passResultToDTO(result))
}
