package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/SaiDhiren-Musaloji/uber-like-matching-system/internal/locking"
)

// --- Response DTO (HTTP boundary) ---

type activeLockView struct {
	Resource       string `json:"resource"`
	RemainingTTLMs int64  `json:"remaining_ttl_ms"`
}

type listLocksResponse struct {
	Count int              `json:"count"`
	Locks []activeLockView `json:"locks"`
}

// --- Handler: GET /locks ---

func (handler *BookingHTTPHandler) handleListLocks(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	locks, err := handler.svc.GetLockStatistics(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, listLocksResponse{
		Count: len(locks),
		Locks: toLockViews(locks),
	})
}

func toLockViews(locks []locking.ActiveLock) []activeLockView {
	views := make([]activeLockView, 0, len(locks))
	for _, l := range locks {
		views = append(views, activeLockView{
			Resource:       l.Resource,
			RemainingTTLMs: l.RemainingTTL.Milliseconds(),
		})
	}
	return views
}
