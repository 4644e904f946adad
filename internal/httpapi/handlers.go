package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rclong1221/sploot-media-clustering/internal/apperrors"
	"github.com/rclong1221/sploot-media-clustering/internal/cachestore"
	"github.com/rclong1221/sploot-media-clustering/internal/domain"
	"github.com/rclong1221/sploot-media-clustering/internal/metrics"
	"github.com/rclong1221/sploot-media-clustering/internal/queue"
)

// Handlers bundles the dependencies the internal API routes need.
type Handlers struct {
	Producer *queue.Producer
	Cache    cachestore.Store
	Metrics  *metrics.Metrics
}

// enqueueRequest is the body of POST /internal/cluster-jobs. A job id is
// assigned server-side when the producer didn't supply one.
type enqueueRequest struct {
	JobID    string            `json:"job_id,omitempty"`
	PetID    string            `json:"pet_id" binding:"required"`
	Reason   string            `json:"reason,omitempty"`
	Force    bool              `json:"force,omitempty"`
	Payload  domain.JobPayload `json:"payload"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// EnqueueJob handles POST /internal/cluster-jobs.
func (h *Handlers) EnqueueJob(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Payload.Normalize()

	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}

	job := domain.Job{
		JobID:     req.JobID,
		PetID:     req.PetID,
		Reason:    req.Reason,
		Force:     req.Force,
		Payload:   req.Payload,
		Metadata:  req.Metadata,
		EmittedAt: time.Now().UTC(),
	}

	c.Set("pet_id", job.PetID)
	c.Set("job_id", job.JobID)

	if _, err := h.Producer.Enqueue(c.Request.Context(), job); err != nil {
		c.JSON(apperrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, statusResponse{Status: "accepted"})
}

// GetCluster handles GET /internal/pets/:pet_id/clusters.
func (h *Handlers) GetCluster(c *gin.Context) {
	petID := c.Param("pet_id")
	c.Set("pet_id", petID)
	descriptor, err := h.Cache.Get(c.Request.Context(), petID)
	if err != nil {
		if kind, ok := apperrors.KindOf(err); ok && kind == apperrors.KindCacheMiss {
			h.Metrics.CacheMissesTotal.Inc()
		}
		c.JSON(apperrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.Metrics.CacheHitsTotal.Inc()
	c.JSON(http.StatusOK, descriptor)
}

// InvalidateCluster handles POST /internal/pets/:pet_id/invalidate.
func (h *Handlers) InvalidateCluster(c *gin.Context) {
	petID := c.Param("pet_id")
	c.Set("pet_id", petID)
	existed, err := h.Cache.Delete(c.Request.Context(), petID)
	if err != nil {
		c.JSON(apperrors.StatusFor(err), gin.H{"error": err.Error()})
		return
	}
	status := "noop"
	if existed {
		status = "removed"
	}
	c.JSON(http.StatusAccepted, statusResponse{Status: status})
}
