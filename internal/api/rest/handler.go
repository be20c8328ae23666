package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/venuelens/social-indexer/internal/adapter"
	"github.com/venuelens/social-indexer/internal/domain"
	"github.com/venuelens/social-indexer/internal/logger"
	"github.com/venuelens/social-indexer/internal/messaging"
	"github.com/venuelens/social-indexer/internal/store"
	"github.com/venuelens/social-indexer/internal/store/schema"
)

// Handler serves the operator REST API
type Handler struct {
	store     store.Store
	publisher messaging.Publisher
	clock     adapter.Clock
}

// NewHandler creates a REST handler
func NewHandler(st store.Store, publisher messaging.Publisher, clock adapter.Clock) *Handler {
	return &Handler{store: st, publisher: publisher, clock: clock}
}

type createEntityRequest struct {
	Name        string `json:"name" binding:"required"`
	ExternalRef string `json:"external_ref" binding:"required"`
}

// CreateEntity registers a new venue
func (h *Handler) CreateEntity(c *gin.Context) {
	var req createEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entity := &schema.Entity{
		Name:        req.Name,
		ExternalRef: req.ExternalRef,
		Active:      true,
	}
	if err := h.store.CreateEntity(c.Request.Context(), entity); err != nil {
		h.internalError(c, "failed to create entity", err)
		return
	}

	c.JSON(http.StatusCreated, entity)
}

// ListEntities returns venues with their profiles, paginated
func (h *Handler) ListEntities(c *gin.Context) {
	limit, offset := pagination(c)

	entities, total, err := h.store.ListEntities(c.Request.Context(), limit, offset)
	if err != nil {
		h.internalError(c, "failed to list entities", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entities": entities, "total": total})
}

// GetEntity returns one venue with its profiles
func (h *Handler) GetEntity(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity id"})
		return
	}

	entity, err := h.store.GetEntityByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to get entity", err)
		return
	}
	if entity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}

	c.JSON(http.StatusOK, entity)
}

type createProfileRequest struct {
	EntityID int64  `json:"entity_id" binding:"required"`
	Source   string `json:"source" binding:"required"`
	Handle   string `json:"handle" binding:"required"`
}

// CreateProfile registers a social account for a venue
func (h *Handler) CreateProfile(c *gin.Context) {
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sourceName := domain.SourceName(req.Source)
	if !domain.IsValidSource(sourceName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported source"})
		return
	}

	ctx := c.Request.Context()
	source, err := h.store.GetSourceByName(ctx, sourceName)
	if err != nil {
		h.internalError(c, "failed to resolve source", err)
		return
	}
	if source == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source not seeded"})
		return
	}

	entity, err := h.store.GetEntityByID(ctx, req.EntityID)
	if err != nil {
		h.internalError(c, "failed to resolve entity", err)
		return
	}
	if entity == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "entity not found"})
		return
	}

	profile := &schema.Profile{
		EntityID: req.EntityID,
		SourceID: source.ID,
		Handle:   req.Handle,
		Active:   true,
	}
	if err := h.store.CreateProfile(ctx, profile); err != nil {
		h.internalError(c, "failed to create profile", err)
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// GetProfile returns one profile
func (h *Handler) GetProfile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	profile, err := h.store.GetProfileWithSource(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "failed to get profile", err)
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetProfileActive pauses or resumes scheduling for a profile
func (h *Handler) SetProfileActive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.SetProfileActive(c.Request.Context(), id, *req.Active); err != nil {
		if err == domain.ErrProfileNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		h.internalError(c, "failed to update profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "active": *req.Active})
}

// ListProfileRecords returns a profile's harvested content, newest first
func (h *Handler) ListProfileRecords(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}
	limit, offset := pagination(c)

	records, total, err := h.store.ListMetadataRecords(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.internalError(c, "failed to list records", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "total": total})
}

// RefreshProfile enqueues an out-of-band fetch for one profile. The item is
// marked forced so the consumer reopens today's ledger row when the daily
// cycle already reached a terminal status.
func (h *Handler) RefreshProfile(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile id"})
		return
	}

	ctx := c.Request.Context()
	profile, err := h.store.GetProfileWithSource(ctx, id)
	if err != nil {
		h.internalError(c, "failed to get profile", err)
		return
	}
	if profile == nil || profile.Source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	item := &domain.WorkItem{
		ID:         ulid.Make().String(),
		EntityID:   profile.EntityID,
		SourceID:   profile.SourceID,
		SourceName: profile.Source.Name,
		ProfileID:  profile.ID,
		Handle:     profile.Handle,
		CycleDate:  h.clock.Now().UTC().Format(domain.CycleDateLayout),
		Since:      profile.LastChecked,
		Forced:     true,
	}

	if _, err := h.store.CreatePendingFetchLog(ctx, &schema.FetchLog{
		ProfileID:  profile.ID,
		CycleDate:  item.CycleDate,
		WorkItemID: item.ID,
		Status:     domain.FetchStatusPending,
	}); err != nil {
		h.internalError(c, "failed to create ledger row", err)
		return
	}

	if err := h.publisher.PublishWorkItem(ctx, item); err != nil {
		h.internalError(c, "failed to enqueue refresh", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"work_item_id": item.ID, "cycle_date": item.CycleDate})
}

// ListFetchLogs returns ledger rows filtered by cycle date, status, and profile
func (h *Handler) ListFetchLogs(c *gin.Context) {
	limit, offset := pagination(c)
	filter := store.FetchLogFilter{
		CycleDate: c.Query("cycle_date"),
		Status:    domain.FetchStatus(c.Query("status")),
		Limit:     limit,
		Offset:    offset,
	}
	if raw := c.Query("profile_id"); raw != "" {
		profileID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile_id"})
			return
		}
		filter.ProfileID = profileID
	}

	logs, total, err := h.store.ListFetchLogs(c.Request.Context(), filter)
	if err != nil {
		h.internalError(c, "failed to list fetch logs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fetch_logs": logs, "total": total})
}

// GetCycleStats summarizes one scheduling cycle
func (h *Handler) GetCycleStats(c *gin.Context) {
	cycleDate := c.Param("date")
	if cycleDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing cycle date"})
		return
	}

	stats, err := h.store.GetCycleStats(c.Request.Context(), cycleDate)
	if err != nil {
		h.internalError(c, "failed to get cycle stats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Healthz is the unauthenticated liveness probe
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	logger.Error(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func pathID(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 500 {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
