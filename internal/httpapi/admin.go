package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/events"
	"github.com/iaros/freightquote/internal/logging"
)

// AdminRouter serves UTSF catalog CRUD, health, and metrics — the
// non-hot-path surface explicitly out of the quoting core's scope for
// anything beyond these operations (spec.md §1, §6.4).
type AdminRouter struct {
	Registry     *carrier.Registry
	AuditStore   *carrier.AuditStore
	Cache        cacheInvalidator
	Invalidation *events.InvalidationBus
	Log          *logging.Logger
}

// cacheInvalidator is the minimal surface AdminRouter needs from
// quote.ResultCache, kept as an interface so this package doesn't import
// the quote package just for one method.
type cacheInvalidator interface {
	InvalidateAll(ctx context.Context)
}

// Router builds the gin admin router.
func (a *AdminRouter) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", a.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	carriers := r.Group("/admin/carriers")
	{
		carriers.GET("", a.handleList)
		carriers.GET("/:id", a.handleGet)
		carriers.POST("", a.handleAdd)
		carriers.DELETE("/:id", a.handleRemove)
		carriers.POST("/reload", a.handleReload)
		carriers.POST("/:id/verify", a.handleSetVerified)
		carriers.POST("/:id/approve", a.handleSetApproval)
	}
	return r
}

func (a *AdminRouter) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "carriers": len(a.Registry.All())})
}

func (a *AdminRouter) handleList(c *gin.Context) {
	entries := a.Registry.All()
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"id":             e.Carrier.ID,
			"name":           e.Carrier.Name,
			"approvalStatus": e.Carrier.ApprovalStatus,
			"isVerified":     e.Carrier.IsVerified,
			"servedCount":    e.Index.Count(),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (a *AdminRouter) handleGet(c *gin.Context) {
	entry, ok := a.Registry.ByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "carrier not found"})
		return
	}
	c.JSON(http.StatusOK, entry.Carrier)
}

func (a *AdminRouter) handleAdd(c *gin.Context) {
	var body carrier.Carrier
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := a.Registry.Add(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	a.recordAudit(body.ID, "add", c.GetHeader("X-Actor-Id"), "")
	a.invalidateCache(c, "catalog_reload", body.ID)
	c.JSON(http.StatusOK, gin.H{"id": body.ID})
}

func (a *AdminRouter) handleRemove(c *gin.Context) {
	id := c.Param("id")
	if err := a.Registry.Remove(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	a.recordAudit(id, "remove", c.GetHeader("X-Actor-Id"), "")
	a.invalidateCache(c, "catalog_reload", id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (a *AdminRouter) handleReload(c *gin.Context) {
	if err := a.Registry.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	a.recordAudit("", "reload", c.GetHeader("X-Actor-Id"), "full catalog reload")
	a.invalidateCache(c, "catalog_reload", "")
	c.JSON(http.StatusOK, gin.H{"reloaded": true})
}

func (a *AdminRouter) handleSetVerified(c *gin.Context) {
	id := c.Param("id")
	entry, ok := a.Registry.ByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "carrier not found"})
		return
	}
	var body struct {
		Verified bool `json:"verified"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	entry.Carrier.IsVerified = body.Verified
	if err := a.Registry.Add(entry.Carrier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	a.recordAudit(id, "verification_flip", c.GetHeader("X-Actor-Id"), "")
	a.invalidateCache(c, "verification_flip", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "isVerified": body.Verified})
}

func (a *AdminRouter) handleSetApproval(c *gin.Context) {
	id := c.Param("id")
	entry, ok := a.Registry.ByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "carrier not found"})
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	entry.Carrier.ApprovalStatus = carrier.ApprovalStatus(body.Status)
	if err := a.Registry.Add(entry.Carrier); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	a.recordAudit(id, "approval_flip", c.GetHeader("X-Actor-Id"), body.Status)
	a.invalidateCache(c, "approval_flip", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "approvalStatus": body.Status})
}

func (a *AdminRouter) recordAudit(carrierID, action, actorID, reason string) {
	if a.AuditStore == nil {
		return
	}
	if err := a.AuditStore.Record(carrier.AuditRecord{
		CarrierID:  carrierID,
		Action:     action,
		ActorID:    actorID,
		Reason:     reason,
		OccurredAt: time.Now(),
	}); err != nil {
		a.Log.Warn("failed to write carrier audit record")
	}
}

// invalidateCache flushes the local ResultCache and broadcasts the
// invalidation so every other process in the deployment flushes too
// (spec.md §4.8/§9; SPEC_FULL.md §4).
func (a *AdminRouter) invalidateCache(c *gin.Context, reason, carrierID string) {
	if a.Cache != nil {
		a.Cache.InvalidateAll(c.Request.Context())
	}
	a.Invalidation.PublishInvalidation(reason, carrierID)
}
