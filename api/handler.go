package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vehicle-price-tracker/services"
	"vehicle-price-tracker/storage"
	"vehicle-price-tracker/utils"
)

// Handler exposes the price check over HTTP.
type Handler struct {
	checker *services.Checker
	store   storage.Store
	logger  *utils.Logger
}

// NewHandler creates a Handler. The store serves the read-only endpoints.
func NewHandler(checker *services.Checker, store storage.Store, logger *utils.Logger) *Handler {
	return &Handler{checker: checker, store: store, logger: logger}
}

type checkPriceRequest struct {
	URL string `json:"url"`
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	api := r.Group("/api")
	{
		api.POST("/check-price", h.CheckPrice)
		api.GET("/vehicles", h.ListVehicles)
		api.GET("/vehicles/history", h.GetHistory)
	}
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	return r
}

func (h *Handler) CheckPrice(c *gin.Context) {
	var input checkPriceRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	res, err := h.checker.Check(c.Request.Context(), input.URL)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("X-Check-ID", res.CheckID)
	c.JSON(http.StatusOK, newCheckPricePayload(res))
}

func (h *Handler) ListVehicles(c *gin.Context) {
	list, err := h.store.ListVehicles(c.Request.Context())
	if err != nil {
		h.logger.Error("[api] ListVehicles: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch vehicles"})
		return
	}
	out := make([]vehiclePayload, 0, len(list))
	for _, v := range list {
		out = append(out, newVehiclePayload(v))
	}
	c.JSON(http.StatusOK, out)
}

// GetHistory looks a vehicle up by ?url= and returns it with its history.
func (h *Handler) GetHistory(c *gin.Context) {
	pageURL, err := services.ValidateURL(c.Query("url"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	v, err := h.store.GetVehicle(ctx, pageURL)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.logger.Error("[api] GetHistory: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch vehicle"})
		return
	}

	hist, err := h.store.History(ctx, v.ID)
	if err != nil {
		h.logger.Error("[api] GetHistory vehicle %d: %v", v.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, historyPayload{Vehicle: newVehiclePayload(v), History: newObservationPayloads(hist)})
}

// writeError maps the check failure kinds onto HTTP statuses. Validation
// problems are the caller's fault; everything else is ours.
func (h *Handler) writeError(c *gin.Context, err error) {
	var ce *services.CheckError
	msg := "An error occurred while checking the price"
	if errors.As(err, &ce) && errors.Is(err, services.ErrValidation) && ce.Err != nil {
		msg = ce.Err.Error()
	}

	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	case errors.Is(err, services.ErrFetchFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "kind": "fetch"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg, "kind": "store"})
	}
}
