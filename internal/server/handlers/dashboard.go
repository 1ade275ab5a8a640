package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-dashboard/internal/dashboard"
	"github.com/vzahanych/weather-dashboard/internal/geocoding"
	"github.com/vzahanych/weather-dashboard/internal/server/utils"
	"go.uber.org/zap"
)

// DashboardTemplate is the name the page template is registered under.
const DashboardTemplate = "dashboard.html"

type DashboardHandler struct {
	ctrl   *dashboard.Controller
	logger *zap.Logger
}

func NewDashboardHandler(ctrl *dashboard.Controller, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		ctrl:   ctrl,
		logger: logger,
	}
}

func (h *DashboardHandler) Page(c *gin.Context) {
	c.HTML(http.StatusOK, DashboardTemplate, h.ctrl.Snapshot())
}

func (h *DashboardHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.ctrl.Snapshot())
}

// SetLocation handles a map click. Fetches continue in the background, so the
// returned snapshot is usually still pending.
func (h *DashboardHandler) SetLocation(c *gin.Context) {
	reqLogger := utils.RequestLogger(c, h.logger)

	var req LocationRequest
	if !h.bind(c, reqLogger, &req) {
		return
	}

	loc, err := h.ctrl.Click(*req.Lat, *req.Lng)
	if err != nil {
		reqLogger.Warn("Rejected map click", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid location",
			Code:    "INVALID_LOCATION",
			Details: err.Error(),
		})
		return
	}

	reqLogger.Info("Location selected on map", zap.String("location", loc.String()))
	c.JSON(http.StatusAccepted, h.ctrl.Snapshot())
}

func (h *DashboardHandler) Search(c *gin.Context) {
	ctx := utils.GetContextFromGinContext(c)
	reqLogger := utils.RequestLogger(c, h.logger)

	var req SearchRequest
	if !h.bind(c, reqLogger, &req) {
		return
	}

	loc, err := h.ctrl.Search(ctx, req.Query)
	if err != nil {
		status, resp := searchError(err)
		reqLogger.Info("Search did not change the location",
			zap.String("query", req.Query),
			zap.String("code", resp.Code),
			zap.Error(err))
		c.JSON(status, resp)
		return
	}

	reqLogger.Info("Location selected by search",
		zap.String("query", req.Query),
		zap.String("location", loc.String()))
	c.JSON(http.StatusAccepted, h.ctrl.Snapshot())
}

func searchError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, dashboard.ErrEmptyQuery):
		return http.StatusBadRequest, ErrorResponse{Error: "Search query is empty", Code: "EMPTY_QUERY"}
	case errors.Is(err, geocoding.ErrNoResults):
		return http.StatusNotFound, ErrorResponse{Error: "No place matches the query", Code: "NO_RESULTS", Details: err.Error()}
	case errors.Is(err, dashboard.ErrSuperseded):
		return http.StatusConflict, ErrorResponse{Error: "Location changed while searching", Code: "SUPERSEDED"}
	default:
		return http.StatusBadGateway, ErrorResponse{Error: "Failed to search for the place", Code: "GEOCODING_ERROR", Details: err.Error()}
	}
}

func (h *DashboardHandler) Pan(c *gin.Context) {
	var req PanRequest
	if !h.bind(c, utils.RequestLogger(c, h.logger), &req) {
		return
	}

	h.ctrl.Map().Pan(*req.DLat, *req.DLng)
	c.JSON(http.StatusOK, h.ctrl.Map().View())
}

func (h *DashboardHandler) Zoom(c *gin.Context) {
	var req ZoomRequest
	if !h.bind(c, utils.RequestLogger(c, h.logger), &req) {
		return
	}

	h.ctrl.Map().ZoomTo(*req.Zoom)
	c.JSON(http.StatusOK, h.ctrl.Map().View())
}

// bind decodes and validates the JSON body, writing a 400 when it cannot.
func (h *DashboardHandler) bind(c *gin.Context, reqLogger *zap.Logger, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		reqLogger.Warn("Invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Code:    "INVALID_BODY",
			Details: err.Error(),
		})
		return false
	}

	if fields := utils.ValidateStruct(req); len(fields) > 0 {
		reqLogger.Warn("Invalid request parameters", zap.Any("fields", fields))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Invalid request parameters",
			Code:   "INVALID_PARAMS",
			Fields: fields,
		})
		return false
	}
	return true
}
