package handler

import (
	"context"
	"net/http"

	app "github.com/erp/shopfloor/internal/application/attribution"
	domain "github.com/erp/shopfloor/internal/domain/attribution"
	"github.com/erp/shopfloor/internal/domain/production"
	"github.com/erp/shopfloor/internal/interfaces/http/dto"
	"github.com/erp/shopfloor/internal/interfaces/http/middleware"
	"github.com/erp/shopfloor/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxBackfillBody bounds the backfill request body
const maxBackfillBody = 4 << 10

// AttributionService is the application surface used by AttributionHandler
type AttributionService interface {
	ComputeProductivity(ctx context.Context, q app.ReportQuery) (*app.ProductivityReport, error)
	ComputeItemsForEmployee(ctx context.Context, employeeID uuid.UUID, q app.ReportQuery) ([]app.EmployeeItem, error)
	DetectMissingAttribution(ctx context.Context, targetStationID uuid.UUID, filter production.ItemFilter) ([]domain.MissingAttributionItem, error)
	StationForStage(ctx context.Context, stage production.Stage) (production.Station, error)
	BackfillAttribution(ctx context.Context, cmd app.BackfillCommand) (*production.ScanEvent, error)
	ListPolicies() []app.PolicyInfo
}

// AttributionHandler serves productivity reports and the backfill workflow
type AttributionHandler struct {
	BaseHandler
	svc AttributionService
}

// NewAttributionHandler creates a new AttributionHandler
func NewAttributionHandler(svc AttributionService) *AttributionHandler {
	return &AttributionHandler{svc: svc}
}

// Routes returns the attribution route group
func (h *AttributionHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("/attribution").
		GET("/productivity", h.GetProductivity).
		GET("/employees/:id/items", h.GetEmployeeItems).
		GET("/missing", h.GetMissingAttribution).
		POST("/backfill", middleware.BodyLimit(maxBackfillBody), h.Backfill).
		GET("/policies", h.ListPolicies)
}

// GetProductivity godoc
// @ID           getAttributionProductivity
// @Summary      Productivity report per employee and station
// @Tags         attribution
// @Produce      json
// @Param        date_from   query string false "YYYY-MM-DD or RFC3339"
// @Param        date_to     query string false "YYYY-MM-DD (whole day) or RFC3339 (exclusive)"
// @Param        station_id  query string false "Station ID" format(uuid)
// @Param        employee_id query string false "Employee ID" format(uuid)
// @Param        policy      query string false "Time-credit policy"
// @Param        refresh     query bool   false "Bypass the report cache"
// @Success      200 {object} dto.Response{data=dto.ReportResponse}
// @Failure      400 {object} dto.Response
// @Failure      503 {object} dto.Response
// @Router       /attribution/productivity [get]
func (h *AttributionHandler) GetProductivity(c *gin.Context) {
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	report, err := h.svc.ComputeProductivity(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewReportResponse(report))
}

// GetEmployeeItems godoc
// @ID           getAttributionEmployeeItems
// @Summary      Items credited to one employee
// @Tags         attribution
// @Produce      json
// @Param        id path string true "Employee ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]dto.EmployeeItemResponse}
// @Router       /attribution/employees/{id}/items [get]
func (h *AttributionHandler) GetEmployeeItems(c *gin.Context) {
	employeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid employee ID format")
		return
	}
	var req dto.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	q, err := req.ToQuery()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items, err := h.svc.ComputeItemsForEmployee(c.Request.Context(), employeeID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewEmployeeItemsResponse(items))
}

// GetMissingAttribution godoc
// @ID           getAttributionMissing
// @Summary      Produced items that skipped the target station
// @Tags         attribution
// @Produce      json
// @Param        station_id   query string false "Target station ID" format(uuid)
// @Param        stage        query string false "Target stage name"
// @Param        updated_from query string false "Status updated at or after"
// @Param        updated_to   query string false "Status updated before"
// @Success      200 {object} dto.Response{data=dto.MissingAttributionResponse}
// @Router       /attribution/missing [get]
func (h *AttributionHandler) GetMissingAttribution(c *gin.Context) {
	var req dto.DetectRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	filter, err := req.ToFilter()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	var target *uuid.UUID
	switch {
	case req.StationID != "":
		id := uuid.MustParse(req.StationID)
		target = &id
	case req.Stage != "":
		st, err := h.svc.StationForStage(ctx, production.ParseStage(req.Stage))
		if err != nil {
			h.HandleError(c, err)
			return
		}
		target = &st.ID
	}

	targetID := uuid.Nil
	if target != nil {
		targetID = *target
	}
	missing, err := h.svc.DetectMissingAttribution(ctx, targetID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewMissingAttributionResponse(target, missing))
}

// Backfill godoc
// @ID           postAttributionBackfill
// @Summary      Synthesize the missing scan event of an item
// @Tags         attribution
// @Accept       json
// @Produce      json
// @Param        X-Actor-ID header string true "Operator performing the backfill"
// @Param        request body dto.BackfillRequest true "Backfill request"
// @Success      201 {object} dto.Response{data=dto.ScanEventResponse}
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /attribution/backfill [post]
func (h *AttributionHandler) Backfill(c *gin.Context) {
	var req dto.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	event, err := h.svc.BackfillAttribution(c.Request.Context(), req.ToCommand(getActorID(c)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewScanEventResponse(event))
}

// ListPolicies godoc
// @ID           getAttributionPolicies
// @Summary      Registered time-credit policies
// @Tags         attribution
// @Produce      json
// @Success      200 {object} dto.Response{data=[]attribution.PolicyInfo}
// @Router       /attribution/policies [get]
func (h *AttributionHandler) ListPolicies(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(h.svc.ListPolicies()))
}
