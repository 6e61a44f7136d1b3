package handler

import (
	"net/http"

	"leaddesk_backend/internal/enrollments/domain"
	"leaddesk_backend/internal/enrollments/service"
	"leaddesk_backend/internal/enrollments/transport"
	"leaddesk_backend/platform/httpkit"
	"leaddesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const msgInvalidRequest = "invalid request"

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts read access for every authenticated user and the
// sales side of both approval phases.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)

	sales := rg.Group("", httpkit.RequireRole(httpkit.RoleSales))
	h.registerApprovalRoutes(sales, domain.RoleSales)
}

// RegisterAdminRoutes mounts the admin side of both phases and deletion.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	h.registerApprovalRoutes(rg, domain.RoleAdmin)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) registerApprovalRoutes(rg *gin.RouterGroup, role domain.Role) {
	rg.PATCH("/:id/pricing", h.EditPricing(role))
	rg.POST("/:id/pricing/decision", h.DecidePricing(role))
	rg.PATCH("/:id/final", h.EditFinalTerms(role))
	rg.POST("/:id/final/decision", h.DecideFinal(role))
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListEnrollmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Validate(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) EditPricing(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.EditPricingRequest
		id, ok := h.bind(c, &req)
		if !ok {
			return
		}

		result, err := h.svc.EditPricing(c.Request.Context(), id, role, req)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}

func (h *Handler) DecidePricing(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.PricingDecisionRequest
		id, ok := h.bind(c, &req)
		if !ok {
			return
		}

		result, err := h.svc.DecidePricing(c.Request.Context(), id, role, req)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}

func (h *Handler) EditFinalTerms(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.EditFinalTermsRequest
		id, ok := h.bind(c, &req)
		if !ok {
			return
		}

		result, err := h.svc.EditFinalTerms(c.Request.Context(), id, role, req)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}

func (h *Handler) DecideFinal(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transport.FinalDecisionRequest
		id, ok := h.bind(c, &req)
		if !ok {
			return
		}

		result, err := h.svc.DecideFinal(c.Request.Context(), id, role, req)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, result)
	}
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}

	c.Status(http.StatusNoContent)
}

// bind parses the path id and the JSON body into req and validates it.
func (h *Handler) bind(c *gin.Context, req any) (uuid.UUID, bool) {
	id, ok := parseID(c)
	if !ok {
		return uuid.Nil, false
	}
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	if httpkit.HandleError(c, h.val.Validate(req)) {
		return uuid.Nil, false
	}
	return id, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
