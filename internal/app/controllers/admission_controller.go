package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cloverkingdom/academy/internal/app/models"
	"github.com/cloverkingdom/academy/internal/app/models/dto"
	"github.com/cloverkingdom/academy/internal/app/services"
	"github.com/cloverkingdom/academy/internal/middleware"
	"github.com/cloverkingdom/academy/internal/pkg/apperrors"
)

// AdmissionController handles admission request endpoints
type AdmissionController struct {
	admissionService services.AdmissionService
}

// NewAdmissionController creates a new AdmissionController
func NewAdmissionController(admissionService services.AdmissionService) *AdmissionController {
	return &AdmissionController{
		admissionService: admissionService,
	}
}

// parseID reads a positive int64 id; it answers 400 itself and reports false on failure
func parseID(ctx *gin.Context, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.HandleBindError(ctx, "Invalid request ID", nil)
		return 0, false
	}
	return id, true
}

// CreateRequest handles admission request creation
// @Summary Create an admission request
// @Description Registers a new applicant. The request starts pending and without a grimoire.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body dto.CreateAdmissionRequest true "Applicant information"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionRequest} "Request created"
// @Failure 400 {object} dto.ErrorResponse "Validation failed or identification already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests [post]
func (c *AdmissionController) CreateRequest(ctx *gin.Context) {
	var body dto.CreateAdmissionRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		middleware.HandleBindError(ctx, "Invalid request body", err)
		return
	}

	req, err := c.admissionService.Create(ctx.Request.Context(), body.ToDraft())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(req))
}

// ListRequests returns every admission request
// @Summary List admission requests
// @Description Lists every request in id order, each with its grimoire when assigned
// @Tags requests
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.AdmissionRequest} "Requests retrieved"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests [get]
func (c *AdmissionController) ListRequests(ctx *gin.Context) {
	reqs, err := c.admissionService.List(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(reqs))
}

// GetRequest returns one admission request
// @Summary Get an admission request
// @Tags requests
// @Produce json
// @Param id path int true "Request ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.AdmissionRequest} "Request retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid request ID"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests/{id} [get]
func (c *AdmissionController) GetRequest(ctx *gin.Context) {
	id, ok := parseID(ctx, ctx.Param("id"))
	if !ok {
		return
	}

	req, err := c.admissionService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(req))
}

// UpdateRequest applies a partial update
// @Summary Update an admission request
// @Description Updates the given fields only. Status and grimoire are not touched.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID" Format(int64) minimum(1)
// @Param request body dto.UpdateAdmissionRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionRequest} "Request updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests/{id} [put]
func (c *AdmissionController) UpdateRequest(ctx *gin.Context) {
	id, ok := parseID(ctx, ctx.Param("id"))
	if !ok {
		return
	}

	var body dto.UpdateAdmissionRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		middleware.HandleBindError(ctx, "Invalid request body", err)
		return
	}

	req, err := c.admissionService.UpdateFields(ctx.Request.Context(), id, body.ToPatch())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(req))
}

// UpdateStatus changes the status of a request
// @Summary Change the status of an admission request
// @Description Accepting a request assigns it a grimoire the first time.
// @Tags requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID" Format(int64) minimum(1)
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.AdmissionRequest} "Status updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests/{id}/status [patch]
func (c *AdmissionController) UpdateStatus(ctx *gin.Context) {
	id, ok := parseID(ctx, ctx.Param("id"))
	if !ok {
		return
	}

	var body dto.UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&body); err != nil {
		middleware.HandleBindError(ctx, "Invalid request body", err)
		return
	}
	status, ok := models.ParseStatus(body.Status)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.NewInvalidStatusError("status must be one of: pending accepted rejected"))
		return
	}

	req, err := c.admissionService.SetStatus(ctx.Request.Context(), id, status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(req))
}

// AssignGrimoire returns the grimoire of a request, drawing one if needed
// @Summary Assign a grimoire
// @Description Returns the request's grimoire. A request without one gets a fresh draw, whatever its status.
// @Tags assignments
// @Produce json
// @Param id query int true "Request ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=models.GrimoireAssignment} "Grimoire assigned"
// @Failure 400 {object} dto.ErrorResponse "Invalid request ID"
// @Failure 404 {object} dto.ErrorResponse "Request not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /assignments [get]
func (c *AdmissionController) AssignGrimoire(ctx *gin.Context) {
	id, ok := parseID(ctx, ctx.Query("id"))
	if !ok {
		return
	}

	assignment, err := c.admissionService.AssignGrimoire(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(assignment))
}

// DeleteRequest removes a request
// @Summary Delete an admission request
// @Description Deletes the request and its grimoire. The data is true when a request was removed.
// @Tags requests
// @Produce json
// @Param id path int true "Request ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=bool} "Delete result"
// @Failure 400 {object} dto.ErrorResponse "Invalid request ID"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /requests/{id} [delete]
func (c *AdmissionController) DeleteRequest(ctx *gin.Context) {
	id, ok := parseID(ctx, ctx.Param("id"))
	if !ok {
		return
	}

	deleted, err := c.admissionService.Delete(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(deleted))
}

// Welcome answers the API root
// @Summary API welcome message
// @Tags meta
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router / [get]
func (c *AdmissionController) Welcome(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{
		Message: "Welcome to Clover Kingdom Magic Academy API",
	}))
}
