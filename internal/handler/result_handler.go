// internal/handler/result_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lis-service/internal/repository"
	"lis-service/internal/service"
	"lis-service/internal/utils"
)

// ResultHandler handles stored test result HTTP requests
type ResultHandler struct {
	resultService *service.ResultService
	logger        *utils.ServiceLogger
}

// NewResultHandler creates a new result handler
func NewResultHandler(resultService *service.ResultService, logger *zap.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		logger:        utils.NewServiceLogger(logger, "result-handler"),
	}
}

// RegisterRoutes registers result-related routes
func (h *ResultHandler) RegisterRoutes(router *gin.RouterGroup) {
	results := router.Group("/results")
	{
		results.GET("", h.ListResults)
		results.GET("/:id", h.GetResult)
	}

	router.GET("/equipment/:id/results", h.ListEquipmentResults)
}

// ListResults lists stored results with filtering and pagination
// @Summary List test results
// @Description Get stored test results with filtering and pagination support
// @Tags Results
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param equipment_id query int false "Filter by equipment ID"
// @Param patient_id query string false "Filter by patient ID"
// @Param test_code query string false "Filter by test code"
// @Param status query string false "Filter by result status" Enums(F, P, C)
// @Param flags query string false "Filter by abnormal flags" Enums(L, H, LL, HH, A)
// @Param start_date query string false "Results at or after this time (RFC3339)"
// @Param end_date query string false "Results at or before this time (RFC3339)"
// @Success 200 {object} utils.APIResponse "Results retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /results [get]
func (h *ResultHandler) ListResults(c *gin.Context) {
	filter, ok := h.resultFilterFromQuery(c)
	if !ok {
		return
	}

	h.listFiltered(c, filter)
}

// ListEquipmentResults lists one analyzer's stored results
// @Summary List equipment results
// @Description Get stored test results for one analyzer
// @Tags Results
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Param patient_id query string false "Filter by patient ID"
// @Param test_code query string false "Filter by test code"
// @Param status query string false "Filter by result status" Enums(F, P, C)
// @Param flags query string false "Filter by abnormal flags" Enums(L, H, LL, HH, A)
// @Param start_date query string false "Results at or after this time (RFC3339)"
// @Param end_date query string false "Results at or before this time (RFC3339)"
// @Success 200 {object} utils.APIResponse "Results retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid filter"
// @Router /equipment/{id}/results [get]
func (h *ResultHandler) ListEquipmentResults(c *gin.Context) {
	equipmentID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "A numeric equipment ID is required", err)
		return
	}

	filter, ok := h.resultFilterFromQuery(c)
	if !ok {
		return
	}
	filter.EquipmentID = &equipmentID

	h.listFiltered(c, filter)
}

// resultFilterFromQuery parses the shared result filter query parameters,
// writing the error response on failure
func (h *ResultHandler) resultFilterFromQuery(c *gin.Context) (*repository.TestResultFilter, bool) {
	filter := &repository.TestResultFilter{
		Page:    1,
		PerPage: 50,
	}

	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if perPage := c.Query("per_page"); perPage != "" {
		if pp, err := strconv.Atoi(perPage); err == nil && pp > 0 && pp <= 200 {
			filter.PerPage = pp
		}
	}

	if equipmentID := c.Query("equipment_id"); equipmentID != "" {
		if id, err := strconv.ParseInt(equipmentID, 10, 64); err == nil {
			filter.EquipmentID = &id
		}
	}
	if patientID := c.Query("patient_id"); patientID != "" {
		filter.PatientID = &patientID
	}
	if testCode := c.Query("test_code"); testCode != "" {
		filter.TestCode = &testCode
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}
	if flags := c.Query("flags"); flags != "" {
		filter.Flags = &flags
	}

	if startDate := c.Query("start_date"); startDate != "" {
		t, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "start_date must be RFC3339", err)
			return nil, false
		}
		filter.StartDate = &t
	}
	if endDate := c.Query("end_date"); endDate != "" {
		t, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "end_date must be RFC3339", err)
			return nil, false
		}
		filter.EndDate = &t
	}

	return filter, true
}

func (h *ResultHandler) listFiltered(c *gin.Context, filter *repository.TestResultFilter) {
	results, total, err := h.resultService.ListResults(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list results", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list results", err)
		return
	}

	utils.PaginatedResponse(c, "Results retrieved successfully", results, filter.Page, filter.PerPage, total)
}

// GetResult retrieves one stored result by ID
// @Summary Get test result
// @Description Get one stored test result row
// @Tags Results
// @Accept json
// @Produce json
// @Param id path int true "Result ID"
// @Success 200 {object} utils.APIResponse{data=model.TestResult} "Result retrieved successfully"
// @Failure 404 {object} utils.APIResponse "Result not found"
// @Router /results/{id} [get]
func (h *ResultHandler) GetResult(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "A numeric result ID is required", err)
		return
	}

	result, err := h.resultService.GetResult(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Result not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Result retrieved successfully", result)
}
