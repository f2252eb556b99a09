// internal/handler/equipment_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lis-service/internal/equipment"
	"lis-service/internal/model"
	"lis-service/internal/repository"
	"lis-service/internal/service"
	"lis-service/internal/utils"
)

// EquipmentHandler handles equipment-related HTTP requests
type EquipmentHandler struct {
	equipmentService *service.EquipmentService
	logger           *utils.ServiceLogger
}

// NewEquipmentHandler creates a new equipment handler
func NewEquipmentHandler(equipmentService *service.EquipmentService, logger *zap.Logger) *EquipmentHandler {
	return &EquipmentHandler{
		equipmentService: equipmentService,
		logger:           utils.NewServiceLogger(logger, "equipment-handler"),
	}
}

// RegisterRoutes registers equipment-related routes
func (h *EquipmentHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/categories", h.ListCategories)
	router.GET("/connections", h.ListActiveConnections)

	equipmentGroup := router.Group("/equipment")
	{
		equipmentGroup.POST("", h.RegisterEquipment)
		equipmentGroup.GET("", h.ListEquipment)

		equipmentRoutes := equipmentGroup.Group("/:id")
		{
			equipmentRoutes.GET("", h.GetEquipment)
			equipmentRoutes.PUT("", h.UpdateEquipment)
			equipmentRoutes.DELETE("", h.DeleteEquipment)
			equipmentRoutes.POST("/connect", h.ConnectEquipment)
			equipmentRoutes.POST("/disconnect", h.DisconnectEquipment)
			equipmentRoutes.POST("/command", h.SendCommand)
			equipmentRoutes.POST("/request-results", h.RequestResults)
			equipmentRoutes.GET("/status", h.GetConnectionStatus)
		}
	}
}

// RegisterEquipment registers a new analyzer
// @Summary Register equipment
// @Description Register a new analyzer with its protocol and connection configuration
// @Tags Equipment
// @Accept json
// @Produce json
// @Param request body service.RegisterEquipmentRequest true "Equipment registration request"
// @Success 201 {object} utils.APIResponse{data=model.Equipment} "Equipment registered successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /equipment [post]
func (h *EquipmentHandler) RegisterEquipment(c *gin.Context) {
	var req service.RegisterEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	eq, err := h.equipmentService.RegisterEquipment(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to register equipment", zap.Error(err))
		utils.ErrorResponse(c, statusForError(err, http.StatusBadRequest), "Failed to register equipment", err)
		return
	}

	h.logger.Info("Equipment registered successfully", zap.Int64("equipment_id", eq.ID))
	utils.SuccessResponse(c, http.StatusCreated, "Equipment registered successfully", eq)
}

// ListEquipment lists equipment with filtering and pagination
// @Summary List equipment
// @Description Get list of registered analyzers with filtering and pagination support
// @Tags Equipment
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param category_id query int false "Filter by category ID"
// @Param protocol query string false "Filter by protocol" Enums(HL7, ASTM, HL7-FHIR)
// @Param connection_type query string false "Filter by connection type" Enums(NETWORK, ETHERNET, WIFI, RS232, RS485, DB25)
// @Param status query string false "Filter by link status" Enums(CONNECTED, DISCONNECTED, LISTENING, ERROR)
// @Param search query string false "Search in name, model and serial number"
// @Param sort_by query string false "Sort by field" default(created_at)
// @Param sort_order query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} utils.APIResponse "Equipment retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /equipment [get]
func (h *EquipmentHandler) ListEquipment(c *gin.Context) {
	filter := &repository.EquipmentFilter{
		Page:      1,
		PerPage:   20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if perPage := c.Query("per_page"); perPage != "" {
		if pp, err := strconv.Atoi(perPage); err == nil && pp > 0 && pp <= 100 {
			filter.PerPage = pp
		}
	}

	if categoryID := c.Query("category_id"); categoryID != "" {
		if id, err := strconv.ParseInt(categoryID, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}
	if protocol := c.Query("protocol"); protocol != "" {
		p := model.ProtocolType(protocol)
		filter.Protocol = &p
	}
	if connectionType := c.Query("connection_type"); connectionType != "" {
		ct := model.ConnectionType(connectionType)
		filter.ConnectionType = &ct
	}
	if status := c.Query("status"); status != "" {
		s := model.ConnectionStatus(status)
		filter.Status = &s
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}

	if sortBy := c.Query("sort_by"); sortBy != "" {
		filter.SortBy = sortBy
	}
	if sortOrder := c.Query("sort_order"); sortOrder != "" {
		filter.SortOrder = sortOrder
	}

	items, total, err := h.equipmentService.ListEquipment(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list equipment", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list equipment", err)
		return
	}

	utils.PaginatedResponse(c, "Equipment retrieved successfully", items, filter.Page, filter.PerPage, total)
}

// GetEquipment retrieves equipment by ID
// @Summary Get equipment details
// @Description Get one analyzer's registration and current link status
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Success 200 {object} utils.APIResponse{data=model.Equipment} "Equipment retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid equipment ID"
// @Failure 404 {object} utils.APIResponse "Equipment not found"
// @Router /equipment/{id} [get]
func (h *EquipmentHandler) GetEquipment(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	eq, err := h.equipmentService.GetEquipment(c.Request.Context(), id)
	if err != nil {
		utils.ErrorResponse(c, http.StatusNotFound, "Equipment not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Equipment retrieved successfully", eq)
}

// UpdateEquipment updates an equipment record
// @Summary Update equipment
// @Description Update an analyzer's configuration. Connected equipment must be disconnected first.
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Param request body model.Equipment true "Equipment record"
// @Success 200 {object} utils.APIResponse{data=model.Equipment} "Equipment updated successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Equipment is connected"
// @Router /equipment/{id} [put]
func (h *EquipmentHandler) UpdateEquipment(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	var eq model.Equipment
	if err := c.ShouldBindJSON(&eq); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	eq.ID = id

	if err := h.equipmentService.UpdateEquipment(c.Request.Context(), &eq); err != nil {
		h.logger.Error("Failed to update equipment", zap.Error(err), zap.Int64("equipment_id", id))
		utils.ErrorResponse(c, statusForError(err, http.StatusInternalServerError), "Failed to update equipment", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Equipment updated successfully", eq)
}

// DeleteEquipment removes an equipment record
// @Summary Delete equipment
// @Description Delete an analyzer registration. Connected equipment must be disconnected first.
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Success 200 {object} utils.APIResponse "Equipment deleted successfully"
// @Failure 409 {object} utils.APIResponse "Equipment is connected"
// @Router /equipment/{id} [delete]
func (h *EquipmentHandler) DeleteEquipment(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	if err := h.equipmentService.DeleteEquipment(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete equipment", zap.Error(err), zap.Int64("equipment_id", id))
		utils.ErrorResponse(c, statusForError(err, http.StatusInternalServerError), "Failed to delete equipment", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Equipment deleted successfully", nil)
}

// ConnectEquipment opens the equipment link and starts its ingestion loop
// @Summary Connect equipment
// @Description Open the transport link and start listening for results
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Success 200 {object} utils.APIResponse{data=service.ConnectionStatus} "Equipment connected successfully"
// @Failure 409 {object} utils.APIResponse "Equipment already connected"
// @Failure 500 {object} utils.APIResponse "Connection failed"
// @Router /equipment/{id}/connect [post]
func (h *EquipmentHandler) ConnectEquipment(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	if err := h.equipmentService.Connect(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to connect equipment", zap.Error(err), zap.Int64("equipment_id", id))
		utils.ErrorResponse(c, statusForError(err, http.StatusInternalServerError), "Failed to connect equipment", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Equipment connected successfully", h.equipmentService.GetConnectionStatus(id))
}

// DisconnectEquipment stops the listener and closes the equipment link
// @Summary Disconnect equipment
// @Description Stop the ingestion loop and close the transport link
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Success 200 {object} utils.APIResponse "Equipment disconnected successfully"
// @Failure 409 {object} utils.APIResponse "Equipment not connected"
// @Router /equipment/{id}/disconnect [post]
func (h *EquipmentHandler) DisconnectEquipment(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	if err := h.equipmentService.Disconnect(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to disconnect equipment", zap.Error(err), zap.Int64("equipment_id", id))
		utils.ErrorResponse(c, statusForError(err, http.StatusInternalServerError), "Failed to disconnect equipment", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Equipment disconnected successfully", nil)
}

// CommandRequest carries a raw command for a connected equipment
type CommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// SendCommand runs a synchronous raw round trip against the equipment
// @Summary Send raw command
// @Description Send a raw command to a connected analyzer and return its response
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Param request body CommandRequest true "Command request"
// @Success 200 {object} utils.APIResponse "Command executed successfully"
// @Failure 409 {object} utils.APIResponse "Equipment not connected"
// @Router /equipment/{id}/command [post]
func (h *EquipmentHandler) SendCommand(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	response, err := h.equipmentService.SendCommand(c.Request.Context(), id, req.Command)
	if err != nil {
		h.logger.Error("Command failed", zap.Error(err), zap.Int64("equipment_id", id))
		utils.ErrorResponse(c, statusForError(err, http.StatusInternalServerError), "Command failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command executed successfully", gin.H{
		"response": response,
	})
}

// ResultRequest asks a bidirectional analyzer for pending results
type ResultRequest struct {
	PatientID string `json:"patient_id"`
}

// RequestResults asks a bidirectional analyzer to transmit pending results
// @Summary Request results
// @Description Ask a bidirectional analyzer to transmit pending results, optionally for one patient
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Param request body ResultRequest false "Result request"
// @Success 202 {object} utils.APIResponse "Result request sent"
// @Failure 400 {object} utils.APIResponse "Equipment is unidirectional"
// @Failure 409 {object} utils.APIResponse "Equipment not connected"
// @Router /equipment/{id}/request-results [post]
func (h *EquipmentHandler) RequestResults(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	var req ResultRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	if err := h.equipmentService.RequestResults(c.Request.Context(), id, req.PatientID); err != nil {
		h.logger.Error("Result request failed", zap.Error(err), zap.Int64("equipment_id", id))
		utils.ErrorResponse(c, statusForError(err, http.StatusInternalServerError), "Result request failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Result request sent", nil)
}

// GetConnectionStatus reports the live link and listener state
// @Summary Get connection status
// @Description Get the live link and listener state for one analyzer
// @Tags Equipment
// @Accept json
// @Produce json
// @Param id path int true "Equipment ID"
// @Success 200 {object} utils.APIResponse{data=service.ConnectionStatus} "Status retrieved successfully"
// @Router /equipment/{id}/status [get]
func (h *EquipmentHandler) GetConnectionStatus(c *gin.Context) {
	id, ok := h.equipmentID(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Status retrieved successfully", h.equipmentService.GetConnectionStatus(id))
}

// ListActiveConnections lists the live state of all connected equipment
// @Summary List active connections
// @Description Get the live link and listener state of every connected analyzer
// @Tags Equipment
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]service.ConnectionStatus} "Connections retrieved successfully"
// @Router /connections [get]
func (h *EquipmentHandler) ListActiveConnections(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Connections retrieved successfully", h.equipmentService.ActiveConnections())
}

// ListCategories lists all equipment categories
// @Summary List categories
// @Description Get all equipment categories and their supported protocols
// @Tags Equipment
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]model.EquipmentCategory} "Categories retrieved successfully"
// @Router /categories [get]
func (h *EquipmentHandler) ListCategories(c *gin.Context) {
	categories, err := h.equipmentService.ListCategories(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list categories", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Categories retrieved successfully", categories)
}

// equipmentID parses the :id path parameter, writing the error response on
// failure
func (h *EquipmentHandler) equipmentID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "A numeric equipment ID is required", err)
		return 0, false
	}
	return id, true
}

// statusForError maps equipment lifecycle errors onto HTTP status codes
func statusForError(err error, fallback int) int {
	switch {
	case errors.Is(err, equipment.ErrAlreadyConnected), errors.Is(err, equipment.ErrAlreadyListening):
		return http.StatusConflict
	case errors.Is(err, equipment.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, equipment.ErrUnsupportedOperation):
		return http.StatusBadRequest
	default:
		return fallback
	}
}
