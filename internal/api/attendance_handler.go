package api

import (
	"net/http"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AttendanceHandler struct {
	attendanceService service.AttendanceService
	exportService     service.ExportService
	loc               *time.Location
	log               *zap.Logger
}

// NewAttendanceHandler creates a handler. Date-only query and body values
// are read as calendar days in loc.
func NewAttendanceHandler(attendanceService service.AttendanceService, exportService service.ExportService, loc *time.Location, log *zap.Logger) *AttendanceHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceHandler{
		attendanceService: attendanceService,
		exportService:     exportService,
		loc:               loc,
		log:               log,
	}
}

type CheckInRequest struct {
	UserID   string `json:"userId"` // Staff only: check in another member
	Date     string `json:"date"`   // YYYY-MM-DD or RFC3339; defaults to today
	IsManual bool   `json:"isManual"`
	Notes    string `json:"notes" binding:"max=500"`
}

// CheckIn godoc
// @Summary Record a gym visit
// @Tags Attendance
// @Security BearerAuth
// @Success 201 {object} domain.AttendanceRecord
// @Failure 409 {object} ErrorResponse "Already checked in for this day"
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	// An empty body is a plain self check-in.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}

	callerID, role, ok := currentUser(c)
	if !ok {
		return
	}

	targetID := callerID
	opts := service.CheckInOptions{Notes: req.Notes}
	if (req.UserID != "" && req.UserID != callerID) || req.IsManual {
		if !role.IsStaff() {
			respondServiceError(c, h.log, service.ErrNotStaff)
			return
		}
		if req.UserID != "" {
			targetID = req.UserID
		}
		opts.IsManual = true
		opts.RecordedBy = callerID
	}

	if req.Date != "" {
		d, err := parseDay(req.Date, h.loc)
		if err != nil {
			respondServiceError(c, h.log, service.ErrInvalidDate)
			return
		}
		opts.Date = &d
	}

	record, err := h.attendanceService.CheckIn(c.Request.Context(), targetID, opts)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// GetStats godoc
// @Summary Monthly check-ins and streaks
// @Tags Attendance
// @Security BearerAuth
// @Param month query string false "YYYY-MM, defaults to the current month"
// @Param userId query string false "Staff only"
// @Success 200 {object} service.AttendanceStats
// @Router /attendance/stats [get]
func (h *AttendanceHandler) GetStats(c *gin.Context) {
	userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	stats, err := h.attendanceService.GetAttendanceStats(c.Request.Context(), userID, c.Query("month"))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// List godoc
// @Summary List check-ins in a date range
// @Tags Attendance
// @Security BearerAuth
// @Param from query string false "YYYY-MM-DD, inclusive"
// @Param to query string false "YYYY-MM-DD, exclusive"
// @Success 200 {array} domain.AttendanceRecord
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	userID, ok := h.targetUser(c)
	if !ok {
		return
	}

	var from, to *time.Time
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := c.Query(q.name)
		if raw == "" {
			continue
		}
		d, err := parseDay(raw, h.loc)
		if err != nil {
			respondServiceError(c, h.log, service.ErrInvalidRange)
			return
		}
		*q.dst = &d
	}

	records, err := h.attendanceService.ListAttendance(c.Request.Context(), userID, from, to)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Delete godoc
// @Summary Remove a check-in (trainer or admin)
// @Tags Attendance
// @Security BearerAuth
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid attendance ID format")
		return
	}

	if err := h.attendanceService.DeleteAttendance(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Export godoc
// @Summary Export a month of check-ins as CSV (admin)
// @Tags Attendance
// @Security BearerAuth
// @Param month query string true "YYYY-MM"
// @Success 201 {object} service.ExportResult
// @Router /attendance/export [post]
func (h *AttendanceHandler) Export(c *gin.Context) {
	callerID, _, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.exportService.ExportMonthlyAttendance(c.Request.Context(), c.Query("month"), callerID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// currentUser returns the authenticated user, aborting when the context lacks one.
func currentUser(c *gin.Context) (string, domain.Role, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return "", "", false
	}
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user role from token.")
		return "", "", false
	}
	return userID, role, true
}

// targetUser resolves ?userId=, which only staff may point at someone else.
func (h *AttendanceHandler) targetUser(c *gin.Context) (string, bool) {
	callerID, role, ok := currentUser(c)
	if !ok {
		return "", false
	}
	userID := c.Query("userId")
	if userID == "" || userID == callerID {
		return callerID, true
	}
	if !role.IsStaff() {
		respondServiceError(c, h.log, service.ErrNotStaff)
		return "", false
	}
	return userID, true
}

// parseDay accepts a bare date in loc or a full RFC3339 timestamp.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
