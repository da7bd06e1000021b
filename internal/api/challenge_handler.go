package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StatsSweeper runs one stats recompute pass on demand.
type StatsSweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

type ChallengeHandler struct {
	challengeService     service.ChallengeService
	participationService service.ParticipationService
	leaderboardService   service.LeaderboardService
	sweeper              StatsSweeper
	log                  *zap.Logger
}

func NewChallengeHandler(
	challengeService service.ChallengeService,
	participationService service.ParticipationService,
	leaderboardService service.LeaderboardService,
	sweeper StatsSweeper,
	log *zap.Logger,
) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService:     challengeService,
		participationService: participationService,
		leaderboardService:   leaderboardService,
		sweeper:              sweeper,
		log:                  log,
	}
}

// --- DTOs ---

type ChallengeRequest struct {
	Title       string                 `json:"title" binding:"required,max=200"`
	Description string                 `json:"description" binding:"max=5000"`
	Type        domain.ChallengeType   `json:"type" binding:"omitempty,oneof=streak daily task"`
	StartDate   *time.Time             `json:"startDate"`
	EndDate     *time.Time             `json:"endDate"`
	Tasks       []domain.ChallengeTask `json:"tasks" binding:"max=366"`
	Tags        []string               `json:"tags" binding:"max=20"`
	IsActive    *bool                  `json:"isActive"` // Defaults to true on create
}

func (r *ChallengeRequest) toDomain(defaultActive bool) *domain.Challenge {
	active := defaultActive
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &domain.Challenge{
		Title:       r.Title,
		Description: r.Description,
		Type:        r.Type,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Tasks:       r.Tasks,
		Tags:        r.Tags,
		IsActive:    active,
	}
}

type JoinRequest struct {
	StartAt  *time.Time             `json:"startAt"`
	Metadata map[string]interface{} `json:"metadata"`
}

type ProgressRequest struct {
	Day       *int  `json:"day" binding:"required"`
	Completed *bool `json:"completed"` // Defaults to true
}

// --- Catalogue ---

// List godoc
// @Summary List challenges
// @Tags Challenges
// @Security BearerAuth
// @Param active query bool false "Only active challenges (default true)"
// @Success 200 {array} domain.Challenge
// @Router /challenges [get]
func (h *ChallengeHandler) List(c *gin.Context) {
	activeOnly := true
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "active must be true or false")
			return
		}
		activeOnly = v
	}

	challenges, err := h.challengeService.ListChallenges(c.Request.Context(), activeOnly)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, challenges)
}

// Create godoc
// @Summary Create a challenge (trainer or admin)
// @Tags Challenges
// @Security BearerAuth
// @Success 201 {object} domain.Challenge
// @Router /challenges [post]
func (h *ChallengeHandler) Create(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	challenge, err := h.challengeService.CreateChallenge(c.Request.Context(), req.toDomain(true), userID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, challenge)
}

// Get godoc
// @Summary Get a challenge
// @Tags Challenges
// @Security BearerAuth
// @Success 200 {object} domain.Challenge
// @Router /challenges/{id} [get]
func (h *ChallengeHandler) Get(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	challenge, err := h.challengeService.GetChallenge(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// Update godoc
// @Summary Replace a challenge's editable fields (trainer or admin)
// @Tags Challenges
// @Security BearerAuth
// @Success 200 {object} domain.Challenge
// @Router /challenges/{id} [put]
func (h *ChallengeHandler) Update(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	// Omitted isActive keeps the current value.
	keepActive := true
	if req.IsActive == nil {
		existing, err := h.challengeService.GetChallenge(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, h.log, err)
			return
		}
		keepActive = existing.IsActive
	}

	challenge, err := h.challengeService.UpdateChallenge(c.Request.Context(), id, req.toDomain(keepActive))
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

// Delete godoc
// @Summary Delete a challenge and all participations (trainer or admin)
// @Tags Challenges
// @Security BearerAuth
// @Success 204
// @Router /challenges/{id} [delete]
func (h *ChallengeHandler) Delete(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	if err := h.challengeService.DeleteChallenge(c.Request.Context(), id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Participation ---

// Join godoc
// @Summary Join a challenge
// @Tags Challenges
// @Security BearerAuth
// @Success 201 {object} domain.Participation
// @Failure 409 {object} ErrorResponse "Already joined"
// @Failure 422 {object} ErrorResponse "Challenge inactive or ended"
// @Router /challenges/{id}/join [post]
func (h *ChallengeHandler) Join(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	var req JoinRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
			return
		}
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	p, err := h.participationService.JoinChallenge(c.Request.Context(), id, userID, c.GetString(ContextUserNameKey), service.JoinOptions{
		StartAt:  req.StartAt,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Leave godoc
// @Summary Leave a challenge
// @Tags Challenges
// @Security BearerAuth
// @Success 204
// @Router /challenges/{id}/leave [delete]
func (h *ChallengeHandler) Leave(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.participationService.LeaveChallenge(c.Request.Context(), id, userID); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkProgress godoc
// @Summary Mark one challenge day complete or incomplete
// @Tags Challenges
// @Security BearerAuth
// @Param progress body ProgressRequest true "Day and state"
// @Success 200 {object} domain.Participation
// @Failure 400 {object} ErrorResponse "Day out of range"
// @Router /challenges/{id}/progress [post]
func (h *ChallengeHandler) MarkProgress(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	p, err := h.participationService.MarkProgress(c.Request.Context(), id, userID, *req.Day, completed)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetProgress godoc
// @Summary The caller's participation in a challenge
// @Tags Challenges
// @Security BearerAuth
// @Success 200 {object} domain.Participation
// @Router /challenges/{id}/progress [get]
func (h *ChallengeHandler) GetProgress(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.participationService.GetParticipation(c.Request.Context(), id, userID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Leaderboard godoc
// @Summary Live leaderboard page
// @Tags Challenges
// @Security BearerAuth
// @Param limit query int false "Rows, default 10, max 100"
// @Success 200 {object} service.Leaderboard
// @Router /challenges/{id}/leaderboard [get]
func (h *ChallengeHandler) Leaderboard(c *gin.Context) {
	id, ok := challengeIDParam(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			abortWithError(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	board, err := h.leaderboardService.GetLeaderboard(c.Request.Context(), id, limit)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// MyChallenges godoc
// @Summary Challenges the caller has joined, with progress
// @Tags Challenges
// @Security BearerAuth
// @Success 200 {array} service.UserChallenge
// @Router /me/challenges [get]
func (h *ChallengeHandler) MyChallenges(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.participationService.GetUserChallenges(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Recompute godoc
// @Summary Refresh cached stats of every active challenge now (admin)
// @Tags Admin
// @Security BearerAuth
// @Success 200 {object} service.SweepResult
// @Router /admin/challenges/recompute [post]
func (h *ChallengeHandler) Recompute(c *gin.Context) {
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func challengeIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid challenge ID format")
		return primitive.NilObjectID, false
	}
	return id, true
}
