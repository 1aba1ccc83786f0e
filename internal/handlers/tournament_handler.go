package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
)

// TournamentHandler handles HTTP requests related to group tournaments. Every
// route is limited to members of the group.
type TournamentHandler struct {
	groupRepository      repositories.GroupRepository
	tournamentRepository repositories.TournamentRepository
}

// NewTournamentHandler creates a new TournamentHandler
func NewTournamentHandler(groupRepo repositories.GroupRepository, tournamentRepo repositories.TournamentRepository) *TournamentHandler {
	return &TournamentHandler{groupRepository: groupRepo, tournamentRepository: tournamentRepo}
}

// RegisterTournamentRoutes registers tournament routes
func (h *TournamentHandler) RegisterTournamentRoutes(g *echo.Group) {
	g.POST("/groups/:id/tournaments", h.CreateTournament, h.requireMember)
	g.POST("/groups/:id/tournaments/:tid/join", h.JoinTournament, h.requireMember)
	g.GET("/groups/:id/tournaments/:tid/participants", h.ListParticipants, h.requireMember)
}

func (h *TournamentHandler) requireMember(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := h.groupRepository.RequireMember(c.Request().Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
			return httpError(err)
		}
		return next(c)
	}
}

func (h *TournamentHandler) CreateTournament(c echo.Context) error {
	var req models.CreateTournamentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	id, err := h.tournamentRepository.CreateTournament(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

func (h *TournamentHandler) JoinTournament(c echo.Context) error {
	err := h.tournamentRepository.JoinTournament(c.Request().Context(), middleware.CallerFrom(c), c.Param("id"), c.Param("tid"))
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TournamentHandler) ListParticipants(c echo.Context) error {
	participants, err := h.tournamentRepository.ListParticipants(c.Request().Context(), c.Param("id"), c.Param("tid"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, participants)
}
