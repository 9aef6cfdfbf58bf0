package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"ezrank_service/internal/app/service"
)

type DeleteRankRequest struct {
	RankIdx int64 `json:"rankIdx"`
	UserIdx int64 `json:"userIdx"`
}

type RankHandler struct {
	ranks  *service.RankService
	export *service.ExportService
	auth   *service.AuthService
}

func NewRankHandler(ranks *service.RankService, export *service.ExportService, auth *service.AuthService) *RankHandler {
	return &RankHandler{ranks: ranks, export: export, auth: auth}
}

func (h *RankHandler) Register(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/ranks", h.GetRanks)
	api.POST("/save-rank-result", h.SaveRankResult)
	api.POST("/save-rank-results", h.SaveRankResults)
	api.GET("/stats", h.GetStats)
	api.POST("/rank-delete", h.DeleteRank)
	api.POST("/schedule-rank-processing", h.ScheduleRankProcessing)
}

func (h *RankHandler) GetRanks(c echo.Context) error {
	userIdx, ok := h.auth.CurrentUserIdx(c.Request().Header.Get("Authorization"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid token"})
	}

	rows, err := h.ranks.GetRanks(userIdx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *RankHandler) SaveRankResult(c echo.Context) error {
	var req service.SaveRankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	msg, err := h.ranks.SaveRank(req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": verr.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

func (h *RankHandler) SaveRankResults(c echo.Context) error {
	var reqs []service.SaveRankRequest
	if err := c.Bind(&reqs); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	msg, err := h.ranks.SaveRanks(reqs)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": verr.Error()})
		}
		// Aggregate failures included: items that succeeded before a
		// failing item are already written.
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

func (h *RankHandler) GetStats(c echo.Context) error {
	if _, ok := h.auth.CurrentUserIdx(c.Request().Header.Get("Authorization")); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid token"})
	}

	stats, err := h.ranks.GetStatistics()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *RankHandler) DeleteRank(c echo.Context) error {
	var req DeleteRankRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	deleted, err := h.ranks.DeleteRank(req.RankIdx, req.UserIdx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "delete failed"})
	}
	if !deleted {
		return c.JSON(http.StatusOK, echo.Map{"message": "nothing deleted"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "rank deleted"})
}

// ScheduleRankProcessing triggers one export run on demand; the daily cron
// invokes the same path through the batch binary.
func (h *RankHandler) ScheduleRankProcessing(c echo.Context) error {
	msg, err := h.export.ExportAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "export failed: " + err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}
