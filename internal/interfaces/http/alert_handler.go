package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// AlertHandler consulta y transiciones de alertas, y barrido manual (protegido).
type AlertHandler struct {
	lifecycle *alerts.LifecycleUseCase
	sweeper   *alerts.Sweeper
}

// NewAlertHandler construye el handler.
func NewAlertHandler(lifecycle *alerts.LifecycleUseCase, sweeper *alerts.Sweeper) *AlertHandler {
	return &AlertHandler{lifecycle: lifecycle, sweeper: sweeper}
}

// List godoc
// @Summary      Listar alertas
// @Description  Sin state devuelve activas y vistas. state admite varios valores separados por coma.
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        item_id   query  string  false  "ID del ítem"
// @Param        kind      query  string  false  "low_stock | stock_out | anomalous_price"
// @Param        severity  query  string  false  "low | medium | high"
// @Param        state     query  string  false  "active,acknowledged,resolved"
// @Param        limit     query  int     false  "máx. 100"
// @Param        offset    query  int     false  "desplazamiento"
// @Success      200  {array}   dto.AlertResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/alerts [get]
func (h *AlertHandler) List(c *fiber.Ctx) error {
	var q dto.AlertListQuery
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	page := q.Page()
	filter := repository.AlertFilter{
		ItemID:   q.ItemID,
		Kind:     entity.AlertKind(q.Kind),
		Severity: entity.Severity(q.Severity),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if q.State == "" {
		filter.States = []entity.AlertState{entity.AlertStateActive, entity.AlertStateAcknowledged}
	} else {
		for _, s := range strings.Split(q.State, ",") {
			filter.States = append(filter.States, entity.AlertState(strings.TrimSpace(s)))
		}
	}
	list, err := h.lifecycle.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.AlertResponse, 0, len(list))
	for _, a := range list {
		out = append(out, dto.ToAlertResponse(a))
	}
	return c.JSON(out)
}

// Acknowledge godoc
// @Summary      Marcar alerta como vista
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la alerta"
// @Success      200  {object}  dto.AlertResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/alerts/{id}/acknowledge [post]
func (h *AlertHandler) Acknowledge(c *fiber.Ctx) error {
	a, err := h.lifecycle.Acknowledge(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToAlertResponse(a))
}

// Resolve godoc
// @Summary      Resolver alerta
// @Tags         alerts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la alerta"
// @Success      200  {object}  dto.AlertResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/alerts/{id}/resolve [post]
func (h *AlertHandler) Resolve(c *fiber.Ctx) error {
	a, err := h.lifecycle.Resolve(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToAlertResponse(a))
}

// Sweep godoc
// @Summary      Ejecutar el detector sobre todos los ítems
// @Tags         alerts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SweepRequest  false  "tipo: stock | precios | all; dry_run"
// @Success      200   {object}  dto.SweepResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/alerts/sweep [post]
func (h *AlertHandler) Sweep(c *fiber.Ctx) error {
	var in dto.SweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
	}
	opts, err := alerts.ParseSweepKind(in.Tipo, in.DryRun)
	if err != nil {
		return writeError(c, err)
	}
	rep, err := h.sweeper.Sweep(c.UserContext(), opts)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToSweepResponse(rep, in.DryRun))
}
