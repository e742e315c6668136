package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

// StockHandler maneja las peticiones HTTP del libro de inventario (protegido).
type StockHandler struct {
	movements *inventory.RegisterMovementUseCase
	items     *inventory.StockItemUseCase
	valuation *inventory.ValuationUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(movements *inventory.RegisterMovementUseCase, items *inventory.StockItemUseCase, valuation *inventory.ValuationUseCase) *StockHandler {
	return &StockHandler{movements: movements, items: items, valuation: valuation}
}

// RegisterItem godoc
// @Summary      Registrar ítem o actualizar stock mínimo
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID del ítem (catálogo)"
// @Param        body  body  dto.RegisterItemRequest  true  "minimum_quantity"
// @Success      200   {object}  dto.StockItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id} [put]
func (h *StockHandler) RegisterItem(c *fiber.Ctx) error {
	var in dto.RegisterItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	it, err := h.items.Register(c.UserContext(), c.Params("id"), in.MinimumQuantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockItemResponse(it))
}

// GetItem godoc
// @Summary      Existencia y costo promedio actuales
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.StockItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id} [get]
func (h *StockHandler) GetItem(c *fiber.Ctx) error {
	it, err := h.items.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToStockItemResponse(it))
}

// ListMovements godoc
// @Summary      Historial de movimientos (cronológico, paginado)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del ítem"
// @Param        limit   query  int     false  "máx. 100"
// @Param        offset  query  int     false  "desplazamiento"
// @Success      200  {object}  dto.MovementPage
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	list, total, err := h.items.Movements(c.UserContext(), c.Params("id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.MovementPage{
		Items: make([]dto.MovementResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for _, m := range list {
		out.Items = append(out.Items, dto.ToMovementResponse(m))
	}
	return c.JSON(out)
}

// ListPrices godoc
// @Summary      Historial de precios de compra
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id           path   string  true   "ID del ítem"
// @Param        supplier_id  query  string  false  "filtrar por proveedor"
// @Param        limit        query  int     false  "máx. 100"
// @Param        offset       query  int     false  "desplazamiento"
// @Success      200  {array}   dto.PriceObservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/prices [get]
func (h *StockHandler) ListPrices(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit"), Offset: c.QueryInt("offset")}
	page.DefaultPage()
	list, err := h.items.PriceHistory(c.UserContext(), c.Params("id"), c.Query("supplier_id"), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToPriceObservationResponses(list))
}

// RecomputeCost godoc
// @Summary      Recalcular costo promedio desde el historial
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del ítem"
// @Success      200  {object}  dto.RecomputeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/recompute-cost [post]
func (h *StockHandler) RecomputeCost(c *fiber.Ctx) error {
	res, err := h.valuation.RecomputeAverageCost(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToRecomputeResponse(res))
}

// Reconcile godoc
// @Summary      Reconstruir existencia desde el libro
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "ID del ítem"
// @Param        apply  query  bool    false  "corregir la proyección si difiere"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/items/{id}/reconcile [post]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	res, err := h.valuation.Reconcile(c.UserContext(), c.Params("id"), c.QueryBool("apply"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReconcileResponse(res))
}

// ReceivePurchase godoc
// @Summary      Recepción de orden de compra (entrada con costo)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.PurchaseReceiptRequest  true  "item_id, quantity, unit_cost, supplier_id, order_reference"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/receipts [post]
func (h *StockHandler) ReceivePurchase(c *fiber.Ctx) error {
	var in dto.PurchaseReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.movements.ReceivePurchase(c.UserContext(), inventory.PurchaseReceipt{
		ItemID:         in.ItemID,
		Quantity:       in.Quantity,
		UnitCost:       in.UnitCost,
		SupplierID:     in.SupplierID,
		OrderReference: in.OrderReference,
		Actor:          GetUserID(c),
		Note:           in.Note,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponse(m))
}

// RegisterSale godoc
// @Summary      Venta confirmada (salida)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SaleRequest  true  "item_id, quantity, sale_reference"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/sales [post]
func (h *StockHandler) RegisterSale(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.movements.RegisterSale(c.UserContext(), inventory.Sale{
		ItemID:        in.ItemID,
		Quantity:      in.Quantity,
		SaleReference: in.SaleReference,
		Actor:         GetUserID(c),
		Note:          in.Note,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponse(m))
}

// CorrectStock godoc
// @Summary      Corrección manual de inventario (ajuste a cantidad absoluta)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentRequest  true  "item_id, new_quantity, reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) CorrectStock(c *fiber.Ctx) error {
	var in dto.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	m, err := h.movements.CorrectStock(c.UserContext(), inventory.StockCorrection{
		ItemID:      in.ItemID,
		NewQuantity: in.NewQuantity,
		Reason:      in.Reason,
		ReferenceID: in.ReferenceID,
		Actor:       GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResponse(m))
}
