package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/alerts"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RegisterMovement *inventory.RegisterMovementUseCase
	StockItems       *inventory.StockItemUseCase
	Valuation        *inventory.ValuationUseCase
	Alerts           *alerts.LifecycleUseCase
	Sweeper          *alerts.Sweeper
	JWTSecret        string
}

// AppConfig configuración de fiber para la API. Immutable copia parámetros y cuerpo de cada
// petición: los IDs de ruta terminan como claves del registro y no pueden apuntar al buffer reutilizado.
func AppConfig(name string) fiber.Config {
	return fiber.Config{
		AppName:      name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	}
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleAuditor)
	writer := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	admin := RequireRole(jwt.RoleAdmin)

	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.RegisterMovement, deps.StockItems, deps.Valuation)
	stock.Put("/items/:id", admin, stockHandler.RegisterItem)
	stock.Get("/items/:id", anyRole, stockHandler.GetItem)
	stock.Get("/items/:id/movements", anyRole, stockHandler.ListMovements)
	stock.Get("/items/:id/prices", anyRole, stockHandler.ListPrices)
	stock.Post("/items/:id/recompute-cost", admin, stockHandler.RecomputeCost)
	stock.Post("/items/:id/reconcile", admin, stockHandler.Reconcile)
	stock.Post("/receipts", writer, stockHandler.ReceivePurchase)
	stock.Post("/sales", writer, stockHandler.RegisterSale)
	stock.Post("/adjustments", writer, stockHandler.CorrectStock)

	alertGroup := api.Group("/alerts")
	alertHandler := NewAlertHandler(deps.Alerts, deps.Sweeper)
	alertGroup.Get("/", anyRole, alertHandler.List)
	alertGroup.Post("/sweep", admin, alertHandler.Sweep)
	alertGroup.Post("/:id/acknowledge", writer, alertHandler.Acknowledge)
	alertGroup.Post("/:id/resolve", writer, alertHandler.Resolve)
}
