package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"restrodesk/internal/handlers"
	applog "restrodesk/internal/log"
	"restrodesk/models"
)

func newRouter() http.Handler {
	r := chi.NewRouter()
	applog.Debug(context.Background(), "registering http routes")

	r.Get("/healthz", handlers.Health)
	r.Post("/login", handlers.Login)
	r.Post("/signup", handlers.Signup)
	r.Post("/logout", handlers.Logout)

	backOfHouse := handlers.RequireRole(models.RoleAdmin, models.RoleStaff)
	adminOnly := handlers.RequireRole(models.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(handlers.RequireAuthentication)

		r.Route("/ingredients", func(r chi.Router) {
			r.Get("/", handlers.ListIngredients)
			r.Post("/check-availability", handlers.CheckAvailability)
			r.With(backOfHouse).Post("/", handlers.CreateIngredient)
			r.With(backOfHouse).Post("/{id}/restock", handlers.RestockIngredient)
		})

		r.Route("/finished-goods", func(r chi.Router) {
			r.Get("/", handlers.ListFinishedGoods)
			r.With(backOfHouse).Post("/", handlers.CreateFinishedGood)
			r.With(backOfHouse).Put("/{id}", handlers.UpdateFinishedGood)
			r.With(adminOnly).Delete("/{id}", handlers.DeleteFinishedGood)
			r.With(backOfHouse).Post("/{id}/produce", handlers.Produce)
		})

		r.Route("/tables", func(r chi.Router) {
			r.Get("/", handlers.ListTables)
			r.With(backOfHouse).Post("/", handlers.CreateTable)
			r.With(backOfHouse).Post("/{id}/reserve", handlers.ReserveTable)
			r.With(backOfHouse).Post("/{id}/cleaning", handlers.MarkTableCleaning)
			r.With(backOfHouse).Post("/{id}/available", handlers.MarkTableAvailable)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", handlers.ListOrders)
			r.Post("/", handlers.PlaceOrder)
			r.With(backOfHouse).Post("/{id}/status", handlers.UpdateOrderStatus)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/", handlers.ListBills)
			r.With(backOfHouse).Post("/", handlers.GenerateBill)
		})

		r.Route("/requisitions", func(r chi.Router) {
			r.With(backOfHouse).Get("/", handlers.ListRequisitions)
			r.With(backOfHouse).Post("/", handlers.CreateRequisition)
			r.With(adminOnly).Post("/{id}/approve", handlers.ApproveRequisition)
			r.With(adminOnly).Post("/{id}/reject", handlers.RejectRequisition)
		})
	})

	return r
}
