// Package api exposes the kavach shop and the Sarthi and Brahma
// consultation services over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/kavach-store/internal/brahma"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/sarthi"
)

type Services struct {
	Kavach *kavach.Service
	Sarthi *sarthi.Service
	Brahma *brahma.Service
}

type Server struct {
	router   *gin.Engine
	services Services
	health   func(ctx context.Context) error
}

type Option func(*Server)

// WithHealthCheck makes /api/health report the result of fn, typically a
// database ping.
func WithHealthCheck(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.health = fn }
}

// NewServer creates a new server instance
func NewServer(services Services, opts ...Option) *Server {
	server := &Server{
		router:   gin.Default(),
		services: services,
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)

		api.GET("/products", s.listProducts)
		api.POST("/products", s.createProduct)
		api.GET("/products/:id", s.getProduct)
		api.PUT("/products/:id", s.updateProduct)
		api.DELETE("/products/:id", s.deleteProduct)

		api.GET("/carts/:owner", s.getCart)
		api.DELETE("/carts/:owner", s.clearCart)
		api.GET("/carts/:owner/quote", s.quoteCart)
		api.POST("/carts/:owner/items", s.addCartItem)
		api.PATCH("/carts/:owner/items/:productID", s.updateCartItem)
		api.DELETE("/carts/:owner/items/:productID", s.removeCartItem)
		api.POST("/carts/:owner/items/:productID/increment", s.incrementCartItem)
		api.POST("/carts/:owner/items/:productID/decrement", s.decrementCartItem)
		api.POST("/carts/:owner/merge", s.mergeGuestCart)
		api.POST("/carts/:owner/checkout", s.checkout)

		api.GET("/wishlists/:owner", s.getWishlist)
		api.POST("/wishlists/:owner/items/:productID", s.toggleWishlist)
		api.POST("/wishlists/:owner/items/:productID/move", s.moveToCart)

		api.GET("/orders", s.listOrders)
		api.GET("/orders/:id", s.getOrder)
		api.POST("/orders/:id/events", s.orderEvent)

		api.GET("/coupons", s.listCoupons)
		api.POST("/coupons", s.createCoupon)
		api.PUT("/coupons/:code", s.updateCoupon)
		api.POST("/coupons/validate", s.validateCoupon)

		api.GET("/delivery-rule", s.getDeliveryRule)
		api.PUT("/delivery-rule", s.setDeliveryRule)

		api.GET("/addresses/:owner", s.listAddresses)
		api.POST("/addresses/:owner", s.addAddress)
		api.DELETE("/addresses/:owner/:id", s.deleteAddress)

		sarthiAPI := api.Group("/sarthi")
		sarthiAPI.GET("/requests", s.listSarthiRequests)
		sarthiAPI.POST("/requests", s.createSarthiRequest)
		sarthiAPI.GET("/requests/:id", s.getSarthiRequest)
		sarthiAPI.POST("/requests/:id/assign", s.assignExpert)
		sarthiAPI.POST("/requests/:id/schedule", s.scheduleRequest)
		sarthiAPI.POST("/requests/:id/complete", s.completeRequest)
		sarthiAPI.POST("/requests/:id/cancel", s.cancelRequest)
		sarthiAPI.GET("/experts", s.listExperts)
		sarthiAPI.POST("/experts", s.addExpert)
		sarthiAPI.POST("/experts/:id/deactivate", s.deactivateExpert)
		sarthiAPI.GET("/packages", s.listPackages)
		sarthiAPI.GET("/subscriptions", s.listSubscriptions)
		sarthiAPI.POST("/subscriptions", s.subscribe)
		sarthiAPI.GET("/subscriptions/:id", s.getSubscription)
		sarthiAPI.POST("/subscriptions/:id/:action", s.subscriptionAction)

		brahmaAPI := api.Group("/brahma")
		brahmaAPI.GET("/consultations", s.listConsultations)
		brahmaAPI.GET("/bookings", s.listBookings)
		brahmaAPI.POST("/bookings", s.book)
		brahmaAPI.GET("/bookings/:id", s.getBooking)
		brahmaAPI.POST("/bookings/:id/:action", s.bookingAction)
		brahmaAPI.GET("/payments", s.listPayments)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"error":  "database connection failed",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "kavach-store",
	})
}

// Handler returns the router, for use in an http.Server or in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
