package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safar/kavach-store/internal/brahma"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/sarthi"
)

func (s *Server) listSarthiRequests(c *gin.Context) {
	requests, err := s.services.Sarthi.ListRequests(c.Request.Context(), sarthi.RequestFilter{
		Customer: c.Query("customer"),
		ExpertID: c.Query("expert_id"),
		Status:   models.SarthiStatus(c.Query("status")),
		Search:   c.Query("q"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": requests})
}

func (s *Server) createSarthiRequest(c *gin.Context) {
	var req struct {
		Customer string `json:"customer"`
		Problem  string `json:"problem"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	r, err := s.services.Sarthi.CreateRequest(c.Request.Context(), req.Customer, req.Problem, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) getSarthiRequest(c *gin.Context) {
	r, err := s.services.Sarthi.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) assignExpert(c *gin.Context) {
	var req struct {
		ExpertID string `json:"expert_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ExpertID == "" {
		badRequest(c, "expert_id is required")
		return
	}
	r, err := s.services.Sarthi.AssignExpert(c.Request.Context(), c.Param("id"), req.ExpertID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) scheduleRequest(c *gin.Context) {
	var req struct {
		At time.Time `json:"at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.At.IsZero() {
		badRequest(c, "at must be an RFC 3339 time")
		return
	}
	r, err := s.services.Sarthi.Schedule(c.Request.Context(), c.Param("id"), req.At)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) completeRequest(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	// An empty body completes without notes.
	_ = c.ShouldBindJSON(&req)
	r, err := s.services.Sarthi.Complete(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) cancelRequest(c *gin.Context) {
	r, err := s.services.Sarthi.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) listExperts(c *gin.Context) {
	activeOnly, _ := strconv.ParseBool(c.Query("active"))
	experts, err := s.services.Sarthi.ListExperts(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": experts})
}

func (s *Server) addExpert(c *gin.Context) {
	var req models.Expert
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	expert, err := s.services.Sarthi.AddExpert(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, expert)
}

func (s *Server) deactivateExpert(c *gin.Context) {
	expert, err := s.services.Sarthi.DeactivateExpert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expert)
}

func (s *Server) listPackages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": sarthi.Packages()})
}

type subscriptionView struct {
	*models.Subscription
	Progress int `json:"progress"`
}

func (s *Server) subscriptionResult(c *gin.Context, status int, sub *models.Subscription, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, subscriptionView{Subscription: sub, Progress: sarthi.Progress(sub)})
}

func (s *Server) listSubscriptions(c *gin.Context) {
	subs, err := s.services.Sarthi.ListSubscriptions(c.Request.Context(), c.Query("customer"))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]subscriptionView, 0, len(subs))
	for i := range subs {
		out = append(out, subscriptionView{Subscription: &subs[i], Progress: sarthi.Progress(&subs[i])})
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (s *Server) subscribe(c *gin.Context) {
	var req struct {
		Customer string             `json:"customer"`
		Tier     models.PackageTier `json:"tier"`
		ExpertID string             `json:"expert_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	sub, err := s.services.Sarthi.Subscribe(c.Request.Context(), req.Customer, req.Tier, req.ExpertID)
	s.subscriptionResult(c, http.StatusCreated, sub, err)
}

func (s *Server) getSubscription(c *gin.Context) {
	sub, err := s.services.Sarthi.GetSubscription(c.Request.Context(), c.Param("id"))
	s.subscriptionResult(c, http.StatusOK, sub, err)
}

func (s *Server) subscriptionAction(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var sub *models.Subscription
	var err error
	switch c.Param("action") {
	case "activate":
		sub, err = s.services.Sarthi.ActivateSubscription(ctx, id)
	case "use":
		sub, err = s.services.Sarthi.UseSession(ctx, id)
	case "pause":
		sub, err = s.services.Sarthi.PauseSubscription(ctx, id)
	case "resume":
		sub, err = s.services.Sarthi.ResumeSubscription(ctx, id)
	case "cancel":
		sub, err = s.services.Sarthi.CancelSubscription(ctx, id)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action " + c.Param("action")})
		return
	}
	s.subscriptionResult(c, http.StatusOK, sub, err)
}

func (s *Server) listConsultations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": brahma.Consultations()})
}

func (s *Server) listBookings(c *gin.Context) {
	bookings, err := s.services.Brahma.ListBookings(c.Request.Context(), brahma.BookingFilter{
		Customer: c.Query("customer"),
		ExpertID: c.Query("expert_id"),
		Status:   models.BookingStatus(c.Query("status")),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": bookings})
}

func (s *Server) book(c *gin.Context) {
	var req brahma.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	booking, err := s.services.Brahma.Book(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (s *Server) getBooking(c *gin.Context) {
	booking, err := s.services.Brahma.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) bookingAction(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var booking *models.Booking
	var err error
	switch c.Param("action") {
	case "pay":
		var req struct {
			Method string `json:"method"`
		}
		_ = c.ShouldBindJSON(&req)
		if req.Method == "" {
			req.Method = "card"
		}
		booking, err = s.services.Brahma.Pay(ctx, id, req.Method)
	case "retry":
		booking, err = s.services.Brahma.RetryPayment(ctx, id)
	case "start":
		booking, err = s.services.Brahma.Start(ctx, id)
	case "complete":
		booking, err = s.services.Brahma.Complete(ctx, id)
	case "no-show":
		booking, err = s.services.Brahma.NoShow(ctx, id)
	case "cancel":
		booking, err = s.services.Brahma.Cancel(ctx, id)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown action " + c.Param("action")})
		return
	}

	if err != nil {
		status := statusFor(err)
		if booking != nil && status != http.StatusInternalServerError {
			// A declined payment still moved the booking; show where it is.
			c.JSON(status, gin.H{"error": err.Error(), "booking": booking})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) listPayments(c *gin.Context) {
	payments, err := s.services.Brahma.Payments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": payments})
}
