package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/kavach-store/internal/brahma"
	"github.com/safar/kavach-store/internal/cart"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/safar/kavach-store/internal/sarthi"
	"github.com/safar/kavach-store/internal/workflow"
)

var statusByError = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{
		database.ErrProductNotFound, database.ErrOrderNotFound, database.ErrCouponNotFound,
		database.ErrAddressNotFound, database.ErrNoDeliveryRule,
		cart.ErrUnknownProduct, cart.ErrNotInCart, cart.ErrNotInWishlist,
		sarthi.ErrRequestNotFound, sarthi.ErrExpertNotFound, sarthi.ErrSubscriptionNotFound,
		brahma.ErrBookingNotFound, brahma.ErrPaymentNotFound,
	}},
	{http.StatusBadRequest, []error{
		kavach.ErrInvalidInput, kavach.ErrEmptyCart, cart.ErrInvalidQty, pricing.ErrInvalidCoupon,
		sarthi.ErrInvalidInput, sarthi.ErrUnknownPackage, brahma.ErrInvalidInput, brahma.ErrUnknownKind,
	}},
	{http.StatusUnauthorized, []error{kavach.ErrLoginRequired}},
	{http.StatusForbidden, []error{kavach.ErrForbidden}},
	{http.StatusPaymentRequired, []error{brahma.ErrPaymentDeclined}},
	{http.StatusConflict, []error{
		workflow.ErrIllegalTransition, database.ErrInsufficientStock, database.ErrDuplicate,
		database.ErrOptimisticLockFailed, cart.ErrOutOfStock, cart.ErrStockLimit,
		sarthi.ErrExpertInactive, sarthi.ErrSubscriptionExpired,
		brahma.ErrSlotTaken, brahma.ErrExpertInactive,
	}},
}

func statusFor(err error) int {
	var couponErr *pricing.CouponError
	if errors.As(err, &couponErr) {
		return http.StatusBadRequest
	}
	for _, group := range statusByError {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var couponErr *pricing.CouponError
	if errors.As(err, &couponErr) {
		body["coupon"] = couponErr.Code
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

// shopperFrom reads the cart owner from the path. ?guest=true selects the
// guest cart of that id.
func shopperFrom(c *gin.Context) kavach.Shopper {
	guest, _ := strconv.ParseBool(c.Query("guest"))
	return kavach.Shopper{ID: c.Param("owner"), Guest: guest}
}
