package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/models"
	"github.com/safar/kavach-store/internal/pricing"
	"github.com/safar/kavach-store/internal/workflow"
)

type productView struct {
	models.Product
	DiscountPercent int    `json:"discount_percent"`
	StockStatus     string `json:"stock_status"`
}

func (s *Server) productView(p *models.Product) productView {
	return productView{
		Product:         *p,
		DiscountPercent: pricing.DiscountPercent(p.Price, p.OriginalPrice),
		StockStatus:     string(s.services.Kavach.StockStatus(p)),
	}
}

func (s *Server) listProducts(c *gin.Context) {
	activeOnly := true
	if v, err := strconv.ParseBool(c.Query("active")); err == nil {
		activeOnly = v
	}

	page, err := s.services.Kavach.ListProducts(c.Request.Context(), models.ProductFilter{
		Category:   c.Query("category"),
		Search:     c.Query("q"),
		ActiveOnly: activeOnly,
		Page:       intQuery(c, "page"),
		PageSize:   intQuery(c, "page_size"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := models.OffsetPage[productView]{
		Items:      make([]productView, 0, len(page.Items)),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
	for i := range page.Items {
		out.Items = append(out.Items, s.productView(&page.Items[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	product, err := s.services.Kavach.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.productView(product))
}

func (s *Server) createProduct(c *gin.Context) {
	var req models.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	product, err := s.services.Kavach.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (s *Server) updateProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req models.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.ID = id
	product, err := s.services.Kavach.UpdateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := s.services.Kavach.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) cartResult(c *gin.Context, view *kavach.CartView, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) getCart(c *gin.Context) {
	view, err := s.services.Kavach.Cart(c.Request.Context(), shopperFrom(c))
	s.cartResult(c, view, err)
}

func (s *Server) clearCart(c *gin.Context) {
	view, err := s.services.Kavach.ClearCart(c.Request.Context(), shopperFrom(c))
	s.cartResult(c, view, err)
}

func (s *Server) quoteCart(c *gin.Context) {
	quote, err := s.services.Kavach.Quote(c.Request.Context(), shopperFrom(c), c.Query("coupon"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (s *Server) addCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := s.services.Kavach.AddToCart(c.Request.Context(), shopperFrom(c), req.ProductID, req.Quantity)
	s.cartResult(c, view, err)
}

func (s *Server) updateCartItem(c *gin.Context) {
	productID, ok := int64Param(c, "productID")
	if !ok {
		return
	}
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	view, err := s.services.Kavach.UpdateQuantity(c.Request.Context(), shopperFrom(c), productID, req.Quantity)
	s.cartResult(c, view, err)
}

func (s *Server) removeCartItem(c *gin.Context) {
	productID, ok := int64Param(c, "productID")
	if !ok {
		return
	}
	view, err := s.services.Kavach.RemoveFromCart(c.Request.Context(), shopperFrom(c), productID)
	s.cartResult(c, view, err)
}

func (s *Server) incrementCartItem(c *gin.Context) {
	productID, ok := int64Param(c, "productID")
	if !ok {
		return
	}
	view, err := s.services.Kavach.Increment(c.Request.Context(), shopperFrom(c), productID)
	s.cartResult(c, view, err)
}

func (s *Server) decrementCartItem(c *gin.Context) {
	productID, ok := int64Param(c, "productID")
	if !ok {
		return
	}
	view, err := s.services.Kavach.Decrement(c.Request.Context(), shopperFrom(c), productID)
	s.cartResult(c, view, err)
}

// mergeGuestCart folds the guest cart named in the body into the signed-in
// cart of :owner, typically right after login.
func (s *Server) mergeGuestCart(c *gin.Context) {
	var req struct {
		GuestID string `json:"guest_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.GuestID == "" {
		badRequest(c, "guest_id is required")
		return
	}
	view, err := s.services.Kavach.MergeGuestCart(c.Request.Context(), req.GuestID, c.Param("owner"))
	s.cartResult(c, view, err)
}

type checkoutRequest struct {
	AddressID  int64           `json:"address_id"`
	Address    *models.Address `json:"address"`
	CouponCode string          `json:"coupon_code"`
}

func (s *Server) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	order, err := s.services.Kavach.Checkout(c.Request.Context(), shopperFrom(c), kavach.CheckoutRequest{
		AddressID:  req.AddressID,
		Address:    req.Address,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) getWishlist(c *gin.Context) {
	w, err := s.services.Kavach.Wishlist(c.Request.Context(), shopperFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *Server) toggleWishlist(c *gin.Context) {
	productID, ok := int64Param(c, "productID")
	if !ok {
		return
	}
	in, err := s.services.Kavach.ToggleWishlist(c.Request.Context(), shopperFrom(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_id": productID, "in_wishlist": in})
}

func (s *Server) moveToCart(c *gin.Context) {
	productID, ok := int64Param(c, "productID")
	if !ok {
		return
	}
	view, err := s.services.Kavach.MoveToCart(c.Request.Context(), shopperFrom(c), productID)
	s.cartResult(c, view, err)
}

func (s *Server) listOrders(c *gin.Context) {
	page, err := s.services.Kavach.ListOrders(c.Request.Context(), models.OrderFilter{
		Owner:  c.Query("owner"),
		Status: models.OrderStatus(c.Query("status")),
		Cursor: c.Query("cursor"),
		Limit:  intQuery(c, "limit"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getOrder(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	order, err := s.services.Kavach.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":  order,
		"events": workflow.Order.Events(order.Status),
	})
}

func (s *Server) orderEvent(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req struct {
		Event workflow.OrderEvent `json:"event"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Event == "" {
		badRequest(c, "event is required")
		return
	}
	order, err := s.services.Kavach.UpdateOrderStatus(c.Request.Context(), id, req.Event)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) listCoupons(c *gin.Context) {
	coupons, err := s.services.Kavach.ListCoupons(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": coupons})
}

func (s *Server) createCoupon(c *gin.Context) {
	var req models.Coupon
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	coupon, err := s.services.Kavach.CreateCoupon(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, coupon)
}

func (s *Server) updateCoupon(c *gin.Context) {
	var req models.Coupon
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	req.Code = c.Param("code")
	coupon, err := s.services.Kavach.UpdateCoupon(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

// validateCoupon prices the owner's cart with the coupon without placing an
// order.
func (s *Server) validateCoupon(c *gin.Context) {
	var req struct {
		Owner string `json:"owner"`
		Guest bool   `json:"guest"`
		Code  string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Owner == "" || req.Code == "" {
		badRequest(c, "owner and code are required")
		return
	}
	quote, err := s.services.Kavach.Quote(c.Request.Context(), kavach.Shopper{ID: req.Owner, Guest: req.Guest}, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "quote": quote})
}

func (s *Server) getDeliveryRule(c *gin.Context) {
	rule, err := s.services.Kavach.DeliveryRule(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) setDeliveryRule(c *gin.Context) {
	var req models.DeliveryRule
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rule, err := s.services.Kavach.SetDeliveryRule(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) listAddresses(c *gin.Context) {
	addresses, err := s.services.Kavach.ListAddresses(c.Request.Context(), c.Param("owner"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": addresses})
}

func (s *Server) addAddress(c *gin.Context) {
	var req models.Address
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	address, err := s.services.Kavach.AddAddress(c.Request.Context(), c.Param("owner"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

func (s *Server) deleteAddress(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	if err := s.services.Kavach.DeleteAddress(c.Request.Context(), c.Param("owner"), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
