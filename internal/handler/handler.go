package handler

import (
	"strconv"

	"marketplace/internal/config"
	"marketplace/internal/service"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	log             zerolog.Logger
	accountService  *service.AccountService
	cartService     *service.CartService
	checkoutService *service.CheckoutService
	orderService    *service.OrderService
	redeemService   *service.RedeemService
	adminService    *service.AdminService
}

func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{
		log:             log.With().Str("component", "http").Logger(),
		accountService:  service.NewAccountService(db),
		cartService:     service.NewCartService(db),
		checkoutService: service.NewCheckoutService(db, rdb, cfg, log),
		orderService:    service.NewOrderService(db, cfg, log),
		redeemService:   service.NewRedeemService(db, cfg, log),
		adminService:    service.NewAdminService(db, log),
	}
}

func queryID(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(key), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, key+" 参数错误")
		return 0, false
	}
	return id, true
}

func paramID(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, key+" 参数错误")
		return 0, false
	}
	return id, true
}

// ============================================================
// 钱包
// ============================================================

// Redeem 兑换码充值
// POST /api/v1/wallet/redeem
func (h *Handler) Redeem(c *gin.Context) {
	var req service.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.redeemService.Redeem(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}

// GetBalance GET /api/v1/wallet/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}

	wallet, err := h.accountService.GetWallet(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, wallet)
}

// ListTransactions GET /api/v1/wallet/transactions?user_id=xxx&page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.accountService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}

// ============================================================
// 购物车
// ============================================================

// GetCart GET /api/v1/cart?user_id=xxx
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}

	cart, err := h.cartService.GetCart(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, cart)
}

// AddCartItem POST /api/v1/cart/items
func (h *Handler) AddCartItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.cartService.AddItem(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, item)
}

// RemoveCartItem DELETE /api/v1/cart/items/:id?user_id=xxx
func (h *Handler) RemoveCartItem(c *gin.Context) {
	itemID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID, itemID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已移除"})
}

// ============================================================
// 订单
// ============================================================

// Checkout 购物车结账
// POST /api/v1/orders/checkout
//
// request_id 可选，同一买家重复提交相同 request_id 返回第一次创建的订单
func (h *Handler) Checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	if req.RequestID == "" {
		req.RequestID = c.GetHeader("X-Request-ID")
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, result)
}

// GetOrder GET /api/v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.LoadOrderWithItems(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders GET /api/v1/orders?user_id=xxx 或 ?seller_id=xxx
func (h *Handler) ListOrders(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("seller_id") != "" {
		sellerID, ok := queryID(c, "seller_id")
		if !ok {
			return
		}
		orders, err := h.orderService.ListSellerOrders(ctx, sellerID)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, gin.H{"list": orders})
		return
	}

	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	orders, err := h.orderService.ListBuyerOrders(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": orders})
}

// GetOrderMessages GET /api/v1/orders/:id/messages
func (h *Handler) GetOrderMessages(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	rooms, err := h.orderService.ListOrderMessages(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"rooms": rooms})
}

// CancelOrder POST /api/v1/orders/:id/cancel
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// body 可以为空
	_ = c.ShouldBindJSON(&req)

	if err := h.orderService.CancelOrder(c.Request.Context(), orderID, req.Reason); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "订单已取消"})
}

// CompleteOrder POST /api/v1/orders/:id/complete
func (h *Handler) CompleteOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.CompleteOrder(c.Request.Context(), orderID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "订单已完成"})
}

// ============================================================
// 管理后台，操作者由 X-User-ID 指定
// ============================================================

type createCodeBody struct {
	Code    string          `json:"code" binding:"required"`
	Value   decimal.Decimal `json:"value"`
	MaxUses int             `json:"max_uses"`
}

// CreateCode POST /api/v1/admin/codes
func (h *Handler) CreateCode(c *gin.Context) {
	var body createCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	code, err := h.adminService.CreateCode(c.Request.Context(), &service.CreateCodeRequest{
		AdminID: currentUserID(c),
		Code:    body.Code,
		Value:   body.Value,
		MaxUses: body.MaxUses,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, code)
}

// ListCodes GET /api/v1/admin/codes
func (h *Handler) ListCodes(c *gin.Context) {
	codes, err := h.adminService.ListCodes(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": codes})
}

// DeleteCode DELETE /api/v1/admin/codes/:id
func (h *Handler) DeleteCode(c *gin.Context) {
	codeID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.adminService.DeleteCode(c.Request.Context(), currentUserID(c), codeID); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已删除"})
}

// ListUsers GET /api/v1/admin/users
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.adminService.ListUsers(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": users})
}

// UpdateUserRole PUT /api/v1/admin/users/role
func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req struct {
		UserID int64  `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.adminService.UpdateUserRole(c.Request.Context(), currentUserID(c), req.UserID, req.Role); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "角色已更新"})
}
