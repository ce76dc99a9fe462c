package handler

import (
	"errors"

	"marketplace/internal/service"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

var businessCodes = []struct {
	err  error
	code int
}{
	{service.ErrInvalidArgument, response.CodeParamError},
	{service.ErrForbidden, response.CodeForbidden},
	{service.ErrOrderNotFound, response.CodeOrderNotFound},
	{service.ErrInvalidState, response.CodeOrderStatusInvalid},
	{service.ErrInsufficientFunds, response.CodeBalanceNotEnough},
	{service.ErrNoCart, response.CodeNoCart},
	{service.ErrEmptyCart, response.CodeEmptyCart},
	{service.ErrSellerMissing, response.CodeSellerMissing},
	{service.ErrOutOfStock, response.CodeOutOfStock},
	{service.ErrStockRace, response.CodeStockRace},
	{service.ErrCodeNotFound, response.CodeCodeNotFound},
	{service.ErrCodeExhausted, response.CodeCodeExhausted},
	{service.ErrAlreadyRedeemed, response.CodeAlreadyRedeemed},
	{service.ErrCodeExists, response.CodeCodeExists},
	{service.ErrUserNotFound, response.CodeUserNotFound},
	{service.ErrProductUnavailable, response.CodeProductUnavailable},
	{service.ErrCartItemNotFound, response.CodeCartItemNotFound},
	{service.ErrCheckoutBusy, response.CodeCheckoutBusy},
	{service.ErrCartChanged, response.CodeConflict},
}

// errorCode 未识别的错误一律按服务端错误处理
func errorCode(err error) int {
	for _, bc := range businessCodes {
		if errors.Is(err, bc.err) {
			return bc.code
		}
	}
	return response.CodeServerError
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := errorCode(err)
	if code == response.CodeServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("请求处理失败")
		response.ServerError(c, "服务器内部错误")
		return
	}
	response.BusinessError(c, code, err.Error())
}
