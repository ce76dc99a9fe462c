package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeServerError  = 500
)

// 业务错误码
const (
	CodeOrderNotFound      = 1001
	CodeOrderStatusInvalid = 1002
	CodeBalanceNotEnough   = 1003
	CodeNoCart             = 1004
	CodeEmptyCart          = 1005
	CodeSellerMissing      = 1006
	CodeOutOfStock         = 1007
	CodeStockRace          = 1008
	CodeCodeNotFound       = 1101
	CodeCodeExhausted      = 1102
	CodeAlreadyRedeemed    = 1103
	CodeCodeExists         = 1104
	CodeUserNotFound       = 1201
	CodeProductUnavailable = 1301
	CodeCartItemNotFound   = 1302
	CodeCheckoutBusy       = 1401
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
