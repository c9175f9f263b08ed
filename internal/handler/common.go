package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	apperrors "nft-ticket-marketplace/pkg/app_errors"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// RegisterValidators 註冊自訂的 binding tag，main 與測試啟動時各呼叫一次
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	return v.RegisterValidation("future_unix", futureUnix)
}

// future_unix：unix 秒數必須晚於現在
func futureUnix(fl validator.FieldLevel) bool {
	return fl.Field().Int() > time.Now().Unix()
}

// paramID 路徑上的 ticket / token id，0 是合法的 id
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid %s", name),
		})
		return 0, false
	}
	return id, true
}

// queryAddress 沒有帶參數時回傳 nil
func queryAddress(c *gin.Context, name string) (*common.Address, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Invalid %s address", name),
		})
		return nil, false
	}
	addr := common.HexToAddress(raw)
	return &addr, true
}

// parseWei 原生幣十進位字串轉 wei
func parseWei(raw string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q", apperrors.ErrInvalidInput, raw)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: price must not be negative", apperrors.ErrInvalidInput)
	}
	return v, nil
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrTicketNotFound):
		log.Warn("Ticket not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Ticket not found",
		})
	case errors.Is(err, apperrors.ErrListingNotFound):
		log.Warn("Listing not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Listing not found",
		})
	case errors.Is(err, apperrors.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Transaction slot not found",
		})
	case errors.Is(err, apperrors.ErrOperationInFlight):
		log.Warn("Operation already in flight")
		c.JSON(http.StatusConflict, gin.H{
			"error": "An operation is already in progress",
		})
	case errors.Is(err, apperrors.ErrTicketUnavailable):
		log.Warn("Ticket unavailable")
		c.JSON(http.StatusConflict, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrListingInactive):
		log.Warn("Listing inactive")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Listing is not active",
		})
	case errors.Is(err, apperrors.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Transaction is still in progress",
		})
	case errors.Is(err, apperrors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
	case errors.Is(err, apperrors.ErrWalletNotConnected):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Wallet not connected",
		})
	case errors.Is(err, apperrors.ErrTrackerClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Server is shutting down",
		})
	default:
		// 鏈上讀取失敗
		if kind := apperrors.Classify(err); kind.IsTransient() {
			log.Warn("Upstream unavailable", zap.String("kind", string(kind)))
			c.JSON(http.StatusBadGateway, gin.H{
				"error": apperrors.UserMessage(kind, err),
			})
			return
		}
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
