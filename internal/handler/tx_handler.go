package handler

import (
	"net/http"

	"nft-ticket-marketplace/internal/service"

	"github.com/gin-gonic/gin"
)

// TxHandler 查詢與訂閱 TxLifecycle 狀態
type TxHandler struct {
	tx service.TxService
}

func NewTxHandler(tx service.TxService) *TxHandler {
	return &TxHandler{tx: tx}
}

func (h *TxHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("tx", h.Pending)
		router.GET("tx/:slot", h.GetState)
		router.GET("tx/:slot/stream", h.Stream)
		router.DELETE("tx/:slot", h.Dismiss)
	}
}

func (h *TxHandler) Pending(c *gin.Context) {
	handleSuccess(c, gin.H{"operations": h.tx.Pending()}, http.StatusOK)
}

func (h *TxHandler) GetState(c *gin.Context) {
	state, err := h.tx.State(c.Param("slot"))
	if err != nil {
		handleError(c, err, "GetState")
		return
	}
	handleSuccess(c, state, http.StatusOK)
}

// Stream 以 SSE 推送狀態變化，送出 settled / failed 後結束
func (h *TxHandler) Stream(c *gin.Context) {
	states, unsubscribe, err := h.tx.Subscribe(c.Param("slot"))
	if err != nil {
		handleError(c, err, "Stream")
		return
	}
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				c.SSEvent("closed", gin.H{})
				c.Writer.Flush()
				return
			}
			c.SSEvent("state", st)
			c.Writer.Flush()
			if st.Phase.IsTerminal() {
				return
			}
		}
	}
}

func (h *TxHandler) Dismiss(c *gin.Context) {
	if err := h.tx.Dismiss(c.Param("slot")); err != nil {
		handleError(c, err, "Dismiss")
		return
	}
	handleSuccess(c, nil, http.StatusNoContent)
}
