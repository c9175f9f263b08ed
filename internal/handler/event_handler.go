package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"nft-ticket-marketplace/internal/catalog"
	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	catalog service.CatalogService
	tx      service.TxService
	// 沒有帶 viewer 參數時使用已連線的錢包
	defaultViewer func() *common.Address
}

func NewEventHandler(catalog service.CatalogService, tx service.TxService, defaultViewer func() *common.Address) *EventHandler {
	if defaultViewer == nil {
		defaultViewer = func() *common.Address { return nil }
	}
	return &EventHandler{catalog: catalog, tx: tx, defaultViewer: defaultViewer}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.ListEvents)
		router.GET("events/categories", h.Categories)
		router.GET("events/:id", h.GetEvent)
		router.POST("events", h.CreateEvent)
		router.POST("events/:id/register", h.BuyTicket)
		router.POST("events/:id/cancel", h.CancelEvent)
		router.POST("events/:id/close", h.CloseEvent)
		router.POST("events/:id/refund", h.ClaimRefund)
		router.POST("events/:id/withdraw", h.WithdrawProceeds)
	}
}

func (h *EventHandler) viewer(c *gin.Context) (*common.Address, bool) {
	addr, ok := queryAddress(c, "viewer")
	if !ok {
		return nil, false
	}
	if addr == nil {
		addr = h.defaultViewer()
	}
	return addr, true
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	var q catalog.Query
	if err := BindQuery(c, &q); err != nil {
		return
	}
	if !q.Validate() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid filter",
		})
		return
	}
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	events, err := h.catalog.ListEvents(c, q)
	if err != nil {
		handleError(c, err, "ListEvents")
		return
	}

	resp := gin.H{"events": events, "total": len(events)}
	if viewer != nil && len(events) > 0 {
		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.Ticket.ID)
		}
		resp["registered"] = h.catalog.RegistrationMap(c, *viewer, ids)
	}
	handleSuccess(c, resp, http.StatusOK)
}

func (h *EventHandler) Categories(c *gin.Context) {
	categories, err := h.catalog.Categories(c)
	if err != nil {
		handleError(c, err, "Categories")
		return
	}
	handleSuccess(c, gin.H{"categories": categories}, http.StatusOK)
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	viewer, ok := h.viewer(c)
	if !ok {
		return
	}

	detail, err := h.catalog.GetEvent(c, id, viewer)
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	handleSuccess(c, detail, http.StatusOK)
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	price, err := parseWei(req.Price)
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}
	metadata, err := json.Marshal(req.Metadata())
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}

	state, err := h.tx.CreateEvent(c, service.CreateEventParams{
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		Metadata:       string(metadata),
		Price:          model.NativeToWei(price),
		EventTimestamp: req.EventTimestamp,
		MaxSupply:      req.MaxSupply,
	})
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}
	handleSuccess(c, state, http.StatusAccepted)
}

func (h *EventHandler) BuyTicket(c *gin.Context) {
	h.ticketWrite(c, "BuyTicket", h.tx.BuyTicket)
}

func (h *EventHandler) CancelEvent(c *gin.Context) {
	h.ticketWrite(c, "CancelEvent", h.tx.CancelEvent)
}

func (h *EventHandler) CloseEvent(c *gin.Context) {
	h.ticketWrite(c, "CloseEvent", h.tx.CloseEvent)
}

func (h *EventHandler) ClaimRefund(c *gin.Context) {
	h.ticketWrite(c, "ClaimRefund", h.tx.ClaimRefund)
}

func (h *EventHandler) WithdrawProceeds(c *gin.Context) {
	h.ticketWrite(c, "WithdrawProceeds", h.tx.WithdrawProceeds)
}

func (h *EventHandler) ticketWrite(c *gin.Context, operation string, write func(ctx context.Context, ticketID int64) (model.TxState, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	state, err := write(c, id)
	if err != nil {
		handleError(c, err, operation)
		return
	}
	handleSuccess(c, state, http.StatusAccepted)
}
