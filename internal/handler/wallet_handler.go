package handler

import (
	"net/http"

	"nft-ticket-marketplace/internal/service"
	"nft-ticket-marketplace/internal/wallet"
	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/gin-gonic/gin"
)

const defaultActivityLimit = 50

type WalletHandler struct {
	session *wallet.Session
	catalog service.CatalogService
	tx      service.TxService
}

func NewWalletHandler(session *wallet.Session, catalog service.CatalogService, tx service.TxService) *WalletHandler {
	return &WalletHandler{session: session, catalog: catalog, tx: tx}
}

func (h *WalletHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("wallet", h.GetWallet)
		router.GET("wallet/tickets", h.MyTickets)
		router.GET("wallet/activity", h.Activity)
	}
}

func (h *WalletHandler) GetWallet(c *gin.Context) {
	resp := gin.H{
		"connected":  h.session.Connected(),
		"operations": h.tx.Pending(),
	}
	if h.session.Connected() {
		resp["address"] = h.session.Address.Hex()
	}
	handleSuccess(c, resp, http.StatusOK)
}

func (h *WalletHandler) MyTickets(c *gin.Context) {
	if !h.session.Connected() {
		handleError(c, apperrors.ErrWalletNotConnected, "MyTickets")
		return
	}
	tickets, err := h.catalog.MyTickets(c, h.session.Address)
	if err != nil {
		handleError(c, err, "MyTickets")
		return
	}
	handleSuccess(c, gin.H{"tickets": tickets}, http.StatusOK)
}

type activityQuery struct {
	Limit int `form:"limit" binding:"omitempty,gte=1,lte=200"`
}

func (h *WalletHandler) Activity(c *gin.Context) {
	if !h.session.Connected() {
		handleError(c, apperrors.ErrWalletNotConnected, "Activity")
		return
	}
	var q activityQuery
	if err := BindQuery(c, &q); err != nil {
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultActivityLimit
	}
	activities, err := h.catalog.Activity(c, h.session.Address, q.Limit)
	if err != nil {
		handleError(c, err, "Activity")
		return
	}
	handleSuccess(c, gin.H{"activities": activities}, http.StatusOK)
}
