package handler

import (
	"net/http"

	"nft-ticket-marketplace/internal/model"
	"nft-ticket-marketplace/internal/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// ListingHandler 二手市場與票券轉移
type ListingHandler struct {
	catalog service.CatalogService
	tx      service.TxService
}

func NewListingHandler(catalog service.CatalogService, tx service.TxService) *ListingHandler {
	return &ListingHandler{catalog: catalog, tx: tx}
}

func (h *ListingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("listings/:tokenId", h.GetListing)
		router.POST("listings", h.ListForResale)
		router.POST("listings/:tokenId/buy", h.BuyResale)
		router.DELETE("listings/:tokenId", h.CancelListing)
		router.POST("tokens/:tokenId/transfer", h.Transfer)
	}
}

func (h *ListingHandler) GetListing(c *gin.Context) {
	tokenID, ok := paramID(c, "tokenId")
	if !ok {
		return
	}
	listing, err := h.catalog.GetListing(c, tokenID)
	if err != nil {
		handleError(c, err, "GetListing")
		return
	}
	handleSuccess(c, listing, http.StatusOK)
}

func (h *ListingHandler) ListForResale(c *gin.Context) {
	var req model.ListTicketRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	price, err := parseWei(req.Price)
	if err != nil {
		handleError(c, err, "ListForResale")
		return
	}
	state, err := h.tx.ListForResale(c, *req.TokenID, model.NativeToWei(price))
	if err != nil {
		handleError(c, err, "ListForResale")
		return
	}
	handleSuccess(c, state, http.StatusAccepted)
}

func (h *ListingHandler) BuyResale(c *gin.Context) {
	tokenID, ok := paramID(c, "tokenId")
	if !ok {
		return
	}
	state, err := h.tx.BuyResale(c, tokenID)
	if err != nil {
		handleError(c, err, "BuyResale")
		return
	}
	handleSuccess(c, state, http.StatusAccepted)
}

func (h *ListingHandler) CancelListing(c *gin.Context) {
	tokenID, ok := paramID(c, "tokenId")
	if !ok {
		return
	}
	state, err := h.tx.CancelListing(c, tokenID)
	if err != nil {
		handleError(c, err, "CancelListing")
		return
	}
	handleSuccess(c, state, http.StatusAccepted)
}

func (h *ListingHandler) Transfer(c *gin.Context) {
	tokenID, ok := paramID(c, "tokenId")
	if !ok {
		return
	}
	var req model.TransferRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	state, err := h.tx.Transfer(c, tokenID, common.HexToAddress(req.To))
	if err != nil {
		handleError(c, err, "Transfer")
		return
	}
	handleSuccess(c, state, http.StatusAccepted)
}
