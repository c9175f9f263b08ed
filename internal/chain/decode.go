package chain

import (
	"fmt"
	"math/big"

	"nft-ticket-marketplace/internal/metrics"
	"nft-ticket-marketplace/internal/model"
	apperrors "nft-ticket-marketplace/pkg/app_errors"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var decodeLog = logger.WithComponent("chain")

// TicketTuple 與合約 Ticket struct 欄位一一對應（名稱需與 abi 產生的欄位相同）
type TicketTuple struct {
	Id                *big.Int
	Creator           common.Address
	Price             *big.Int
	EventName         string
	Description       string
	EventTimestamp    *big.Int
	Location          string
	Closed            bool
	Canceled          bool
	Metadata          string
	MaxSupply         *big.Int
	Sold              *big.Int
	TotalCollected    *big.Int
	TotalRefunded     *big.Int
	ProceedsWithdrawn bool
}

type ListingTuple struct {
	TokenId  *big.Int
	TicketId *big.Int
	Seller   common.Address
	Price    *big.Int
	Active   bool
}

// DecodeTicket 解 tickets(id) 的 15 個回傳值
func DecodeTicket(values []any) (*model.Ticket, error) {
	if len(values) != 15 {
		return nil, fmt.Errorf("%w: tickets returned %d values", apperrors.ErrMalformedChainData, len(values))
	}
	var tuple TicketTuple
	var err error
	if tuple.Id, err = at[*big.Int](values, 0); err != nil {
		return nil, err
	}
	if tuple.Creator, err = at[common.Address](values, 1); err != nil {
		return nil, err
	}
	if tuple.Price, err = at[*big.Int](values, 2); err != nil {
		return nil, err
	}
	if tuple.EventName, err = at[string](values, 3); err != nil {
		return nil, err
	}
	if tuple.Description, err = at[string](values, 4); err != nil {
		return nil, err
	}
	if tuple.EventTimestamp, err = at[*big.Int](values, 5); err != nil {
		return nil, err
	}
	if tuple.Location, err = at[string](values, 6); err != nil {
		return nil, err
	}
	if tuple.Closed, err = at[bool](values, 7); err != nil {
		return nil, err
	}
	if tuple.Canceled, err = at[bool](values, 8); err != nil {
		return nil, err
	}
	if tuple.Metadata, err = at[string](values, 9); err != nil {
		return nil, err
	}
	if tuple.MaxSupply, err = at[*big.Int](values, 10); err != nil {
		return nil, err
	}
	if tuple.Sold, err = at[*big.Int](values, 11); err != nil {
		return nil, err
	}
	if tuple.TotalCollected, err = at[*big.Int](values, 12); err != nil {
		return nil, err
	}
	if tuple.TotalRefunded, err = at[*big.Int](values, 13); err != nil {
		return nil, err
	}
	if tuple.ProceedsWithdrawn, err = at[bool](values, 14); err != nil {
		return nil, err
	}
	return tuple.ToModel()
}

// DecodeTickets 解 getRecentTickets() 的 tuple[]
func DecodeTickets(values []any) ([]*model.Ticket, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: getRecentTickets returned %d values", apperrors.ErrMalformedChainData, len(values))
	}
	tuples, err := convert[[]TicketTuple](values[0])
	if err != nil {
		return nil, err
	}
	// 單筆資料異常只略過該筆，不影響整個列表
	tickets := make([]*model.Ticket, 0, len(tuples))
	for i, tuple := range tuples {
		t, err := tuple.ToModel()
		if err != nil {
			decodeLog.Warn("skipping malformed ticket tuple",
				zap.Int("index", i),
				zap.Stringer("id", orZero(tuple.Id)),
				zap.Error(err),
			)
			metrics.TrackIntegrityWarning()
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func DecodeListing(values []any) (*model.ResaleListing, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: getListing returned %d values", apperrors.ErrMalformedChainData, len(values))
	}
	tuple, err := convert[ListingTuple](values[0])
	if err != nil {
		return nil, err
	}
	return tuple.ToModel()
}

func DecodeBool(values []any) (bool, error) {
	if len(values) != 1 {
		return false, fmt.Errorf("%w: expected a single bool, got %d values", apperrors.ErrMalformedChainData, len(values))
	}
	return at[bool](values, 0)
}

// DecodeRegistration indexed 欄位從 topics 取，tokenId 從 data 解
func DecodeRegistration(log types.Log) (*model.Registration, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("%w: TicketRegistered log has %d topics", apperrors.ErrMalformedChainData, len(log.Topics))
	}
	values, err := ticketABI.Unpack(EventTicketRegistered, log.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedChainData, err)
	}
	tokenID, err := at[*big.Int](values, 0)
	if err != nil {
		return nil, err
	}
	ticketID, err := toInt64(new(big.Int).SetBytes(log.Topics[1].Bytes()))
	if err != nil {
		return nil, err
	}
	token, err := toInt64(tokenID)
	if err != nil {
		return nil, err
	}
	return &model.Registration{
		TicketID: ticketID,
		Attendee: common.BytesToAddress(log.Topics[2].Bytes()),
		TokenID:  token,
		TxHash:   log.TxHash,
		Block:    log.BlockNumber,
	}, nil
}

func (t TicketTuple) ToModel() (*model.Ticket, error) {
	ints := make([]int64, 3)
	for i, v := range []*big.Int{t.Id, t.MaxSupply, t.Sold} {
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		ints[i] = n
	}
	// 超出範圍的 timestamp 視為無效日期（0），不算解碼失敗
	var eventTimestamp int64
	if t.EventTimestamp != nil && t.EventTimestamp.IsInt64() {
		eventTimestamp = t.EventTimestamp.Int64()
	}
	return &model.Ticket{
		ID:                ints[0],
		Creator:           t.Creator,
		Price:             orZero(t.Price),
		EventName:         t.EventName,
		Description:       t.Description,
		EventTimestamp:    eventTimestamp,
		Location:          t.Location,
		Closed:            t.Closed,
		Canceled:          t.Canceled,
		Metadata:          t.Metadata,
		MaxSupply:         ints[1],
		Sold:              ints[2],
		TotalCollected:    orZero(t.TotalCollected),
		TotalRefunded:     orZero(t.TotalRefunded),
		ProceedsWithdrawn: t.ProceedsWithdrawn,
	}, nil
}

func (l ListingTuple) ToModel() (*model.ResaleListing, error) {
	tokenID, err := toInt64(l.TokenId)
	if err != nil {
		return nil, err
	}
	ticketID, err := toInt64(l.TicketId)
	if err != nil {
		return nil, err
	}
	return &model.ResaleListing{
		TokenID:  tokenID,
		TicketID: ticketID,
		Seller:   l.Seller,
		Price:    orZero(l.Price),
		Active:   l.Active,
	}, nil
}

func at[T any](values []any, i int) (T, error) {
	var zero T
	if i >= len(values) {
		return zero, fmt.Errorf("%w: missing value at %d", apperrors.ErrMalformedChainData, i)
	}
	v, ok := values[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: value %d is %T, want %T", apperrors.ErrMalformedChainData, i, values[i], zero)
	}
	return v, nil
}

// convert 以 abi.ConvertType 將 abi 產生的匿名 struct 轉成具名型別，panic 轉為錯誤
func convert[T any](in any) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrMalformedChainData, r)
		}
	}()
	if in == nil {
		return out, fmt.Errorf("%w: nil tuple", apperrors.ErrMalformedChainData)
	}
	converted := abi.ConvertType(in, new(T)).(*T)
	return *converted, nil
}

func toInt64(v *big.Int) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s overflows int64", apperrors.ErrMalformedChainData, v)
	}
	return v.Int64(), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
