// chaintest 測試用的記憶體鏈，讀取結果經過真實 ABI 打包
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"nft-ticket-marketplace/internal/chain"
	"nft-ticket-marketplace/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type Call struct {
	Contract common.Address
	Method   string
	Value    *big.Int
	Args     []any
}

type FakeClient struct {
	mu sync.Mutex

	// key: method，沒有設定時回傳錯誤
	ReadFunc  func(method string, args []any) ([]any, error)
	WriteErr  error
	Hash      common.Hash
	Status    uint64
	ReceiptFn func(ctx context.Context) (*types.Receipt, error)
	Logs      []types.Log
	LogsErr   error
	Block     uint64

	reads  []Call
	writes []Call
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		Hash:   common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		Status: types.ReceiptStatusSuccessful,
		Block:  1000,
	}
}

func (f *FakeClient) Read(ctx context.Context, contract common.Address, method string, args ...any) ([]any, error) {
	f.mu.Lock()
	f.reads = append(f.reads, Call{Contract: contract, Method: method, Args: args})
	fn := f.ReadFunc
	f.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("no read stub for %s", method)
	}
	return fn(method, args)
}

func (f *FakeClient) Write(ctx context.Context, contract common.Address, method string, value *big.Int, prompt func(), args ...any) (common.Hash, error) {
	f.mu.Lock()
	f.writes = append(f.writes, Call{Contract: contract, Method: method, Value: value, Args: args})
	err, hash := f.WriteErr, f.Hash
	f.mu.Unlock()
	if prompt != nil {
		prompt()
	}
	if err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func (f *FakeClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	fn, status := f.ReceiptFn, f.Status
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return &types.Receipt{Status: status, TxHash: hash}, nil
}

func (f *FakeClient) GetLogs(ctx context.Context, contract common.Address, event string, fromBlock, toBlock *big.Int, topics ...[]any) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LogsErr != nil {
		return nil, f.LogsErr
	}
	return filterLogs(f.Logs, topics), nil
}

func (f *FakeClient) BlockNumber(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Block, nil
}

func (f *FakeClient) Reads() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.reads...)
}

func (f *FakeClient) Writes() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.writes...)
}

// ReadCount 某個方法被呼叫的次數
func (f *FakeClient) ReadCount(method string) int {
	n := 0
	for _, c := range f.Reads() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// filterLogs 只支援 ticketId / attendee 兩個 indexed topic
func filterLogs(logs []types.Log, topics [][]any) []types.Log {
	var out []types.Log
	for _, l := range logs {
		if matches(l, topics) {
			out = append(out, l)
		}
	}
	return out
}

func matches(l types.Log, topics [][]any) bool {
	for i, want := range topics {
		if len(want) == 0 {
			continue
		}
		if i+1 >= len(l.Topics) {
			return false
		}
		var h common.Hash
		switch v := want[0].(type) {
		case *big.Int:
			h = common.BigToHash(v)
		case common.Address:
			h = common.BytesToHash(v.Bytes())
		default:
			return false
		}
		if l.Topics[i+1] != h {
			return false
		}
	}
	return true
}

func tupleOf(t *model.Ticket) chain.TicketTuple {
	return chain.TicketTuple{
		Id:                big.NewInt(t.ID),
		Creator:           t.Creator,
		Price:             orZero(t.Price),
		EventName:         t.EventName,
		Description:       t.Description,
		EventTimestamp:    big.NewInt(t.EventTimestamp),
		Location:          t.Location,
		Closed:            t.Closed,
		Canceled:          t.Canceled,
		Metadata:          t.Metadata,
		MaxSupply:         big.NewInt(t.MaxSupply),
		Sold:              big.NewInt(t.Sold),
		TotalCollected:    orZero(t.TotalCollected),
		TotalRefunded:     orZero(t.TotalRefunded),
		ProceedsWithdrawn: t.ProceedsWithdrawn,
	}
}

// TicketValues tickets(id) 的回傳值
func TicketValues(t *model.Ticket) []any {
	tu := tupleOf(t)
	return roundTrip(chain.TicketABI().Methods[chain.MethodTickets].Outputs.Pack(
		tu.Id, tu.Creator, tu.Price, tu.EventName, tu.Description,
		tu.EventTimestamp, tu.Location, tu.Closed, tu.Canceled, tu.Metadata,
		tu.MaxSupply, tu.Sold, tu.TotalCollected, tu.TotalRefunded, tu.ProceedsWithdrawn,
	))(chain.MethodTickets)
}

// RecentValues getRecentTickets() 的回傳值
func RecentValues(tickets ...*model.Ticket) []any {
	tuples := make([]chain.TicketTuple, 0, len(tickets))
	for _, t := range tickets {
		tuples = append(tuples, tupleOf(t))
	}
	return roundTrip(chain.TicketABI().Methods[chain.MethodGetRecentTickets].Outputs.Pack(tuples))(chain.MethodGetRecentTickets)
}

func BoolValues(v bool) []any {
	return []any{v}
}

// ListingValues getListing(tokenId) 的回傳值
func ListingValues(l *model.ResaleListing) []any {
	data, err := chain.MarketABI().Methods[chain.MethodGetListing].Outputs.Pack(chain.ListingTuple{
		TokenId:  big.NewInt(l.TokenID),
		TicketId: big.NewInt(l.TicketID),
		Seller:   l.Seller,
		Price:    orZero(l.Price),
		Active:   l.Active,
	})
	if err != nil {
		panic(err)
	}
	values, err := chain.MarketABI().Unpack(chain.MethodGetListing, data)
	if err != nil {
		panic(err)
	}
	return values
}

// RegistrationLog 組出 TicketRegistered log
func RegistrationLog(ticketID int64, attendee common.Address, tokenID int64, txHash common.Hash, block uint64) types.Log {
	return types.Log{
		Topics: []common.Hash{
			chain.TicketABI().Events[chain.EventTicketRegistered].ID,
			common.BigToHash(big.NewInt(ticketID)),
			common.BytesToHash(attendee.Bytes()),
		},
		Data:        common.LeftPadBytes(big.NewInt(tokenID).Bytes(), 32),
		TxHash:      txHash,
		BlockNumber: block,
	}
}

func roundTrip(data []byte, err error) func(method string) []any {
	return func(method string) []any {
		if err != nil {
			panic(err)
		}
		values, err := chain.TicketABI().Unpack(method, data)
		if err != nil {
			panic(err)
		}
		return values
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
