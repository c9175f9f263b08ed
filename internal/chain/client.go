package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"nft-ticket-marketplace/config"
	apperrors "nft-ticket-marketplace/pkg/app_errors"
	"nft-ticket-marketplace/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client 外部區塊鏈 RPC / 合約呼叫介面
type Client interface {
	// 唯讀呼叫
	Read(ctx context.Context, contract common.Address, method string, args ...any) ([]any, error)
	// 寫入：prompt 在要求簽章之前呼叫
	Write(ctx context.Context, contract common.Address, method string, value *big.Int, prompt func(), args ...any) (common.Hash, error)
	// 等待交易上鏈
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	// 查詢事件 log，topics 依序對應 indexed 參數
	GetLogs(ctx context.Context, contract common.Address, event string, fromBlock, toBlock *big.Int, topics ...[]any) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Contracts 合約地址，只當作不透明常數
type Contracts struct {
	Ticket common.Address
	Market common.Address
}

func NewContracts(cfg *config.ChainConfig) (Contracts, error) {
	if !common.IsHexAddress(cfg.TicketContract) {
		return Contracts{}, fmt.Errorf("invalid ticket contract address %q", cfg.TicketContract)
	}
	if !common.IsHexAddress(cfg.MarketContract) {
		return Contracts{}, fmt.Errorf("invalid market contract address %q", cfg.MarketContract)
	}
	return Contracts{
		Ticket: common.HexToAddress(cfg.TicketContract),
		Market: common.HexToAddress(cfg.MarketContract),
	}, nil
}

type EthClient struct {
	rpc       *ethclient.Client
	abis      map[common.Address]abi.ABI
	signer    Signer
	chainID   *big.Int
	pollEvery time.Duration
	log       *zap.Logger
}

func Dial(ctx context.Context, cfg *config.ChainConfig, contracts Contracts, signer Signer) (*EthClient, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
	}

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if chainID.Int64() != cfg.ChainID {
		rpc.Close()
		return nil, fmt.Errorf("rpc chain id %s does not match configured %d", chainID, cfg.ChainID)
	}

	pollEvery := cfg.ReceiptPollInterval
	if pollEvery <= 0 {
		pollEvery = 2 * time.Second
	}

	return &EthClient{
		rpc: rpc,
		abis: map[common.Address]abi.ABI{
			contracts.Ticket: ticketABI,
			contracts.Market: marketABI,
		},
		signer:    signer,
		chainID:   chainID,
		pollEvery: pollEvery,
		log:       logger.WithComponent("chain"),
	}, nil
}

func (c *EthClient) Close() {
	c.rpc.Close()
}

func (c *EthClient) abiFor(contract common.Address) (abi.ABI, error) {
	parsed, ok := c.abis[contract]
	if !ok {
		return abi.ABI{}, fmt.Errorf("no abi registered for %s", contract.Hex())
	}
	return parsed, nil
}

func (c *EthClient) Read(ctx context.Context, contract common.Address, method string, args ...any) ([]any, error) {
	parsed, err := c.abiFor(contract)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.rpc.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", apperrors.ErrMalformedChainData, method, err)
	}
	return values, nil
}

func (c *EthClient) Write(ctx context.Context, contract common.Address, method string, value *big.Int, prompt func(), args ...any) (common.Hash, error) {
	if c.signer == nil {
		return common.Hash{}, apperrors.ErrWalletNotConnected
	}
	parsed, err := c.abiFor(contract)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}

	from := c.signer.Address()
	nonce, err := c.rpc.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := c.rpc.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas price: %w", err)
	}
	// 模擬執行：合約 revert 會在這裡直接回報
	gas, err := c.rpc.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &contract,
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas for %s: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &contract,
		Value:    value,
		Data:     data,
	})

	if prompt != nil {
		prompt()
	}
	signed, err := c.signer.SignTx(ctx, tx, c.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send %s: %w", method, err)
	}

	c.log.Info("transaction sent",
		zap.String("method", method),
		zap.String("hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
	)
	return signed.Hash(), nil
}

// WaitForReceipt 輪詢直到取得 receipt 或 ctx 結束，沒有額外 timeout
func (c *EthClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		receipt, err := c.rpc.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.log.Debug("receipt lookup failed, retrying", zap.String("hash", hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EthClient) GetLogs(ctx context.Context, contract common.Address, event string, fromBlock, toBlock *big.Int, topics ...[]any) ([]types.Log, error) {
	parsed, err := c.abiFor(contract)
	if err != nil {
		return nil, err
	}
	query, err := FilterQuery(parsed, contract, event, fromBlock, toBlock, topics...)
	if err != nil {
		return nil, err
	}
	logs, err := c.rpc.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter %s logs: %w", event, err)
	}
	return logs, nil
}

func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

// FilterQuery 第一個 topic 固定為事件簽章，其後為 indexed 參數過濾條件
func FilterQuery(parsed abi.ABI, contract common.Address, event string, fromBlock, toBlock *big.Int, topics ...[]any) (ethereum.FilterQuery, error) {
	ev, ok := parsed.Events[event]
	if !ok {
		return ethereum.FilterQuery{}, fmt.Errorf("unknown event %s", event)
	}
	indexed, err := abi.MakeTopics(topics...)
	if err != nil {
		return ethereum.FilterQuery{}, fmt.Errorf("topics for %s: %w", event, err)
	}
	return ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: []common.Address{contract},
		Topics:    append([][]common.Hash{{ev.ID}}, indexed...),
	}, nil
}
