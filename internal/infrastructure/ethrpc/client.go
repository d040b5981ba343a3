// Package ethrpc is a minimal JSON-RPC 2.0 client for the handful of
// read methods the auditor needs. It deliberately avoids a full client
// stack: one POST per call, no batching, no websockets.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"txaudit/internal/domain"
)

const defaultTimeout = 30 * time.Second

// errNullResult marks a JSON-RPC response whose result is null. Object
// lookups translate it to domain.ErrNotFound; for methods that must
// always answer it stays a provider fault.
var errNullResult = errors.New("rpc result is null")

type Client struct {
	name       string
	url        string
	httpClient *http.Client
	idCounter  uint64
}

type Config struct {
	// Name labels the provider in errors and reports, e.g. "primary".
	Name string
	URL  string
	// Timeout bounds each HTTP round trip. Zero means 30s.
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("rpc url is required")
	}
	name := cfg.Name
	if name == "" {
		name = "rpc"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		name:       name,
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the provider label given at construction.
func (c *Client) Name() string { return c.name }

// URL returns the endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// ChainID asks the provider which chain it serves.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var result string
	if err := c.call(ctx, "eth_chainId", []any{}, &result); err != nil {
		if errors.Is(err, errNullResult) {
			return 0, fmt.Errorf("%s: provider returned no chain id", c.name)
		}
		return 0, err
	}
	id, err := hexutil.DecodeUint64(result)
	if err != nil {
		return 0, fmt.Errorf("%s: malformed chain id %q: %w", c.name, result, err)
	}
	return id, nil
}

// TransactionByHash fetches the signed transaction object, returning
// domain.ErrNotFound for unknown hashes.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*domain.Transaction, error) {
	var raw rpcTransaction
	if err := c.call(ctx, "eth_getTransactionByHash", []any{hash.Hex()}, &raw); err != nil {
		if errors.Is(err, errNullResult) {
			return nil, fmt.Errorf("transaction %s: %w", hash.Hex(), domain.ErrNotFound)
		}
		return nil, err
	}
	return raw.toDomain()
}

// ReceiptByHash fetches the transaction receipt, returning
// domain.ErrNotFound when the transaction is pending or unknown.
func (c *Client) ReceiptByHash(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	var raw rpcReceipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []any{hash.Hex()}, &raw); err != nil {
		if errors.Is(err, errNullResult) {
			return nil, fmt.Errorf("receipt %s: %w", hash.Hex(), domain.ErrNotFound)
		}
		return nil, err
	}
	return raw.toDomain()
}

// BlockTimestamp returns the unix timestamp of the block header for
// the given number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	var raw rpcBlock
	if err := c.call(ctx, "eth_getBlockByNumber", []any{hexutil.EncodeUint64(number), false}, &raw); err != nil {
		if errors.Is(err, errNullResult) {
			return 0, fmt.Errorf("block %d: %w", number, domain.ErrNotFound)
		}
		return 0, err
	}
	return quantityToUint64("timestamp", raw.Timestamp)
}

type rpcTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	BlockNumber string `json:"blockNumber"`
	Nonce       string `json:"nonce"`
	Gas         string `json:"gas"`
	GasPrice    string `json:"gasPrice"`
	Value       string `json:"value"`
}

func (r rpcTransaction) toDomain() (*domain.Transaction, error) {
	tx := &domain.Transaction{
		Hash: strings.ToLower(r.Hash),
		From: strings.ToLower(r.From),
		To:   strings.ToLower(r.To),
	}
	var err error
	// blockNumber is null while the transaction is pending.
	if r.BlockNumber != "" {
		if tx.BlockNumber, err = quantityToUint64("blockNumber", r.BlockNumber); err != nil {
			return nil, err
		}
	}
	if r.Nonce != "" {
		if tx.Nonce, err = quantityToUint64("nonce", r.Nonce); err != nil {
			return nil, err
		}
	}
	if r.Gas != "" {
		if tx.Gas, err = quantityToUint64("gas", r.Gas); err != nil {
			return nil, err
		}
	}
	if r.GasPrice != "" {
		if tx.GasPrice, err = quantityToBig("gasPrice", r.GasPrice); err != nil {
			return nil, err
		}
	}
	if r.Value != "" {
		if tx.Value, err = quantityToBig("value", r.Value); err != nil {
			return nil, err
		}
	}
	return tx, nil
}

type rpcReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	BlockNumber       string `json:"blockNumber"`
	BlockHash         string `json:"blockHash"`
	TransactionIndex  string `json:"transactionIndex"`
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
	ContractAddress   string `json:"contractAddress"`
}

func (r rpcReceipt) toDomain() (*domain.Receipt, error) {
	receipt := &domain.Receipt{
		TxHash:          strings.ToLower(r.TransactionHash),
		BlockHash:       strings.ToLower(r.BlockHash),
		ContractAddress: strings.ToLower(r.ContractAddress),
	}
	// Pre-Byzantium receipts carry a state root instead of a status.
	// The commitment is undefined for those, so reject early.
	if r.Status == "" {
		return nil, fmt.Errorf("receipt %s has no status field", r.TransactionHash)
	}
	var err error
	if receipt.Status, err = quantityToUint64("status", r.Status); err != nil {
		return nil, err
	}
	if receipt.BlockNumber, err = quantityToUint64("blockNumber", r.BlockNumber); err != nil {
		return nil, err
	}
	if receipt.GasUsed, err = quantityToUint64("gasUsed", r.GasUsed); err != nil {
		return nil, err
	}
	if r.TransactionIndex != "" {
		if receipt.TxIndex, err = quantityToUint64("transactionIndex", r.TransactionIndex); err != nil {
			return nil, err
		}
	}
	if r.CumulativeGasUsed != "" {
		if receipt.CumulativeGasUsed, err = quantityToUint64("cumulativeGasUsed", r.CumulativeGasUsed); err != nil {
			return nil, err
		}
	}
	if r.EffectiveGasPrice != "" {
		if receipt.EffectiveGasPrice, err = quantityToBig("effectiveGasPrice", r.EffectiveGasPrice); err != nil {
			return nil, err
		}
	}
	return receipt, nil
}

type rpcBlock struct {
	Number    string `json:"number"`
	Timestamp string `json:"timestamp"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	id := atomic.AddUint64(&c.idCounter, 1)
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", c.name, method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s: rpc status %d", c.name, method, resp.StatusCode)
	}

	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%s: %s: %w", c.name, method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s: %s: rpc error %d: %s", c.name, method, decoded.Error.Code, decoded.Error.Message)
	}
	if result == nil {
		return nil
	}
	if len(decoded.Result) == 0 || bytes.Equal(decoded.Result, []byte("null")) {
		return errNullResult
	}
	return json.Unmarshal(decoded.Result, result)
}

func quantityToUint64(field, value string) (uint64, error) {
	n, err := hexutil.DecodeUint64(value)
	if err != nil {
		return 0, fmt.Errorf("malformed %s %q: %w", field, value, err)
	}
	return n, nil
}

func quantityToBig(field, value string) (*big.Int, error) {
	n, err := hexutil.DecodeBig(value)
	if err != nil {
		return nil, fmt.Errorf("malformed %s %q: %w", field, value, err)
	}
	return n, nil
}
