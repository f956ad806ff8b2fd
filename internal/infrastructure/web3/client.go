package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pali-wallet/palid/internal/core/ports"
	"github.com/pali-wallet/palid/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const (
	etherDecimals   = 18
	nativeTxGasUnit = 21000
)

var (
	ErrInvalidAddress = errors.New("invalid evm address")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
)

// backend is the subset of the ethclient api used by the client.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

type client struct {
	backend backend
	chainID *big.Int
	cb      *gobreaker.CircuitBreaker
}

// NewClient connects to the JSON-RPC endpoint of an EVM network with the
// given chain id.
func NewClient(ctx context.Context, rpcURL string, chainID int64) (ports.Web3Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("missing web3 rpc url")
	}
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to web3 rpc: %w", err)
	}
	return newClient(c, chainID), nil
}

func newClient(b backend, chainID int64) *client {
	return &client{
		backend: b,
		chainID: big.NewInt(chainID),
		cb:      circuitbreaker.NewCircuitBreaker("web3"),
	}
}

func (c *client) ChainID() int64 {
	return c.chainID.Int64()
}

func (c *client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if !common.IsHexAddress(address) {
		return decimal.Zero, ErrInvalidAddress
	}
	res, err := c.cb.Execute(func() (interface{}, error) {
		return c.backend.BalanceAt(ctx, common.HexToAddress(address), nil)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(res.(*big.Int), -etherDecimals), nil
}

// SendNative signs with key an EIP-155 transfer of amount ether units and
// broadcasts it.
func (c *client) SendNative(
	ctx context.Context, key *ecdsa.PrivateKey, to string, amount decimal.Decimal,
) (string, error) {
	if !common.IsHexAddress(to) {
		return "", ErrInvalidAddress
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if key == nil {
		return "", fmt.Errorf("missing signing key")
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	toAddr := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amount.Shift(etherDecimals).BigInt(),
		Gas:      nativeTxGasUnit,
		GasPrice: gasPrice,
	})
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign tx: %w", err)
	}
	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send tx: %w", err)
	}

	hash := signedTx.Hash().Hex()
	log.WithFields(log.Fields{
		"from":  from.Hex(),
		"to":    toAddr.Hex(),
		"nonce": nonce,
	}).Debugf("sent web3 tx %s", hash)
	return hash, nil
}

func (c *client) GetConfirmations(ctx context.Context, txHash string) (int, error) {
	receipt, err := c.backend.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, nil
		}
		return 0, err
	}
	if receipt.BlockNumber == nil {
		return 0, nil
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return 0, fmt.Errorf("tx %s reverted", txHash)
	}

	head, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	included := receipt.BlockNumber.Uint64()
	if head < included {
		return 0, nil
	}
	return int(head-included) + 1, nil
}

func (c *client) Close() {
	c.backend.Close()
}
