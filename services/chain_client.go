// services/chain_client.go
package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// SkillCertificate contract surface. The contract itself enforces the
// zero-address and score>100 rejections; callers must not duplicate them.
const skillCertificateABI = `[
	{"type":"function","name":"mintCertificate","stateMutability":"nonpayable","inputs":[{"name":"recipient","type":"address"},{"name":"skill","type":"string"},{"name":"level","type":"string"},{"name":"score","type":"uint256"},{"name":"proofCID","type":"string"},{"name":"metadataURI","type":"string"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCertificateData","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"skill","type":"string"},{"name":"level","type":"string"},{"name":"score","type":"uint256"},{"name":"proofCID","type":"string"},{"name":"issuedAt","type":"uint256"},{"name":"issuer","type":"address"},{"name":"revoked","type":"bool"}]}]},
	{"type":"function","name":"getCertificatesByWallet","stateMutability":"view","inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"isValid","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"CertificateMinted","anonymous":false,"inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"skill","type":"string","indexed":false},{"name":"level","type":"string","indexed":false},{"name":"score","type":"uint256","indexed":false}]}
]`

// MintResult is the confirmed outcome of a mint transaction.
type MintResult struct {
	TokenID uint64
	TxHash  string
}

// ChainCertificateData is the on-chain view of a certificate.
type ChainCertificateData struct {
	Skill    string    `json:"skill"`
	Level    string    `json:"level"`
	Score    int       `json:"score"`
	ProofCID string    `json:"proof_cid"`
	IssuedAt time.Time `json:"issued_at"`
	Issuer   string    `json:"issuer"`
	Revoked  bool      `json:"revoked"`
}

// ChainClient wraps the SkillCertificate soulbound token contract.
type ChainClient interface {
	MintCertificate(ctx context.Context, recipient, skill, level string, score int, proofCID, metadataURI string) (*MintResult, error)
	GetCertificateData(ctx context.Context, tokenID uint64) (*ChainCertificateData, error)
	GetCertificatesByWallet(ctx context.Context, wallet string) ([]uint64, error)
	IsValid(ctx context.Context, tokenID uint64) (bool, error)
}

// EthChainClient talks to the contract over JSON-RPC with the platform
// signing key. Construct once in main and inject; a nil ChainClient means
// the chain is unconfigured and dependent endpoints must fail gracefully.
type EthChainClient struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	abi      abi.ABI
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	address  common.Address

	// Serializes mints: one signing key, one nonce sequence.
	mu sync.Mutex
}

// NewEthChainClient returns (nil, nil) when any chain credential is absent,
// so the process can boot with minting disabled.
func NewEthChainClient(ctx context.Context) (*EthChainClient, error) {
	rpcURL := os.Getenv("CHAIN_RPC_URL")
	privateKey := os.Getenv("PLATFORM_PRIVATE_KEY")
	contractAddr := os.Getenv("CONTRACT_ADDRESS")

	if rpcURL == "" || privateKey == "" || contractAddr == "" {
		log.Println("⚠️  Chain client not configured. Set CHAIN_RPC_URL, PLATFORM_PRIVATE_KEY and CONTRACT_ADDRESS to enable minting")
		return nil, nil
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse platform private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(skillCertificateABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	address := common.HexToAddress(contractAddr)
	return &EthChainClient{
		client:   client,
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		abi:      parsed,
		key:      key,
		chainID:  chainID,
		address:  address,
	}, nil
}

// MintCertificate sends the mint transaction and waits for it to be mined.
// An unconfirmed transaction never produces a result.
func (c *EthChainClient) MintCertificate(ctx context.Context, recipient, skill, level string, score int, proofCID, metadataURI string) (*MintResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(c.key, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: build transactor: %v", ErrRemote, err)
	}
	opts.Context = ctx

	tx, err := c.contract.Transact(opts, "mintCertificate",
		common.HexToAddress(recipient), skill, level, big.NewInt(int64(score)), proofCID, metadataURI)
	if err != nil {
		return nil, fmt.Errorf("%w: mint transaction: %v", ErrRemote, err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for mint confirmation: %v", ErrRemote, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: mint transaction %s reverted", ErrRemote, tx.Hash().Hex())
	}

	mintedTopic := c.abi.Events["CertificateMinted"].ID
	for _, lg := range receipt.Logs {
		if lg.Address == c.address && len(lg.Topics) > 1 && lg.Topics[0] == mintedTopic {
			tokenID := new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64()
			return &MintResult{TokenID: tokenID, TxHash: receipt.TxHash.Hex()}, nil
		}
	}
	return nil, fmt.Errorf("%w: mint transaction %s emitted no CertificateMinted event", ErrRemote, receipt.TxHash.Hex())
}

type certificateTuple struct {
	Skill    string
	Level    string
	Score    *big.Int
	ProofCID string
	IssuedAt *big.Int
	Issuer   common.Address
	Revoked  bool
}

func (c *EthChainClient) GetCertificateData(ctx context.Context, tokenID uint64) (*ChainCertificateData, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCertificateData", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, fmt.Errorf("%w: getCertificateData: %v", ErrRemote, err)
	}

	data := *abi.ConvertType(out[0], new(certificateTuple)).(*certificateTuple)
	return &ChainCertificateData{
		Skill:    data.Skill,
		Level:    data.Level,
		Score:    int(data.Score.Int64()),
		ProofCID: data.ProofCID,
		IssuedAt: time.Unix(data.IssuedAt.Int64(), 0).UTC(),
		Issuer:   data.Issuer.Hex(),
		Revoked:  data.Revoked,
	}, nil
}

func (c *EthChainClient) GetCertificatesByWallet(ctx context.Context, wallet string) ([]uint64, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getCertificatesByWallet", common.HexToAddress(wallet))
	if err != nil {
		return nil, fmt.Errorf("%w: getCertificatesByWallet: %v", ErrRemote, err)
	}

	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	tokenIDs := make([]uint64, 0, len(raw))
	for _, id := range raw {
		tokenIDs = append(tokenIDs, id.Uint64())
	}
	return tokenIDs, nil
}

// IsValid reports whether the token exists and has not been revoked.
// Revocation is one-way on the contract side.
func (c *EthChainClient) IsValid(ctx context.Context, tokenID uint64) (bool, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isValid", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return false, fmt.Errorf("%w: isValid: %v", ErrRemote, err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}
