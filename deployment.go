package vaultflow

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Contract names used in descriptors, plans and logs.
const (
	TokenContract = "token"
	VaultContract = "vault"
	NFTContract   = "nft"
)

// Default deployment addresses.
const (
	DefaultTokenAddress = "0x7A33e105B4C3f8Fd7275AA70C6eeB3B98b88789A"
	DefaultVaultAddress = "0x4978605A46C2f89CFa44643639684d81A11f8dc8"
)

// TokenFragments is the token ABI surface.
var TokenFragments = []string{
	"function approve(address spender, uint256 amount) external returns (bool)",
	"function mintToken(address _to,uint256 _amount) public",
	"function balanceOf(address account) external view returns (uint256)",
	"function transferFrom(address sender, address recipient, uint256 amount) external returns (bool)",
}

// VaultFragments is the vault ABI surface.
var VaultFragments = []string{
	"function deposit(uint256 amount) external",
	"function deposits(address account) external view returns (uint256)",
}

// NFTFragments is the NFT ABI surface.
var NFTFragments = []string{
	"function tokenCounter() external view returns (uint256)",
	"function balanceOf(address account) external view returns (uint256)",
}

// Deployment is the fixed contract configuration a session works against.
type Deployment struct {
	Token Descriptor
	Vault Descriptor
	NFT   Descriptor

	// MintAmount and DepositAmount are raw quantities, already scaled.
	MintAmount    *big.Int
	DepositAmount *big.Int

	Decimals uint8
}

// NewDeployment builds a deployment for the given contract addresses with
// the standard ABI fragments and a mint/deposit amount of 10000 tokens. A
// zero NFT address leaves the NFT counter unconfigured.
func NewDeployment(token, vault, nft common.Address) (Deployment, error) {
	tokenDesc, err := NewDescriptor(TokenContract, token, ReadWrite, TokenFragments...)
	if err != nil {
		return Deployment{}, fmt.Errorf("token descriptor: %w", err)
	}
	vaultDesc, err := NewDescriptor(VaultContract, vault, ReadWrite, VaultFragments...)
	if err != nil {
		return Deployment{}, fmt.Errorf("vault descriptor: %w", err)
	}
	nftDesc, err := NewDescriptor(NFTContract, nft, ReadOnly, NFTFragments...)
	if err != nil {
		return Deployment{}, fmt.Errorf("nft descriptor: %w", err)
	}

	amount := MustParseUnits("10000", DefaultDecimals)
	return Deployment{
		Token:         tokenDesc,
		Vault:         vaultDesc,
		NFT:           nftDesc,
		MintAmount:    amount,
		DepositAmount: new(big.Int).Set(amount),
		Decimals:      DefaultDecimals,
	}, nil
}

// DefaultDeployment returns the deployment with the default token and vault
// addresses. The NFT address must be configured separately.
func DefaultDeployment() Deployment {
	d, err := NewDeployment(
		common.HexToAddress(DefaultTokenAddress),
		common.HexToAddress(DefaultVaultAddress),
		common.Address{},
	)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate checks that the deployment is usable.
func (d Deployment) Validate() error {
	if d.Token.Address == (common.Address{}) {
		return fmt.Errorf("vaultflow: token address is not configured")
	}
	if d.Vault.Address == (common.Address{}) {
		return fmt.Errorf("vaultflow: vault address is not configured")
	}
	if d.MintAmount == nil || d.MintAmount.Sign() <= 0 {
		return fmt.Errorf("vaultflow: mint amount must be positive")
	}
	if d.DepositAmount == nil || d.DepositAmount.Sign() <= 0 {
		return fmt.Errorf("vaultflow: deposit amount must be positive")
	}
	return nil
}

// MintPlan mints amount tokens to account.
func (d Deployment) MintPlan(account common.Address, amount *big.Int) *Plan {
	return NewPlan("mint").Add(Step{
		Name:     "mintToken",
		Contract: d.Token,
		Method:   "mintToken",
		Args:     []any{account, amount},
	})
}

// DepositPlan approves the vault for amount and then deposits it.
func (d Deployment) DepositPlan(amount *big.Int) *Plan {
	return NewPlan("deposit").
		Add(Step{
			Name:     "approve",
			Contract: d.Token,
			Method:   "approve",
			Args:     []any{d.Vault.Address, amount},
		}).
		Add(Step{
			Name:     "deposit",
			Contract: d.Vault,
			Method:   "deposit",
			Args:     []any{amount},
		})
}
