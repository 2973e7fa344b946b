package devchain

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"

	vaultflow "github.com/branched-services/go-vaultflow"
)

var (
	errInsufficientBalance   = errors.New("insufficient balance")
	errInsufficientAllowance = errors.New("insufficient allowance")
	errUnsupportedMethod     = errors.New("unsupported method")
)

// view evaluates a read-only method. Callers hold c.mu.
func (c *Chain) view(contractName, method string, args []any) (*big.Int, error) {
	switch contractName + "." + method {
	case vaultflow.TokenContract + ".balanceOf":
		return new(big.Int).Set(amountOf(c.balances, args[0].(common.Address))), nil
	case vaultflow.VaultContract + ".deposits":
		return new(big.Int).Set(amountOf(c.deposits, args[0].(common.Address))), nil
	case vaultflow.NFTContract + ".tokenCounter":
		return new(big.Int).Set(c.nftCounter), nil
	case vaultflow.NFTContract + ".balanceOf":
		return new(big.Int).Set(amountOf(c.nftOwned, args[0].(common.Address))), nil
	}
	return nil, errors.Wrapf(errUnsupportedMethod, "%s.%s", contractName, method)
}

// apply executes a state-changing method sent by from. A non-nil error
// reverts the call and leaves state untouched. Callers hold c.mu.
func (c *Chain) apply(contractName, method string, from common.Address, args []any) error {
	switch contractName + "." + method {
	case vaultflow.TokenContract + ".mintToken":
		to, amount := args[0].(common.Address), args[1].(*big.Int)
		c.credit(c.balances, to, amount)
		return nil

	case vaultflow.TokenContract + ".approve":
		spender, amount := args[0].(common.Address), args[1].(*big.Int)
		c.setAllowance(from, spender, amount)
		return nil

	case vaultflow.TokenContract + ".transferFrom":
		owner, recipient, amount := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
		return c.transferFrom(from, owner, recipient, amount)

	case vaultflow.VaultContract + ".deposit":
		amount := args[0].(*big.Int)
		vault := c.deployment.Vault.Address
		if err := c.transferFrom(vault, from, vault, amount); err != nil {
			return err
		}
		c.credit(c.deposits, from, amount)
		return nil
	}
	return errors.Wrapf(errUnsupportedMethod, "%s.%s", contractName, method)
}

// transferFrom moves amount from owner to recipient on behalf of spender.
func (c *Chain) transferFrom(spender, owner, recipient common.Address, amount *big.Int) error {
	allowance := c.allowance(owner, spender)
	if allowance.Cmp(amount) < 0 {
		return errors.Wrapf(errInsufficientAllowance, "%s has %s, needs %s", spender.Hex(), allowance, amount)
	}
	balance := amountOf(c.balances, owner)
	if balance.Cmp(amount) < 0 {
		return errors.Wrapf(errInsufficientBalance, "%s has %s, needs %s", owner.Hex(), balance, amount)
	}

	c.setAllowance(owner, spender, new(big.Int).Sub(allowance, amount))
	c.balances[owner] = new(big.Int).Sub(balance, amount)
	c.credit(c.balances, recipient, amount)
	return nil
}

func (c *Chain) credit(m map[common.Address]*big.Int, account common.Address, amount *big.Int) {
	m[account] = new(big.Int).Add(amountOf(m, account), amount)
}

func (c *Chain) allowance(owner, spender common.Address) *big.Int {
	if byOwner, ok := c.allowances[owner]; ok {
		return amountOf(byOwner, spender)
	}
	return new(big.Int)
}

func (c *Chain) setAllowance(owner, spender common.Address, amount *big.Int) {
	byOwner, ok := c.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]*big.Int)
		c.allowances[owner] = byOwner
	}
	byOwner[spender] = new(big.Int).Set(amount)
}
