package cmd

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	vaultflow "github.com/branched-services/go-vaultflow"
)

type viewOutput struct {
	State            string       `json:"state"`
	Account          string       `json:"account,omitempty"`
	TokenBalance     string       `json:"tokenBalance"`
	DepositedBalance string       `json:"depositedBalance"`
	NFTCounter       string       `json:"nftCounter"`
	Unavailable      []string     `json:"unavailable,omitempty"`
	Error            *errorOutput `json:"error,omitempty"`
}

type errorOutput struct {
	Action  string `json:"action"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newViewOutput(v vaultflow.View) viewOutput {
	out := viewOutput{
		State:            v.State.String(),
		Account:          v.Account,
		TokenBalance:     v.TokenBalance,
		DepositedBalance: v.DepositedBalance,
		NFTCounter:       v.NFTCounter,
	}
	for _, f := range v.Unavailable {
		out.Unavailable = append(out.Unavailable, string(f))
	}
	if v.LastError != nil {
		out.Error = &errorOutput{
			Action:  string(v.LastError.Action),
			Kind:    v.LastError.Kind.String(),
			Message: v.LastError.Message,
		}
	}
	return out
}

func writeView(cmd *cobra.Command, v vaultflow.View, asJSON bool) error {
	out := newViewOutput(v)
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "state:      %s\n", out.State)
	if out.Account != "" {
		fmt.Fprintf(&b, "account:    %s\n", out.Account)
	}
	rows := []struct {
		label string
		field vaultflow.Field
		value string
	}{
		{"token:", vaultflow.FieldTokenBalance, out.TokenBalance},
		{"deposited:", vaultflow.FieldDepositedBalance, out.DepositedBalance},
		{"nft:", vaultflow.FieldNFTCounter, out.NFTCounter},
	}
	for _, r := range rows {
		value := r.value
		if value == "" {
			value = "-"
		}
		if slices.Contains(v.Unavailable, r.field) {
			value += " (unavailable)"
		}
		fmt.Fprintf(&b, "%-11s %s\n", r.label, value)
	}
	if out.Error != nil {
		fmt.Fprintf(&b, "error:      %s\n", out.Error.Message)
	}

	_, err := fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}
