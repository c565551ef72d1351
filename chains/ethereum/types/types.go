package types

import (
	"github.com/ethereum/go-ethereum/common"

	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

// Types to delineate txs/receipts.
const (
	ContractCreate loadtesttypes.MsgType = "contract_create"
	ContractCall   loadtesttypes.MsgType = "contract_call"
)

// MsgTypeFor distinguishes creation from calls by the absence of a recipient.
func MsgTypeFor(to *common.Address) loadtesttypes.MsgType {
	if to == nil {
		return ContractCreate
	}
	return ContractCall
}
