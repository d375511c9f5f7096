package chain

import "github.com/shopspring/decimal"

// Subtensor pallet, storage, and call names.
const (
	palletSubtensor = "SubtensorModule"
	palletSystem    = "System"

	storageBurn        = "Burn"
	storageUids        = "Uids"
	storageAccount     = "Account"
	storageBlockWeight = "BlockWeight"

	callBurnedRegister  = "SubtensorModule.burned_register"
	callRegisterNetwork = "SubtensorModule.register_network"
)

// RaoPerTao: 1 TAO = 1e9 RAO, the chain's base denomination.
const RaoPerTao = 1_000_000_000

// FormatTAO renders a RAO amount as a TAO decimal string for operator
// output.
func FormatTAO(rao uint64) string {
	return decimal.NewFromUint64(rao).Shift(-9).String()
}
