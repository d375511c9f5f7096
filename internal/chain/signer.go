package chain

import (
	"context"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"

	"github.com/subtensor-tools/regsniper/internal/engine"
)

// Signer builds and signs burned_register extrinsics with the coldkey
// pair. Implements engine.Signer.
type Signer struct {
	client *Client
	pair   signature.KeyringPair
}

func NewSigner(client *Client, pair signature.KeyringPair) *Signer {
	return &Signer{client: client, pair: pair}
}

func (s *Signer) Sign(ctx context.Context, req engine.Request, nonce uint32) (engine.SignedTx, error) {
	hotkey, err := types.NewAccountID(req.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("hotkey account id: %w", err)
	}
	call, err := types.NewCall(s.client.meta, callBurnedRegister, types.NewU16(req.Netuid), *hotkey)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", callBurnedRegister, err)
	}
	ext := types.NewExtrinsic(call)
	if err := ext.Sign(s.pair, s.client.signatureOptions(nonce)); err != nil {
		return nil, fmt.Errorf("sign extrinsic: %w", err)
	}
	return ext, nil
}
