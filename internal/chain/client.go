// Package chain wraps the Subtensor node connection: storage reads,
// extrinsic submission, and finalized-head subscriptions. All transport
// and dispatch errors are converted to the engine's taxonomy at this
// boundary; the engine never sees raw RPC errors.
package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/subtensor-tools/regsniper/internal/engine"
	"github.com/subtensor-tools/regsniper/internal/metrics"
)

const (
	connectAttempts = 5
	connectDelay    = 5 * time.Second
)

// Config identifies the node and subnet the client targets.
type Config struct {
	Endpoint  string
	Netuid    uint16
	SignerPub []byte // coldkey public key, for nonce lookups
}

// Client wraps the gsrpc API plus the chain constants needed for signing.
// The typed gsrpc call wrappers are not context-aware, so one-shot reads
// go through await and subscriptions select on ctx directly.
type Client struct {
	api       *gsrpc.SubstrateAPI
	meta      *types.Metadata
	genesis   types.Hash
	runtime   *types.RuntimeVersion
	netuid    uint16
	netuidArg []byte
	signerPub []byte
	log       *zap.Logger
}

// New dials the endpoint, retrying a few times since nodes are often
// briefly unreachable during block production, then caches the metadata,
// genesis hash, and runtime version used for signing.
func New(cfg Config, log *zap.Logger) (*Client, error) {
	var (
		api *gsrpc.SubstrateAPI
		err error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		api, err = gsrpc.NewSubstrateAPI(cfg.Endpoint)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			return nil, fmt.Errorf("dial %s after %d attempts: %w", cfg.Endpoint, connectAttempts, err)
		}
		log.Warn("node unreachable, retrying",
			zap.String("endpoint", cfg.Endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(connectDelay)
	}

	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	genesis, err := api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return nil, fmt.Errorf("fetch genesis hash: %w", err)
	}
	rv, err := api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, fmt.Errorf("fetch runtime version: %w", err)
	}
	netuidArg, err := codec.Encode(types.NewU16(cfg.Netuid))
	if err != nil {
		return nil, fmt.Errorf("encode netuid: %w", err)
	}

	log.Info("connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.Uint32("spec_version", uint32(rv.SpecVersion)))

	return &Client{
		api:       api,
		meta:      meta,
		genesis:   genesis,
		runtime:   rv,
		netuid:    cfg.Netuid,
		netuidArg: netuidArg,
		signerPub: cfg.SignerPub,
		log:       log,
	}, nil
}

// await runs a blocking gsrpc call in a goroutine and unblocks the
// caller when ctx is done. The call itself keeps running until the
// transport returns; only the wait is cancelled.
func await(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// BurnCost reads the current SubtensorModule.Burn value for the
// configured netuid: the cost, in RAO, to register right now.
func (c *Client) BurnCost(ctx context.Context) (uint64, error) {
	key, err := types.CreateStorageKey(c.meta, palletSubtensor, storageBurn, c.netuidArg)
	if err != nil {
		return 0, fmt.Errorf("storage key %s.%s: %w", palletSubtensor, storageBurn, err)
	}
	var burn types.U64
	err = await(ctx, func() error {
		ok, err := c.api.RPC.State.GetStorageLatest(key, &burn)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no burn entry for netuid %d", c.netuid)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read %s.%s: %w", palletSubtensor, storageBurn, err)
	}
	return uint64(burn), nil
}

// AccountNonce returns the signer account's next transaction nonce.
func (c *Client) AccountNonce(ctx context.Context) (uint32, error) {
	return c.nonceOf(ctx, c.signerPub)
}

func (c *Client) nonceOf(ctx context.Context, pub []byte) (uint32, error) {
	key, err := types.CreateStorageKey(c.meta, palletSystem, storageAccount, pub)
	if err != nil {
		return 0, fmt.Errorf("storage key %s.%s: %w", palletSystem, storageAccount, err)
	}
	// Only the nonce prefix of the AccountInfo record is needed; the
	// balance layout varies across runtime versions.
	var info struct {
		Nonce types.U32
	}
	var onChain bool
	err = await(ctx, func() error {
		ok, err := c.api.RPC.State.GetStorageLatest(key, &info)
		onChain = ok
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read %s.%s: %w", palletSystem, storageAccount, err)
	}
	if !onChain {
		return 0, nil // account not yet on chain
	}
	return uint32(info.Nonce), nil
}

// signatureOptions assembles the signing payload constants. Extrinsics
// are immortal so a registration cannot silently expire while the watch
// is in progress.
func (c *Client) signatureOptions(nonce uint32) types.SignatureOptions {
	return types.SignatureOptions{
		BlockHash:          c.genesis,
		Era:                types.ExtrinsicEra{IsImmortalEra: true},
		GenesisHash:        c.genesis,
		Nonce:              types.NewUCompactFromUInt(uint64(nonce)),
		SpecVersion:        c.runtime.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: c.runtime.TransactionVersion,
	}
}

// Submit sends a signed extrinsic and watches it to finalization.
func (c *Client) Submit(ctx context.Context, tx engine.SignedTx) (*engine.Receipt, error) {
	ext, ok := tx.(types.Extrinsic)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return c.watchExtrinsic(ctx, ext)
}

// SubmitNetworkRegistration signs and submits one register_network
// extrinsic with the given pair and waits for finalization.
func (c *Client) SubmitNetworkRegistration(ctx context.Context, pair signature.KeyringPair) (*engine.Receipt, error) {
	nonce, err := c.nonceOf(ctx, pair.PublicKey)
	if err != nil {
		return nil, err
	}
	call, err := types.NewCall(c.meta, callRegisterNetwork)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", callRegisterNetwork, err)
	}
	ext := types.NewExtrinsic(call)
	if err := ext.Sign(pair, c.signatureOptions(nonce)); err != nil {
		return nil, fmt.Errorf("sign extrinsic: %w", err)
	}
	return c.watchExtrinsic(ctx, ext)
}

func (c *Client) watchExtrinsic(ctx context.Context, ext types.Extrinsic) (*engine.Receipt, error) {
	enc, err := codec.Encode(ext)
	if err != nil {
		return nil, fmt.Errorf("encode extrinsic: %w", err)
	}
	extHash := blake2b.Sum256(enc)

	sub, err := c.api.RPC.Author.SubmitAndWatchExtrinsic(ext)
	if err != nil {
		return nil, classifySubmit(err)
	}
	defer sub.Unsubscribe()

	finalizeStart := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case st := <-sub.Chan():
			switch {
			case st.IsFinalized:
				metrics.PhaseDuration.WithLabelValues("finalize").Observe(time.Since(finalizeStart).Seconds())
				return &engine.Receipt{
					BlockHash:     st.AsFinalized.Hex(),
					ExtrinsicHash: "0x" + hex.EncodeToString(extHash[:]),
				}, nil
			case st.IsInBlock:
				c.log.Info("extrinsic in block", zap.String("block", st.AsInBlock.Hex()))
			case st.IsDropped:
				return nil, &engine.SubmitError{Reason: "dropped from transaction pool", Retryable: true}
			case st.IsUsurped:
				return nil, &engine.SubmitError{Reason: "usurped by a competing transaction", Retryable: true}
			case st.IsFinalityTimeout:
				return nil, &engine.SubmitError{Reason: "finality timeout", Retryable: true}
			case st.IsInvalid:
				return nil, &engine.SubmitError{Reason: "invalid transaction", Retryable: false}
			}
		case err := <-sub.Err():
			return nil, classifySubmit(err)
		}
	}
}

// NeuronUID resolves the UID the subnet assigned to a hotkey, if any.
func (c *Client) NeuronUID(ctx context.Context, hotkey []byte) (uint16, bool, error) {
	acct, err := types.NewAccountID(hotkey)
	if err != nil {
		return 0, false, fmt.Errorf("hotkey account id: %w", err)
	}
	hotArg, err := codec.Encode(*acct)
	if err != nil {
		return 0, false, fmt.Errorf("encode hotkey: %w", err)
	}
	key, err := types.CreateStorageKey(c.meta, palletSubtensor, storageUids, c.netuidArg, hotArg)
	if err != nil {
		return 0, false, fmt.Errorf("storage key %s.%s: %w", palletSubtensor, storageUids, err)
	}
	var (
		uid   types.U16
		found bool
	)
	err = await(ctx, func() error {
		ok, err := c.api.RPC.State.GetStorageLatest(key, &uid)
		found = ok
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("read %s.%s: %w", palletSubtensor, storageUids, err)
	}
	return uint16(uid), found, nil
}

// PendingExtrinsicCount returns the node's current transaction pool depth.
func (c *Client) PendingExtrinsicCount(ctx context.Context) (int, error) {
	var pending []types.Extrinsic
	err := await(ctx, func() error {
		var err error
		pending, err = c.api.RPC.Author.PendingExtrinsics()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("author_pendingExtrinsics: %w", err)
	}
	return len(pending), nil
}

const (
	baseBlockTime   = 12 * time.Second
	maxBlockTime    = 60 * time.Second
	blockSampleSize = 10
	maxSampleWait   = 120 * time.Second
)

// EstimateBlockTime samples finalized blocks and returns the average
// production time, clamped to [12s, 60s]. Hitting a bound usually means
// unusual network conditions.
func (c *Client) EstimateBlockTime(ctx context.Context) (time.Duration, error) {
	sub, err := c.api.RPC.Chain.SubscribeFinalizedHeads()
	if err != nil {
		return 0, fmt.Errorf("subscribe finalized heads: %w", err)
	}
	defer sub.Unsubscribe()

	deadline := time.NewTimer(maxSampleWait)
	defer deadline.Stop()

	// The first notification is the current head, not a freshly produced
	// block; it only sets the baseline.
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-deadline.C:
		return 0, fmt.Errorf("block sampling exceeded %s", maxSampleWait)
	case <-sub.Chan():
	case err := <-sub.Err():
		return 0, fmt.Errorf("finalized heads stream: %w", err)
	}

	start := time.Now()
	for seen := 0; seen < blockSampleSize; {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-deadline.C:
			return 0, fmt.Errorf("block sampling exceeded %s", maxSampleWait)
		case <-sub.Chan():
			seen++
		case err := <-sub.Err():
			return 0, fmt.Errorf("finalized heads stream: %w", err)
		}
	}

	est := time.Since(start) / blockSampleSize
	if est < baseBlockTime || est > maxBlockTime {
		c.log.Warn("estimated block time out of bounds, clamping",
			zap.Duration("estimate", est))
	}
	if est < baseBlockTime {
		est = baseBlockTime
	}
	if est > maxBlockTime {
		est = maxBlockTime
	}
	c.log.Info("estimated block time",
		zap.Duration("block_time", est),
		zap.Int("sample", blockSampleSize))
	return est, nil
}

// StreamFinalized invokes fn for every finalized block until fn returns
// an error or ctx is cancelled.
func (c *Client) StreamFinalized(ctx context.Context, fn func(number uint64, hash string) error) error {
	sub, err := c.api.RPC.Chain.SubscribeFinalizedHeads()
	if err != nil {
		return fmt.Errorf("subscribe finalized heads: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case head := <-sub.Chan():
			hash, err := c.api.RPC.Chain.GetBlockHash(uint64(head.Number))
			if err != nil {
				return fmt.Errorf("block hash for #%d: %w", head.Number, err)
			}
			if err := fn(uint64(head.Number), hash.Hex()); err != nil {
				return err
			}
		case err := <-sub.Err():
			return fmt.Errorf("finalized heads stream: %w", err)
		}
	}
}

// weightParts mirrors the runtime's two-dimensional Weight.
type weightParts struct {
	RefTime   types.UCompact
	ProofSize types.UCompact
}

// consumedWeight mirrors the System.BlockWeight storage value
// (PerDispatchClass<Weight>).
type consumedWeight struct {
	Normal      weightParts
	Operational weightParts
	Mandatory   weightParts
}

// BlockWeight returns the total ref-time weight consumed by a block.
func (c *Client) BlockWeight(ctx context.Context, blockHash string) (uint64, error) {
	h, err := types.NewHashFromHexString(blockHash)
	if err != nil {
		return 0, fmt.Errorf("parse block hash: %w", err)
	}
	key, err := types.CreateStorageKey(c.meta, palletSystem, storageBlockWeight)
	if err != nil {
		return 0, fmt.Errorf("storage key %s.%s: %w", palletSystem, storageBlockWeight, err)
	}
	var w consumedWeight
	err = await(ctx, func() error {
		ok, err := c.api.RPC.State.GetStorage(key, &w, h)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no block weight recorded at %s", blockHash)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read %s.%s: %w", palletSystem, storageBlockWeight, err)
	}

	total := new(big.Int)
	for _, part := range []types.UCompact{w.Normal.RefTime, w.Operational.RefTime, w.Mandatory.RefTime} {
		total.Add(total, (*big.Int)(&part))
	}
	return total.Uint64(), nil
}
