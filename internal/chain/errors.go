package chain

import (
	"strings"

	"github.com/subtensor-tools/regsniper/internal/engine"
)

// Pool rejections that may clear on a later attempt. Checked before the
// terminal list because node messages prefix them with "Invalid
// Transaction".
// Nonce races surface as Stale ("Transaction is outdated") or Future
// ("Transaction will be valid in the future"); there is no message that
// merely mentions the word nonce.
var retryableReasons = []string{
	"Priority is too low",
	"Transaction is outdated",
	"Transaction is temporarily banned",
	"Transaction will be valid in the future",
	"Transaction Already Imported",
	"stale",
	"TooManyRegistrationsThisBlock",
	"TooManyRegistrationsThisInterval",
}

// Rejections that cannot change within this run.
var terminalReasons = []string{
	"HotKeyAlreadyRegisteredInSubNet",
	"NotEnoughBalanceToPayRegistration",
	"NetworkDoesNotExist",
	"SubNetworkDoesNotExist",
	"BadOrigin",
	"bad signature",
	"Inability to pay some fees",
}

// classifySubmit maps a raw node error onto the engine's taxonomy.
// Unknown errors are treated as retryable; the guard bounds retries to
// one regardless.
func classifySubmit(err error) *engine.SubmitError {
	msg := err.Error()
	for _, r := range retryableReasons {
		if containsFold(msg, r) {
			return &engine.SubmitError{Reason: msg, Retryable: true}
		}
	}
	for _, r := range terminalReasons {
		if containsFold(msg, r) {
			return &engine.SubmitError{Reason: msg, Retryable: false}
		}
	}
	return &engine.SubmitError{Reason: msg, Retryable: true}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
