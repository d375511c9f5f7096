package chain

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifySubmit(t *testing.T) {
	cases := []struct {
		name      string
		msg       string
		retryable bool
	}{
		{"priority too low", "Invalid Transaction: Priority is too low: (1025 vs 1025)", true},
		{"outdated", "Invalid Transaction: Transaction is outdated", true},
		{"stale", "Transaction pool error: stale extrinsic", true},
		{"future nonce", "Invalid Transaction: Transaction will be valid in the future", true},
		{"already imported", "Transaction pool error: Transaction Already Imported", true},
		{"registration rate block", "Custom error: TooManyRegistrationsThisBlock", true},
		{"registration rate interval", "Custom error: TooManyRegistrationsThisInterval", true},
		{"temporarily banned", "Transaction is temporarily banned", true},
		{"already registered", "Custom error: HotKeyAlreadyRegisteredInSubNet", false},
		{"insufficient balance", "Custom error: NotEnoughBalanceToPayRegistration", false},
		{"missing network", "Custom error: SubNetworkDoesNotExist", false},
		{"bad origin", "Dispatch error: BadOrigin", false},
		{"bad signature", "Invalid Transaction: bad signature", false},
		{"cannot pay fees", "Invalid Transaction: Inability to pay some fees", false},
		{"terminal mentioning nonce stays terminal", "Custom error: HotKeyAlreadyRegisteredInSubNet (account nonce 7)", false},
		{"unknown defaults retryable", "websocket: close 1006 (abnormal closure)", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			serr := classifySubmit(errors.New(tc.msg))
			if serr.Retryable != tc.retryable {
				t.Errorf("classify(%q).Retryable = %v, want %v", tc.msg, serr.Retryable, tc.retryable)
			}
			if serr.Reason != tc.msg {
				t.Errorf("reason: got %q want %q", serr.Reason, tc.msg)
			}
		})
	}
}

func TestClassifySubmit_CaseInsensitive(t *testing.T) {
	serr := classifySubmit(fmt.Errorf("custom error: hotkeyalreadyregisteredinsubnet"))
	if serr.Retryable {
		t.Error("lower-cased terminal reason classified as retryable")
	}
}
