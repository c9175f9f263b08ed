package apperrors_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		kind apperrors.ErrorKind
	}{
		{"insufficient funds for gas * price + value", apperrors.KindInsufficientFunds},
		{"User rejected the request.", apperrors.KindUserRejected},
		{"MetaMask Tx Signature: User denied transaction signature.", apperrors.KindUserRejected},
		{"execution reverted: Sold out", apperrors.KindReverted},
		{"Internal JSON-RPC error.", apperrors.KindRPCInternalError},
		{"Post \"http://localhost:8545\": dial tcp 127.0.0.1:8545: connect: connection refused", apperrors.KindNetworkError},
		{"something odd happened", apperrors.KindUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, apperrors.Classify(errors.New(c.msg)), c.msg)
	}

	assert.Equal(t, apperrors.KindReverted, apperrors.Classify(fmt.Errorf("receipt 0xabc: %w", apperrors.ErrReceiptReverted)))
	assert.Equal(t, apperrors.KindNetworkError, apperrors.Classify(context.DeadlineExceeded))
	assert.Equal(t, apperrors.KindUnknown, apperrors.Classify(nil))
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, apperrors.UserMessage(apperrors.KindUserRejected, nil), "rejected")

	long := errors.New(strings.Repeat("x", 500))
	msg := apperrors.UserMessage(apperrors.KindUnknown, long)
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Less(t, len(msg), 200)

	assert.True(t, apperrors.KindRPCInternalError.IsTransient())
	assert.False(t, apperrors.KindReverted.IsTransient())
}
