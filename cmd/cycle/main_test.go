package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-survival-agent/internal/domain"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestPrintOutcome_JSON(t *testing.T) {
	out := domain.ActionOutcome{CycleID: "c-1", Tier: domain.TierStabilizing, ActionTaken: domain.ActionStabilize, TransactionRef: "sig"}

	var buf bytes.Buffer
	require.NoError(t, printOutcome(&buf, out, true))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "c-1", got["cycle_id"])
	assert.Equal(t, "sig", got["transaction_ref"])
}

func TestPrintOutcome_Text(t *testing.T) {
	out := domain.ActionOutcome{CycleID: "c-2", Tier: domain.TierUnknown, ActionTaken: domain.ActionNone, Error: domain.OutcomeErrBalancesUnknown}

	var buf bytes.Buffer
	require.NoError(t, printOutcome(&buf, out, false))
	assert.Equal(t, "cycle c-2: tier=UNKNOWN action=none success=false error=\"balances unknown\"\n", buf.String())
}

func TestPrintOutcome_WriteErrorReported(t *testing.T) {
	out := domain.ActionOutcome{CycleID: "c-3"}
	assert.Error(t, printOutcome(brokenWriter{}, out, true))
	assert.Error(t, printOutcome(brokenWriter{}, out, false))
}
