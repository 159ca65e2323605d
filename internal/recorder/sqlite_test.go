package recorder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteRecorder_RecordsEvents(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "history.db"), zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordTradeEvent(&TradeEvent{TradeID: "t1", Symbol: "PEPE2", EventType: "OPEN", Amount: "$5", Price: 0.001}))
	require.NoError(t, r.RecordTradeEvent(&TradeEvent{TradeID: "t1", Symbol: "PEPE2", EventType: "TAKE_PROFIT", Price: 0.0021, PnLPct: 110}))
	require.NoError(t, r.RecordBetEvent(&BetEvent{BetID: "b1", EventType: "PLACED", Amount: 10}))
	require.NoError(t, r.RecordExecution(&ExecutionEvent{RequestID: "abc", Action: "trade", Outcome: "success"}))

	all, err := r.CountTradeEvents("")
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	tp, err := r.CountTradeEvents("TAKE_PROFIT")
	require.NoError(t, err)
	assert.Equal(t, 1, tp)
}

func TestNoopRecorder_SatisfiesInterface(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordExecution(&ExecutionEvent{}))
	assert.NoError(t, r.Close())
}
