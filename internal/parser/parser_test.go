package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoreLines_ScenarioLines(t *testing.T) {
	text := "Here are the scores:\n" +
		"72|PEPE2|$0.001|$35k|$1200|+15%|strong momentum\n" +
		"40|DEAD|$0.0001|$5k|$50|-80%|dying\n"

	res := ParseScoreLines(text)
	require.Len(t, res.Candidates, 2)
	assert.Empty(t, res.Rejected)

	pepe := res.Candidates[0]
	assert.Equal(t, 72, pepe.Score)
	assert.Equal(t, "PEPE2", pepe.Symbol)
	assert.InDelta(t, 0.001, pepe.Price, 1e-12)
	assert.Equal(t, 35000.0, pepe.MarketCap)
	assert.Equal(t, 1200.0, pepe.Volume24h)
	assert.Equal(t, 15.0, pepe.Change24h)
	assert.Equal(t, "strong momentum", pepe.Reason)

	dead := res.Candidates[1]
	assert.Equal(t, 40, dead.Score)
	assert.Equal(t, 5000.0, dead.MarketCap)
	assert.Equal(t, -80.0, dead.Change24h)
}

func TestParseScoreLines_MalformedInput(t *testing.T) {
	text := "SCORE|symbol|price|marketcap|volume24h|change24h|reason\n" +
		"high|BAD|$1|$1k|$1|1%|not a number\n" +
		"55|SHORT|$1|$1k\n" +
		"SCORE|61|OK1|$0.2|$12.5k|$900|+3%|header prefix tolerated\n" +
		"- 80|BULLET|$1|$2k|$3|+4%|reason with | pipe\n" +
		"\n" +
		"no pipes here at all\n"

	res := ParseScoreLines(text)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "OK1", res.Candidates[0].Symbol)
	assert.Equal(t, 12500.0, res.Candidates[0].MarketCap)
	assert.Equal(t, "BULLET", res.Candidates[1].Symbol)
	assert.Equal(t, "reason with | pipe", res.Candidates[1].Reason)

	// header line, non-integer score, too few fields
	require.Len(t, res.Rejected, 3)
	assert.Contains(t, res.Rejected[0].Reason, "expected 7 fields")
	assert.Equal(t, "score is not an integer", res.Rejected[1].Reason)
	assert.Contains(t, res.Rejected[2].Reason, "expected 7 fields")
}

func TestParseAmount(t *testing.T) {
	tests := map[string]float64{
		"$35k":    35000,
		"35K":     35000,
		"$1,200":  1200,
		"1.5M":    1500000,
		"$2b":     2e9,
		"$0.0001": 0.0001,
		"n/a":     0,
		"":        0,
	}
	for in, want := range tests {
		assert.InDelta(t, want, ParseAmount(in), 1e-9, in)
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"$2.10", 2.10, true},
		{"The current price of PEPE2 is $0.00123 per token", 0.00123, true},
		{"PEPE2 trades at 1,234.5 USD", 1234.5, true},
		{"Price: $ 3", 3, true},
		{"I could not find that token", 0, false},
		{"$0", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := ExtractPrice(tt.text)
		assert.Equal(t, tt.ok, got.OK, tt.text)
		assert.InDelta(t, tt.want, got.Value, 1e-12, tt.text)
	}
}

func TestIsSkip(t *testing.T) {
	skip, line := IsSkip("Looked at 12 markets.\nSKIP: no clear edge")
	assert.True(t, skip)
	assert.Equal(t, "SKIP: no clear edge", line)

	skip, _ = IsSkip("Placed $5 on YES. Skipping nothing.")
	assert.False(t, skip)
}

func TestParseBetDetails(t *testing.T) {
	d := ParseBetDetails("Bet placed!\nMARKET: Will BTC close above 100k?\nOUTCOME: YES\nODDS: 0.62\nAMOUNT: $10")
	assert.Equal(t, "Will BTC close above 100k?", d.Market)
	assert.Equal(t, "YES", d.Outcome)
	assert.Equal(t, "0.62", d.Odds)
	assert.Equal(t, 10.0, d.Amount)

	d = ParseBetDetails("\nBought YES on the Fed rate cut market for $4")
	assert.Equal(t, "Bought YES on the Fed rate cut market for $4", d.Market)
}
