// Package parser turns free-text agent responses into typed values. Every parse reports
// whether it succeeded; malformed input is never an error.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"TradePilot/internal/model"
)

// MinScoreFields is the number of pipe-separated fields a score line must have.
const MinScoreFields = 7

// RejectedLine is an input line that could not be parsed.
type RejectedLine struct {
	Line   string
	Reason string
}

// ScoreParse is the result of ParseScoreLines.
type ScoreParse struct {
	Candidates []model.Candidate
	Rejected   []RejectedLine
}

// ParseScoreLines parses lines of the form
// SCORE|symbol|price|marketcap|volume24h|change24h|reason.
// Blank lines are ignored; other unusable lines are reported in Rejected.
func ParseScoreLines(text string) ScoreParse {
	var out ScoreParse
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "`*-•"))
		if line == "" || !strings.Contains(line, "|") {
			continue
		}

		fields := strings.Split(line, "|")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if strings.EqualFold(fields[0], "SCORE") {
			fields = fields[1:]
		}
		if len(fields) < MinScoreFields {
			out.Rejected = append(out.Rejected, RejectedLine{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", MinScoreFields, len(fields))})
			continue
		}

		score, err := strconv.Atoi(strings.TrimPrefix(fields[0], "SCORE:"))
		if err != nil {
			out.Rejected = append(out.Rejected, RejectedLine{Line: line, Reason: "score is not an integer"})
			continue
		}
		if score < 0 {
			score = 0
		} else if score > 100 {
			score = 100
		}

		out.Candidates = append(out.Candidates, model.Candidate{
			Score:     score,
			Symbol:    strings.ToUpper(strings.TrimPrefix(fields[1], "$")),
			Price:     ParseAmount(fields[2]),
			MarketCap: ParseAmount(fields[3]),
			Volume24h: ParseAmount(fields[4]),
			Change24h: ParsePercent(fields[5]),
			Reason:    strings.Join(fields[6:], " | "),
			Raw:       line,
		})
	}
	return out
}

// ParseAmount parses "$35k", "1.2M", "$1,200" into a number. Unparseable input yields 0.
func ParseAmount(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("$", "", ",", "", "usd", "", " ", "").Replace(s)
	if s == "" {
		return 0
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'k':
		mult = 1e3
	case 'm':
		mult = 1e6
	case 'b':
		mult = 1e9
	}
	if mult != 1 {
		s = s[:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * mult
}

// ParsePercent parses "+15%" or "-80.5%" into 15 or -80.5.
func ParsePercent(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		return 0
	}
	return v
}

var (
	dollarNumber = regexp.MustCompile(`\$\s?(\d[\d,]*(?:\.\d+)?|\.\d+)`)
	bareNumber   = regexp.MustCompile(`\b(\d[\d,]*(?:\.\d+)?)\b`)
)

// PriceParse is the result of ExtractPrice.
type PriceParse struct {
	Value float64
	OK    bool
}

// ExtractPrice returns the first dollar-prefixed number in text, falling back to the
// first standalone number. Non-positive values are treated as unparsed.
func ExtractPrice(text string) PriceParse {
	for _, re := range []*regexp.Regexp{dollarNumber, bareNumber} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || v <= 0 {
			return PriceParse{}
		}
		return PriceParse{Value: v, OK: true}
	}
	return PriceParse{}
}

// IsSkip reports whether any line of the response starts with SKIP, and returns that line.
func IsSkip(text string) (bool, string) {
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "`*"))
		if strings.HasPrefix(strings.ToUpper(line), "SKIP") {
			return true, line
		}
	}
	return false, ""
}

// BetDetails holds optional labelled fields from a bet placement response.
type BetDetails struct {
	Market  string
	Outcome string
	Odds    string
	Amount  float64
}

var betField = regexp.MustCompile(`(?im)^\s*[*-]*\s*(MARKET|OUTCOME|ODDS|AMOUNT)\s*[:=]\s*(.+?)\s*$`)

// ParseBetDetails extracts MARKET:, OUTCOME:, ODDS: and AMOUNT: lines. When no market line
// is present the first non-empty line is used, truncated to 200 characters.
func ParseBetDetails(text string) BetDetails {
	var d BetDetails
	for _, m := range betField.FindAllStringSubmatch(text, -1) {
		val := strings.Trim(m[2], "*` ")
		switch strings.ToUpper(m[1]) {
		case "MARKET":
			d.Market = val
		case "OUTCOME":
			d.Outcome = val
		case "ODDS":
			d.Odds = val
		case "AMOUNT":
			d.Amount = ParseAmount(val)
		}
	}
	if d.Market == "" {
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				d.Market = truncate(line, 200)
				break
			}
		}
	}
	return d
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
