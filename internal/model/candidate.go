package model

// Candidate is one scored token parsed from a scoring response line.
type Candidate struct {
	Score     int
	Symbol    string
	Price     float64
	MarketCap float64
	Volume24h float64
	Change24h float64 // percent
	Reason    string
	Raw       string
}

// ScoreBand groups candidate scores for display.
type ScoreBand struct {
	Label    string
	Emoji    string
	MinScore int
}
