// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

// TimeSeriesResponse represents one symbol's JSON response from the Twelve Data time_series endpoint.
// A batch request (symbol=A,B) returns an object keyed by symbol whose values are TimeSeriesResponse.
type TimeSeriesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
	Meta    struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Timezone string `json:"exchange_timezone"`
	} `json:"meta"`
	Values []Bar `json:"values"` // newest first
}

// Bar is one row of the values array. Volume is absent for most crypto pairs.
type Bar struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume,omitempty"`
}
