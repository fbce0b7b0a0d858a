package models

import "encoding/json"

// RawPayload is the inbound ingest body before validation.
// Data stays raw so the validator can report non-numeric elements itself.
type RawPayload struct {
	TimeStamp string          `json:"time_stamp"`
	Data      json.RawMessage `json:"data"`
}

// DataPayload is a validated ingest request
type DataPayload struct {
	TimeStamp string
	Data      []float64
}
