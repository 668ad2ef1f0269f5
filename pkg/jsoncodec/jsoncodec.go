// Package jsoncodec pins the JSON configuration shared by the item stream
// and the output writers.
//
// Input decoding and output encoding must agree on one configuration so that
// size estimates match written bytes: map keys are sorted for deterministic
// output, and numbers decode as json.Number so the input's digits round-trip
// unchanged.
package jsoncodec

import jsoniter "github.com/json-iterator/go"

// API is the frozen configuration used for every encode and decode.
var API = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Marshal encodes v with the shared configuration.
func Marshal(v any) ([]byte, error) {
	return API.Marshal(v)
}
