package mcp

import (
	"encoding/json"
	"fmt"
	"sort"
)

// UnknownField is an argument the tool does not recognize. Unknown
// arguments are reported back as warnings instead of failing the call.
type UnknownField struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type InfoParams struct {
	Tool     string         `json:"tool,omitempty"`
	Warnings []UnknownField `json:"-"`
}

type CacheParams struct {
	Source string `json:"source"`
	// Static caches into the shared catalog. It defaults to true because
	// a per-request catalog is dropped with the request.
	Static   *bool          `json:"static,omitempty"`
	Warnings []UnknownField `json:"-"`
}

type SuggestParams struct {
	Source   string         `json:"source"`
	Offset   int            `json:"offset"`
	Filter   string         `json:"filter,omitempty"`
	Warnings []UnknownField `json:"-"`
}

type CallTipParams struct {
	Source   string         `json:"source"`
	Offset   int            `json:"offset"`
	Anywhere bool           `json:"anywhere,omitempty"`
	Filter   string         `json:"filter,omitempty"`
	Warnings []UnknownField `json:"-"`
}

type LookupParams struct {
	Name     string         `json:"name"`
	Warnings []UnknownField `json:"-"`
}

func (p *InfoParams) UnmarshalJSON(data []byte) error {
	type alias InfoParams
	warnings, err := decodeKnown(data, (*alias)(p), "tool")
	p.Warnings = warnings
	return err
}

func (p *CacheParams) UnmarshalJSON(data []byte) error {
	type alias CacheParams
	warnings, err := decodeKnown(data, (*alias)(p), "source", "static")
	p.Warnings = warnings
	return err
}

func (p *SuggestParams) UnmarshalJSON(data []byte) error {
	type alias SuggestParams
	warnings, err := decodeKnown(data, (*alias)(p), "source", "offset", "filter")
	p.Warnings = warnings
	return err
}

func (p *CallTipParams) UnmarshalJSON(data []byte) error {
	type alias CallTipParams
	warnings, err := decodeKnown(data, (*alias)(p), "source", "offset", "anywhere", "filter")
	p.Warnings = warnings
	return err
}

func (p *LookupParams) UnmarshalJSON(data []byte) error {
	type alias LookupParams
	warnings, err := decodeKnown(data, (*alias)(p), "name")
	p.Warnings = warnings
	return err
}

// decodeKnown decodes data into target and collects the fields outside
// known. Empty input decodes as an empty object.
func decodeKnown(data []byte, target any, known ...string) ([]UnknownField, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}
	_, warnings, err := collectUnknownFields(data, set)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return warnings, err
	}
	return warnings, nil
}

// collectUnknownFields parses raw JSON into a map and captures the fields
// that are not in known, sorted by name
func collectUnknownFields(data []byte, known map[string]struct{}) (map[string]json.RawMessage, []UnknownField, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	var warnings []UnknownField
	for key, value := range raw {
		if _, ok := known[key]; !ok {
			warnings = append(warnings, decodeUnknownField(key, value))
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Name < warnings[j].Name })
	return raw, warnings, nil
}

func decodeUnknownField(name string, data json.RawMessage) UnknownField {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		value = string(data)
	}
	return UnknownField{Name: name, Value: value}
}

// checkOffset validates a byte offset into source
func checkOffset(source string, offset int) error {
	if offset < 0 || offset > len(source) {
		return fmt.Errorf("offset %d outside source of length %d", offset, len(source))
	}
	return nil
}
