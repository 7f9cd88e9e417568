package railgun

import (
	"strconv"
	"strings"
)

// HeaderName is the uppercased name of the Railgun response header.
const HeaderName = "CF-RAILGUN"

// normalMarker selects the short wire format when present anywhere in the value.
const normalMarker = "normal"

// Flag maps one bit of the Railgun flags bitset to its description.
type Flag struct {
	Bit     int
	Message string
}

// Flags is ordered by ascending bit position. ExpandFlags relies on this order.
var Flags = []Flag{
	{Bit: 0x01, Message: "map.file used to change IP"},
	{Bit: 0x02, Message: "map.file default IP used"},
	{Bit: 0x04, Message: "Host name change"},
	{Bit: 0x08, Message: "Existing connection reused"},
	{Bit: 0x10, Message: "Railgun sender sent dictionary"},
	{Bit: 0x20, Message: "Dictionary found in memcache"},
	{Bit: 0x40, Message: "Restarted broken origin connection"},
}

// Metadata is the decoded form of a CF-Railgun header value.
// CompressionPercent and ElapsedSeconds are only set for the extended format.
type Metadata struct {
	NormalMode         bool     `json:"normal_mode"`
	ID                 string   `json:"id"`
	Version            string   `json:"version"`
	CompressionPercent *string  `json:"compression_percent,omitempty"`
	ElapsedSeconds     *string  `json:"elapsed_seconds,omitempty"`
	FlagsBitset        int      `json:"flags_bitset"`
	ActiveFlagMessages []string `json:"active_flag_messages"`
}

// Decode parses a raw CF-Railgun header value. It reports false for an empty
// value and never fails on malformed tokens: a non-numeric bitset decodes as 0
// and a non-numeric compression ratio leaves CompressionPercent unset.
func Decode(raw string) (Metadata, bool) {
	if raw == "" {
		return Metadata{}, false
	}

	tokens := strings.Split(raw, " ")
	meta := Metadata{
		NormalMode: strings.Contains(raw, normalMarker),
		ID:         token(tokens, 0),
	}

	if meta.NormalMode {
		meta.FlagsBitset = parseBitset(token(tokens, 1))
		meta.Version = token(tokens, 3)
	} else {
		if ratio, err := strconv.Atoi(token(tokens, 1)); err == nil {
			pct := strconv.Itoa(100-ratio) + "%"
			meta.CompressionPercent = &pct
		}
		if elapsed := token(tokens, 2); elapsed != "" {
			secs := elapsed + "sec"
			meta.ElapsedSeconds = &secs
		}
		meta.FlagsBitset = parseBitset(token(tokens, 3))
		meta.Version = token(tokens, 4)
	}

	meta.ActiveFlagMessages = ExpandFlags(meta.FlagsBitset)
	return meta, true
}

// ExpandFlags returns the message of every flag set in bitset, in Flags order.
func ExpandFlags(bitset int) []string {
	messages := make([]string, 0, len(Flags))
	for _, f := range Flags {
		if bitset&f.Bit != 0 {
			messages = append(messages, f.Message)
		}
	}
	return messages
}

func parseBitset(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func token(tokens []string, i int) string {
	if i < len(tokens) {
		return tokens[i]
	}
	return ""
}
