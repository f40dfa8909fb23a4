package events

import (
	"encoding/json"
	"fmt"
)

// Field-name compaction: a reversible verbose-key → short-key rewrite
// applied to marshaled envelopes purely to cut bytes on the wire. It
// carries no semantic weight; Compact and Expand are exact inverses over
// the mapping table, and keys outside the table pass through untouched.

var compactKeys = map[string]string{
	// envelope
	"type":      "t",
	"room_id":   "ri",
	"seq":       "q",
	"timestamp": "ts",
	"payload":   "p",
	// room
	"id":                "i",
	"join_code":         "jc",
	"status":            "st",
	"settings":          "se",
	"draw_mode":         "dm",
	"draw_interval_sec": "di",
	"drawn_numbers":     "dn",
	"created_at":        "ca",
	"started_at":        "sa",
	"ended_at":          "ea",
	"last_drawn_at":     "lda",
	"expires_at":        "xa",
	// player
	"name":            "nm",
	"card":            "cd",
	"cells":           "ce",
	"punched_numbers": "pu",
	"has_bingo":       "hb",
	"won_at":          "wa",
	"connection_id":   "ci",
	"online":          "on",
	"last_seen_at":    "ls",
	"joined_at":       "ja",
	// payloads
	"room":         "r",
	"players":      "pls",
	"player":       "pl",
	"number":       "n",
	"remaining":    "rm",
	"drawn_at":     "da",
	"prev_status":  "pv",
	"changed_at":   "cha",
	"player_id":    "pi",
	"kind":         "k",
	"lines":        "ln",
	"code":         "c",
	"message":      "m",
	"request_type": "rt",
	"stats":        "s",
	// stats
	"total_players":      "tp",
	"active_players":     "ap",
	"players_with_bingo": "pb",
	"drawn_count":        "dc",
}

var expandKeys = invert(compactKeys)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if _, dup := out[v]; dup {
			panic(fmt.Sprintf("events: duplicate short key %q", v))
		}
		out[v] = k
	}
	return out
}

// Compact rewrites verbose keys to short keys throughout the document.
func Compact(raw json.RawMessage) (json.RawMessage, error) {
	return rewrite(raw, compactKeys)
}

// Expand is the inverse of Compact.
func Expand(raw json.RawMessage) (json.RawMessage, error) {
	return rewrite(raw, expandKeys)
}

func rewrite(raw json.RawMessage, table map[string]string) (json.RawMessage, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("compact: decode document: %w", err)
	}
	out, err := json.Marshal(rewriteValue(doc, table))
	if err != nil {
		return nil, fmt.Errorf("compact: encode document: %w", err)
	}
	return out, nil
}

func rewriteValue(v any, table map[string]string) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if short, ok := table[k]; ok {
				k = short
			}
			out[k] = rewriteValue(inner, table)
		}
		return out
	case []any:
		for i := range val {
			val[i] = rewriteValue(val[i], table)
		}
		return val
	default:
		return v
	}
}
