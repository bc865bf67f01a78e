// Package configsync implements the Dynamic Configuration Synchroniser
// (spec §4.G): a WebSocket subscription to live config envelopes, a
// periodic poll fallback, and an apply/diff/acknowledge pipeline that
// atomically swaps the scanner's live cmn.Config. It also owns the local
// persisted config file spec §6 names as an on-disk input.
package configsync

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"

	"github.com/loopwic/lattice-scan/internal/cmn"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists a Config to the on-disk, line-oriented key=value file
// spec §6 describes ("quoted strings, numeric and boolean scalars,
// homogeneous arrays of strings"). Line splitting (comments, blank
// lines, double-quote escaping) reuses github.com/joho/godotenv's
// .env-file parser, which already tokenizes exactly this "KEY=value,
// one per line" shape and hands back each value already dequoted.
// Numeric/boolean scalars and string arrays are written unquoted as
// plain JSON literals (so the typed half of this format is handled by
// the same jsoniter serializer the rest of the module already uses for
// its wire payloads); plain strings are written double-quoted so
// godotenv's own dequoting round-trips them untouched. Load tries a JSON
// decode of each dequoted value first and falls back to the literal
// string when that fails, which is how an arbitrary preserved Unknown
// string value (never itself valid JSON once its quotes are stripped)
// survives the round trip.
type Store struct {
	Path string
}

func NewStore(path string) *Store { return &Store{Path: path} }

// Load reads the persisted file and applies its recognised keys onto a
// fresh cmn.DefaultConfig(); unknown keys are preserved the same way a
// remote Config Envelope's unknown keys are (spec §3).
func (s *Store) Load() (*cmn.Config, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("configsync: open %s: %w", s.Path, err)
	}
	defer f.Close()

	rawStrings, err := godotenv.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("configsync: parse %s: %w", s.Path, err)
	}

	raw := make(map[string]interface{}, len(rawStrings))
	for k, v := range rawStrings {
		raw[k] = decodeValue(v)
	}

	return applyMap(cmn.DefaultConfig(), raw), nil
}

// Save writes cfg's full recognised key set plus its preserved unknown
// keys, one key=value line each, sorted for a stable diff-friendly file.
func (s *Store) Save(cfg *cmn.Config) error {
	m := configToMap(cfg)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		encoded, err := encodeValue(m[k])
		if err != nil {
			return fmt.Errorf("configsync: encode %q: %w", k, err)
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encoded)
		b.WriteByte('\n')
	}
	return os.WriteFile(s.Path, []byte(b.String()), 0o644)
}

// encodeValue renders v as the right-hand side of one key=value line.
// Strings get env-style double-quoting (so godotenv's parser dequotes
// them back to the exact original text); every other JSON-representable
// value (bool, number, string array) is written as its bare JSON literal.
func encodeValue(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
		return `"` + replacer.Replace(s) + `"`, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeValue reverses encodeValue given godotenv's already-dequoted
// string: a JSON-parseable value (bool/number/array) decodes typed;
// anything else round-trips as the literal string it was written as.
func decodeValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
