package hostaway

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// cityKeyPrefix prefixes every per-city slot in the legacy blob
const cityKeyPrefix = "HOSTAWAY_API_"

var (
	// ErrEmptyBlob is returned when HOSTAWAY_TOKENS is empty or unset
	ErrEmptyBlob = errors.New("hostaway tokens blob is empty")

	// ErrMalformedBlob is returned when the blob matches no supported format
	ErrMalformedBlob = errors.New("hostaway tokens blob is malformed")

	// errFormatMismatch tells ParseTokenBlob to try the next format
	errFormatMismatch = errors.New("format mismatch")
)

// TokenTable maps city keys (HOSTAWAY_API_<CITY>) to API tokens
type TokenTable map[string]string

// Keys returns the city keys in sorted order
func (t TokenTable) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CityKey derives the token slot for a city, e.g. "london" -> HOSTAWAY_API_LONDON
func CityKey(city string) string {
	return cityKeyPrefix + strings.ToUpper(city)
}

// blobParser decodes one blob format. It returns errFormatMismatch when the
// blob is not in its format, and any other error to stop parsing.
type blobParser struct {
	name  string
	parse func(blob string) (TokenTable, error)
}

// blobParsers are tried in order; the first success wins
var blobParsers = []blobParser{
	{name: "json", parse: parseJSONBlob},
	{name: "legacy", parse: parseLegacyBlob},
}

// ParseTokenBlob decodes the per-city tokens blob.
// Supported formats, in order:
//
//	{"HOSTAWAY_API_LONDON":"token","HOSTAWAY_API_PARIS":"token"}
//	HOSTAWAY_API_LONDON:token HOSTAWAY_API_PARIS:token
func ParseTokenBlob(blob string) (TokenTable, error) {
	table, _, err := parseTokenBlob(blob)
	return table, err
}

// parseTokenBlob also reports which format matched
func parseTokenBlob(blob string) (TokenTable, string, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, "", ErrEmptyBlob
	}

	for _, p := range blobParsers {
		table, err := p.parse(blob)
		if errors.Is(err, errFormatMismatch) {
			continue
		}
		if err != nil {
			return nil, p.name, err
		}
		return table, p.name, nil
	}

	return nil, "", fmt.Errorf("%w: no supported format matched", ErrMalformedBlob)
}

func parseJSONBlob(blob string) (TokenTable, error) {
	var raw any
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, errFormatMismatch
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: JSON value is %T, want object", ErrMalformedBlob, raw)
	}

	table := make(TokenTable, len(obj))
	for key, value := range obj {
		// Non-string values cannot be tokens
		if token, ok := value.(string); ok {
			table[key] = token
		}
	}
	return table, nil
}

func parseLegacyBlob(blob string) (TokenTable, error) {
	table := make(TokenTable)
	for _, part := range strings.Split(strings.TrimSpace(blob), " ") {
		key, token, found := strings.Cut(part, ":")
		if !found {
			continue
		}
		table[key] = token
	}

	if len(table) == 0 {
		return nil, errFormatMismatch
	}
	return table, nil
}
