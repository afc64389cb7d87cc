package extract

import "strings"

var (
	truthy = map[string]struct{}{
		"true": {}, "yes": {}, "y": {}, "1": {}, "required": {}, "mandatory": {},
	}
	falsy = map[string]struct{}{
		"false": {}, "no": {}, "n": {}, "0": {}, "optional": {}, "not required": {},
	}
)

// ParseBool interprets a required/writable cell. Text outside the known
// token sets, including blank text, yields def.
func ParseBool(text string, def bool) bool {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	if _, ok := truthy[norm]; ok {
		return true
	}
	if _, ok := falsy[norm]; ok {
		return false
	}
	return def
}
