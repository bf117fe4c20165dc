package variate

import (
	"fmt"
	"strings"
)

// splitSettings parses the comma separated key=value settings string
// attached to a recorded entry. Later occurrences of a key win.
func splitSettings(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		if item == "" {
			continue
		}
		k, v, ok := strings.Cut(item, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed settings item %q", item)
		}
		out[k] = v
	}
	return out, nil
}
