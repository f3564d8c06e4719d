package metrics

import "sort"

// labelKey is a normalized, hashable form of a label set: sorted k=v pairs
// joined so two maps with the same contents collapse to the same map key
// regardless of insertion order.
type labelKey string

func normalizeLabels(labels map[string]string) labelKey {
	if len(labels) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, k+"\x00"+v)
	}
	sort.Strings(pairs)
	var key labelKey
	for i, p := range pairs {
		if i > 0 {
			key += "\x1f"
		}
		key += labelKey(p)
	}
	return key
}

func cloneLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
