package conflict

import (
	"encoding/json"
	"strings"
)

// textMergeThreshold bounds the number of changed lines a text merge will
// accept before giving up and taking the remote version wholesale.
const textMergeThreshold = 10

// MergeValues merges a local and remote value by kind: maps take the key
// union with remote winning collisions, lists take the de-duplicated union
// preserving order, strings go through the line-based text merge, and every
// other type takes the remote value.
func MergeValues(local, remote interface{}) interface{} {
	switch lv := local.(type) {
	case map[string]interface{}:
		if rv, ok := remote.(map[string]interface{}); ok {
			return mergeMaps(lv, rv)
		}
	case []interface{}:
		if rv, ok := remote.([]interface{}); ok {
			return mergeLists(lv, rv)
		}
	case string:
		if rv, ok := remote.(string); ok {
			return MergeText(lv, rv)
		}
	}
	return remote
}

// mergeMaps returns the shallow key union of local and remote; remote wins
// on collision.
func mergeMaps(local, remote map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(local)+len(remote))
	for k, v := range local {
		merged[k] = v
	}
	for k, v := range remote {
		merged[k] = v
	}
	return merged
}

// mergeLists appends remote entries not already present in local,
// preserving order.
func mergeLists(local, remote []interface{}) []interface{} {
	merged := append([]interface{}(nil), local...)
	for _, item := range remote {
		found := false
		for _, existing := range merged {
			if deepEqualValue(existing, item) {
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, item)
		}
	}
	return merged
}

func deepEqualValue(a, b interface{}) bool {
	// JSON canonicalization handles the nested map/slice values payloads
	// round-trip through; Go's json encoder sorts map keys.
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

// MergeText merges two text bodies line by line. When the number of changed
// lines stays under the threshold, the merge keeps lines common to both
// sides plus lines added remotely; beyond the threshold the remote text
// wins unchanged.
func MergeText(local, remote string) string {
	localLines := strings.Split(local, "\n")
	remoteLines := strings.Split(remote, "\n")

	common := lcs(localLines, remoteLines)
	changed := (len(localLines) - len(common)) + (len(remoteLines) - len(common))
	if changed >= textMergeThreshold {
		return remote
	}

	var merged []string
	li, ri := 0, 0
	for _, line := range common {
		// Lines removed locally are dropped; lines added remotely are kept.
		for li < len(localLines) && localLines[li] != line {
			li++
		}
		for ri < len(remoteLines) && remoteLines[ri] != line {
			merged = append(merged, remoteLines[ri])
			ri++
		}
		merged = append(merged, line)
		li++
		ri++
	}
	for ; ri < len(remoteLines); ri++ {
		merged = append(merged, remoteLines[ri])
	}
	return strings.Join(merged, "\n")
}

// lcs returns the longest common subsequence of two line slices.
func lcs(a, b []string) []string {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			i++
		default:
			j++
		}
	}
	return out
}

// isMinorChange reports whether two values differ only in whitespace or
// formatting. Values are canonicalized through JSON (which sorts map keys)
// before all whitespace is stripped.
func isMinorChange(local, remote interface{}) bool {
	return normalize(local) == normalize(remote)
}

func normalize(v interface{}) string {
	var text string
	if s, ok := v.(string); ok {
		text = s
	} else {
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		text = string(b)
	}
	return strings.Join(strings.Fields(text), "")
}

// isEmptyValue reports whether a conflict side carries no content.
func isEmptyValue(v interface{}) bool {
	switch vv := v.(type) {
	case nil:
		return true
	case string:
		return vv == ""
	case map[string]interface{}:
		return len(vv) == 0
	case []interface{}:
		return len(vv) == 0
	}
	return false
}
