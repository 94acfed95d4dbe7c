package chapters

import (
	"strconv"
	"strings"
)

// Filter narrows the full chapter list by the user's selection: a single
// chapter (label first, then 1-based index), an index range, or an index
// list. Precedence matches the flag precedence of the download command.
func Filter(all []Chapter, chapter, rng, list string) []Chapter {
	if chapter != "" {
		if byLabel := FilterByLabel(all, chapter); len(byLabel) > 0 {
			return byLabel
		}
		if idx, err := atoi(chapter); err == nil && idx > 0 && idx <= len(all) {
			return []Chapter{all[idx-1]}
		}
		return nil
	}

	if rng != "" {
		return FilterRange(all, rng)
	}
	if list != "" {
		return FilterList(all, list)
	}

	return all
}

// FilterByLabel matches the chapter label exactly, e.g. "12" or "28.5".
func FilterByLabel(all []Chapter, label string) []Chapter {
	var out []Chapter
	for _, ch := range all {
		if ch.Label == label {
			out = append(out, ch)
		}
	}

	return out
}

// FilterRange selects by 1-based index range "start-end".
func FilterRange(all []Chapter, rng string) []Chapter {
	parts := strings.Split(rng, "-")
	if len(parts) != 2 {
		return nil
	}

	start, err1 := atoi(parts[0])
	end, err2 := atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil
	}
	if start <= 0 || end <= 0 || start > end || end > len(all) {
		return nil
	}

	return all[start-1 : end]
}

// FilterList selects by a comma-separated list of 1-based indices.
func FilterList(all []Chapter, list string) []Chapter {
	var out []Chapter
	for p := range strings.SplitSeq(list, ",") {
		idx, err := atoi(p)
		if err != nil || idx <= 0 || idx > len(all) {
			continue
		}
		out = append(out, all[idx-1])
	}

	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
