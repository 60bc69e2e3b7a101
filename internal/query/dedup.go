package query

import "github.com/tansive/tablelake/internal/types"

// latestVersions implements §4.5 rule 5 and §9 Design Note 2: rather
// than assembling a `ROW_NUMBER() OVER (PARTITION BY _record_id ORDER
// BY _version DESC)` SQL subquery, this is a structured two-pass
// in-memory operation. Pass 1 (the caller's scan) has already produced
// every row tagged with _record_id/_version; pass 2 here groups by
// _record_id and keeps the greatest _version, breaking ties by the
// latest _timestamp (which version-monotonicity should make
// unreachable, but resolving it deterministically costs nothing).
func latestVersions(rows []map[string]any) []map[string]any {
	best := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		id := recordID(row)
		existing, ok := best[id]
		if !ok || isNewerVersion(row, existing) {
			best[id] = row
		}
	}
	out := make([]map[string]any, 0, len(best))
	for _, row := range best {
		out = append(out, row)
	}
	return out
}

func recordID(row map[string]any) string {
	v, _ := row[types.ColRecordID].(string)
	return v
}

func versionOf(row map[string]any) float64 {
	f, _ := asFloat(row[types.ColVersion])
	return f
}

func isNewerVersion(candidate, current map[string]any) bool {
	cv, xv := versionOf(candidate), versionOf(current)
	if cv != xv {
		return cv > xv
	}
	ct, _ := asTime(candidate[types.ColTimestamp])
	xt, _ := asTime(current[types.ColTimestamp])
	return ct.After(xt)
}

func isDeleted(row map[string]any) bool {
	v, _ := row[types.ColDeleted].(bool)
	return v
}
