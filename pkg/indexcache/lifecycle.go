package indexcache

// Outcome classifies what the orchestrator should do after consulting
// the cache for a composite key, per §4.6 step 5.
type Outcome int

const (
	// OutcomeMiss means no record exists for the key: fall through to
	// fresh discovery.
	OutcomeMiss Outcome = iota
	// OutcomeKnownMiss means a record exists, is empty, and was not
	// just emptied by sanitization: return exit 1 without running
	// sources.
	OutcomeKnownMiss
	// OutcomeHit means a record exists with surviving entries after
	// sanitization: format and emit them directly.
	OutcomeHit
	// OutcomeStaleFallthrough means sanitization removed every entry
	// from a previously non-empty record: fall through to fresh
	// discovery.
	OutcomeStaleFallthrough
)

// Prepare runs the load-sequence steps that happen once per process,
// ahead of any per-key lookup (§4.6 steps 1-4): optionally clearing the
// cache file, loading and parsing it (Load already treats a parse
// failure as empty), checking the envHash, and pruning legacy-format
// records. It returns the prepared file and whether it is now dirty
// (needs Save before exit).
func Prepare(path string, clearCache bool) (file *IndexFile, dirty bool) {
	if clearCache {
		_ = Clear(path)
	}

	file = Load(path)
	dirty = false

	currentHash := ComputeEnvHash()
	if file.EnvHash != currentHash {
		file.Records = nil
		file.EnvHash = currentHash
		file.Version = SchemaVersion
		dirty = true
	}

	if pruned := pruneLegacyRecords(file); pruned {
		dirty = true
	}

	return file, dirty
}

// pruneLegacyRecords removes any record whose key does not match the
// current composite key pattern (§4.6 step 4).
func pruneLegacyRecords(file *IndexFile) bool {
	kept := make([]IndexRecord, 0, len(file.Records))
	removed := false
	for _, rec := range file.Records {
		if IsWellFormedKey(rec.Query) {
			kept = append(kept, rec)
		} else {
			removed = true
		}
	}
	if removed {
		file.Records = kept
	}
	return removed
}

// Lookup implements §4.6 step 5 for a single composite key: sanitizing
// a surviving record's entries against ExistsFn, classifying the
// outcome, and reporting whether the file is now dirty as a result.
func Lookup(file *IndexFile, key string, refreshIndex bool, existsFn func(path string) bool) (Outcome, []IndexEntry, bool) {
	if refreshIndex {
		return OutcomeMiss, nil, false
	}

	rec := file.FindRecord(key)
	if rec == nil {
		return OutcomeMiss, nil, false
	}

	wasEmpty := len(rec.Entries) == 0
	sanitized, removedAny := sanitizeEntries(rec.Entries, existsFn)

	dirty := false
	if removedAny {
		rec.Entries = sanitized
		file.PutRecord(*rec)
		dirty = true
	}

	if len(sanitized) > 0 {
		return OutcomeHit, sanitized, dirty
	}
	if wasEmpty {
		return OutcomeKnownMiss, nil, dirty
	}
	return OutcomeStaleFallthrough, nil, dirty
}

// sanitizeEntries drops entries whose path no longer exists.
func sanitizeEntries(entries []IndexEntry, existsFn func(path string) bool) ([]IndexEntry, bool) {
	out := make([]IndexEntry, 0, len(entries))
	removed := false
	for _, e := range entries {
		if existsFn(e.Path) {
			out = append(out, e)
		} else {
			removed = true
		}
	}
	return out, removed
}
