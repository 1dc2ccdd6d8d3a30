package repository

// resolveTimestamp applies the shared defaulting rule for caller-supplied
// timestamp strings: a non-empty supplied value wins, then a non-empty prior
// row value, then the transaction timestamp. Empty string is the sentinel for
// "not supplied". Template upserts pass the existing row's created_at as
// prior; run creation passes no prior, so a retried create refreshes
// created_at unless the caller pins it.
func resolveTimestamp(supplied, prior, now string) string {
	if supplied != "" {
		return supplied
	}
	if prior != "" {
		return prior
	}
	return now
}
