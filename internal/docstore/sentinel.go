package docstore

// Write sentinels. These values may appear in the data maps passed to
// Set/Merge and are resolved by the store at apply time, so concurrent
// writers never race on read-modify-write for the fields they touch.

type serverTimestamp struct{}

// ServerTimestamp resolves to the commit time of the write.
var ServerTimestamp = serverTimestamp{}

type incrementValue struct{ n int64 }

// Increment atomically adds n to the current numeric value of the
// field (missing fields start at zero).
func Increment(n int64) any { return incrementValue{n: n} }

type arrayUnion struct{ values []any }

// ArrayUnion appends the given values to the array field, skipping
// values already present.
func ArrayUnion(values ...any) any { return arrayUnion{values: values} }
