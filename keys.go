package ohm

import "strconv"

// Key names are shared with other Ohm-compatible libraries and must not change.

func RecordKey(model string, id uint64) string {
	return model + ":" + strconv.FormatUint(id, 10)
}

func AllKey(model string) string {
	return model + ":all"
}

func IDKey(model string) string {
	return model + ":id"
}

func UniqueKey(model, field string) string {
	return model + ":uniques:" + field
}

func IndexKey(model, field, value string) string {
	return model + ":indices:" + field + ":" + value
}

// ContainerKey names the list or set behind a relation field.
func ContainerKey(model, field string, id uint64) string {
	return model + ":" + field + ":" + strconv.FormatUint(id, 10)
}

func CounterKey(model string, id uint64, field string) string {
	return model + ":" + strconv.FormatUint(id, 10) + ":" + field
}

// IndicesMemoKey holds the index keys a record currently occupies.
func IndicesMemoKey(recordKey string) string {
	return recordKey + ":_indices"
}

// UniquesMemoKey maps unique-map keys to the values a record currently owns.
func UniquesMemoKey(recordKey string) string {
	return recordKey + ":_uniques"
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
