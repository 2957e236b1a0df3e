package stringutils

import "fmt"

// INClause builds Postgres positional placeholders for an IN (...) clause,
// numbering them from start. It returns the placeholder list and the matching
// argument list.
func INClause[T any](list []T, start int) (placeholders []string, args []any) {
	placeholders = make([]string, len(list))
	args = make([]any, len(list))
	for i, item := range list {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = item
	}

	return placeholders, args
}
