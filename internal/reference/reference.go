// Package reference derives the human-facing transaction label from the
// current size of the transaction log.
package reference

import "fmt"

// Next returns the label for the next transaction given the current count,
// e.g. count 0 -> "TXN-00001". Callers must hold the mutation lock so the
// count cannot move between read and append.
func Next(count int) string {
	return fmt.Sprintf("TXN-%05d", count+1)
}
