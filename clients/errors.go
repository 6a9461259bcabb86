package clients

import "strings"

// Substrings the remote ledgers use to reject a payload they have already
// accepted: geth's tx pool ("already known", "nonce too low" once the sequence
// is consumed) and Solana's replay window ("already processed"). Kept together
// so both clients classify duplicates the same way.
var duplicateSubmissionMarkers = []string{
	"already known",
	"nonce too low",
	"already processed",
	"AlreadyProcessed",
	"duplicate signature",
}

func isDuplicateSubmission(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range duplicateSubmissionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
