package pdfvec

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
)

// recordNamespace scopes RecordID so ids never collide with other UUIDv5 users.
var recordNamespace = uuid.MustParse("6f1b7f2e-2c8a-5d43-9a57-0e4d3c8b91a2")

// RecordID derives the stable id of chunk index from sourceID as a UUIDv5.
// The same pair always yields the same id, so re-ingesting a document
// addresses the records written by the previous run.
func RecordID(sourceID string, index int) string {
	// Length prefix keeps the encoding injective for any source id.
	key := strconv.Itoa(len(sourceID)) + ":" + sourceID + ":" + strconv.Itoa(index)
	return uuid.NewSHA1(recordNamespace, []byte(key)).String()
}

var collectionNameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// ValidateCollectionName accepts 1-48 characters of letters, digits and
// underscores, starting with a letter. Every backend accepts such names.
func ValidateCollectionName(name string) error {
	if !collectionNameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}
