package store

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Mongo server error codes that mean the hinted index backing the
// preferred query shape is not available.
const (
	codeBadValue      = 2  // "bad hint" when the named index does not exist
	codeIndexNotFound = 27 // IndexNotFound
)

// IsMissingIndex reports whether err is the missing-index / precondition
// class of failure. The live-query selector degrades on exactly this class
// and treats everything else as terminal.
func IsMissingIndex(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.Code == codeBadValue || cmdErr.Code == codeIndexNotFound {
			return true
		}
	}

	// Some server versions report the bad hint only in the message.
	msg := err.Error()
	return strings.Contains(msg, "bad hint") ||
		strings.Contains(msg, "hint provided does not correspond to an existing index")
}

// IsNotFound reports whether err means the requested document does not
// exist, covering both our sentinel and the driver's.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, mongo.ErrNoDocuments)
}
