package attack

import "errors"

var (
	// ErrNotInAnyDictionary is the exhaustion outcome of a WPA2 campaign.
	ErrNotInAnyDictionary = errors.New("passphrase not in any dictionary")
	// ErrNotCracked is returned when a campaign ends without a key.
	ErrNotCracked = errors.New("target not cracked")
	// ErrIncorrectCredential means a phished passphrase failed verification.
	ErrIncorrectCredential   = errors.New("caught passphrase is not correct")
	ErrUnsupportedEncryption = errors.New("unsupported encryption")
)
