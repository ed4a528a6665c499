// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes are stored as PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// Verification reads the cost parameters from the stored string, so raising
// the configured cost does not invalidate existing hashes; [Hasher.NeedsRehash]
// reports which ones are behind.
//
// Length policy beyond the hard 10-byte floor belongs to the caller.
package password
