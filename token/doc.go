// Package token implements the session token primitives: CSPRNG token
// generation, SHA-256 storage hashing, HMAC-SHA256 signing and the cookie
// value codec.
//
// # Cookie value
//
//	<64 hex token>.<64 hex HMAC-SHA256(token, secret)>
//
// [Unpack] splits on the last '.' and rejects anything that is not exactly two
// lowercase hex parts of the expected lengths. It never panics on client input.
//
// # What this package must NOT do
//
//   - Perform I/O beyond reading crypto/rand.
//   - Persist or log raw tokens.
//   - Import any other tenantauth package.
package token
