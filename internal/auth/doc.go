// Package auth verifies the bearer tokens that identify Hearth users.
//
// Accounts live in a separate service that signs HS256 access tokens with
// a secret shared with Hearth. The token subject is the user ID that
// scopes every household operation. Hearth never stores credentials; the
// only token it mints itself is a development token (see GenerateAccessToken).
package auth
