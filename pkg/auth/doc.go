// Package auth stores the Hack The Box API token between runs.
//
// Tokens are kept in the system keychain through go-keyring when one is
// available, otherwise in an AES-GCM encrypted file under the user's config
// directory. HTBWRITEUPS_TOKEN is consulted last as a read-only source.
package auth
