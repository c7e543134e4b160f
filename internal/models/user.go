// Package models defines the records persisted by the credential store.
package models

import "time"

// KDFParams are the Argon2id cost parameters recorded for a user at
// registration. They are stored next to the salt and never recomputed from
// current defaults, so old items stay decryptable when defaults change.
type KDFParams struct {
	MemoryKiB   int
	TimeCost    int
	Parallelism int
}

// User is a registered account.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	KDFSalt      []byte
	KDFParams    KDFParams
	CreatedAt    time.Time
}
