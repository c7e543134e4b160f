package models

import "time"

// VaultItem is one encrypted secret. CiphertextBlob is produced and consumed
// only by cryptox.EncryptSecret and cryptox.DecryptSecret; stores keep it
// byte for byte.
type VaultItem struct {
	ID             string
	OwnerID        string
	Title          string
	CiphertextBlob []byte
	CreatedAt      time.Time
}
