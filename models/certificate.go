package models

import "time"

// Certificate mirrors a minted soulbound token for fast local reads.
// The chain stays authoritative for validity/ownership; chain_valid and
// chain_checked_at are maintained by the chain sync worker.
type Certificate struct {
	ID            string `json:"id" gorm:"primaryKey"`
	ProofID       string `json:"proof_id" gorm:"uniqueIndex;not null"` // unique index closes the duplicate-mint race
	WalletAddress string `json:"wallet_address" gorm:"index;not null"` // always stored lowercase
	TokenID       uint64 `json:"token_id" gorm:"uniqueIndex;not null"`
	Skill         string `json:"skill" gorm:"not null"`
	Level         string `json:"level" gorm:"not null"`
	Score         int    `json:"score"`
	ProofCID      string `json:"proof_cid" gorm:"not null"`
	MetadataCID   string `json:"metadata_cid" gorm:"not null"`
	TxHash        string `json:"tx_hash" gorm:"not null"`

	IssuedAt       time.Time  `json:"issued_at"`
	ChainValid     bool       `json:"chain_valid"`
	ChainCheckedAt *time.Time `json:"chain_checked_at,omitempty"`

	// Filled by read-time joins in the service layer, never persisted.
	Proof *Proof `json:"proof,omitempty" gorm:"-"`
}
