package models

import "time"

// ProofType indicates what kind of completion evidence was submitted
type ProofType string

const (
	ProofTypeGitHub ProofType = "github"
	ProofTypePDF    ProofType = "pdf"
)

func (t ProofType) Valid() bool {
	return t == ProofTypeGitHub || t == ProofTypePDF
}

type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusApproved ProofStatus = "approved"
	ProofStatusRejected ProofStatus = "rejected"
)

// Proof is a submitted claim of course completion. Status moves from
// pending to approved/rejected exactly once; re-evaluation is rejected.
type Proof struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	CourseID      string      `json:"course_id" gorm:"index;not null"`
	WalletAddress string      `json:"wallet_address" gorm:"index;not null"` // always stored lowercase
	ProofType     ProofType   `json:"proof_type" gorm:"not null"`
	ProofData     string      `json:"proof_data" gorm:"not null"` // GitHub URL or uploaded filename
	IPFSCID       string      `json:"ipfs_cid" gorm:"not null"`
	Status        ProofStatus `json:"status" gorm:"default:'pending'"`
	Score         *int        `json:"score,omitempty"`
	EvaluatedAt   *time.Time  `json:"evaluated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Filled by read-time joins in the service layer, never persisted.
	Course *Course `json:"course,omitempty" gorm:"-"`
}
