// services/certificate_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"skillchain/models"
	"skillchain/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CertificateService struct {
	DB           *gorm.DB
	IPFS         IPFSClient
	Chain        ChainClient // nil when chain credentials are absent
	validate     *validator.Validate
	explorerBase string
}

func NewCertificateService(db *gorm.DB, ipfs IPFSClient, chain ChainClient) *CertificateService {
	explorerBase := os.Getenv("EXPLORER_BASE_URL")
	if explorerBase == "" {
		explorerBase = "https://sepolia.etherscan.io"
	}
	return &CertificateService{
		DB:           db,
		IPFS:         ipfs,
		Chain:        chain,
		validate:     validator.New(),
		explorerBase: explorerBase,
	}
}

// MetadataAttribute is one trait entry in the token metadata.
type MetadataAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// CertificateMetadata is the JSON document pinned for each token.
type CertificateMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Attributes  []MetadataAttribute `json:"attributes"`
}

// BuildCertificateMetadata assembles the pinned metadata. The attribute
// list is fixed: Skill, Level, Score (0 when unset), Proof CID, Issue Date.
func BuildCertificateMetadata(course *models.Course, proof *models.Proof, issuedAt time.Time) CertificateMetadata {
	score := 0
	if proof.Score != nil {
		score = *proof.Score
	}
	return CertificateMetadata{
		Name:        fmt.Sprintf("SkillChain Certificate - %s", course.SkillTag),
		Description: fmt.Sprintf("Certificate of completion for %s", course.Title),
		Image:       "ipfs://QmPlaceholderImage",
		Attributes: []MetadataAttribute{
			{TraitType: "Skill", Value: course.SkillTag},
			{TraitType: "Level", Value: string(course.Level)},
			{TraitType: "Score", Value: score},
			{TraitType: "Proof CID", Value: proof.IPFSCID},
			{TraitType: "Issue Date", Value: issuedAt.Format(time.RFC3339)},
		},
	}
}

// MintCertificate pins metadata, mints the soulbound token and mirrors it
// locally. Precondition order: proof exists, proof approved, no certificate
// for this proof yet. The unique index on proof_id is the real duplicate
// guard; the read beforehand only gives the fast 409. A metadata pin that
// succeeds before a failed mint stays pinned — there is no compensating
// unpin, the orphaned object is accepted.
func (s *CertificateService) MintCertificate(c *fiber.Ctx) error {
	var req struct {
		ProofID       string `json:"proofId" form:"proofId" validate:"required"`
		WalletAddress string `json:"walletAddress" form:"walletAddress" validate:"required"`
	}

	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid mint payload: "+err.Error())
	}

	if s.Chain == nil {
		return utils.Fail(c, fiber.StatusServiceUnavailable, ErrChainUnconfigured.Error())
	}

	var proof models.Proof
	if err := s.DB.First(&proof, "id = ?", req.ProofID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, fiber.StatusNotFound, "Proof not found")
		}
		log.Printf("DB Error fetching proof for mint: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to mint certificate")
	}

	if proof.Status != models.ProofStatusApproved {
		return utils.Fail(c, fiber.StatusBadRequest, "Proof not approved yet")
	}

	var existing models.Certificate
	err := s.DB.First(&existing, "proof_id = ?", proof.ID).Error
	if err == nil {
		return utils.Fail(c, fiber.StatusConflict, "Certificate already minted for this proof")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("DB Error checking existing certificate: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to mint certificate")
	}

	var course models.Course
	if err := s.DB.First(&course, "id = ?", proof.CourseID).Error; err != nil {
		log.Printf("DB Error fetching course for mint: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to mint certificate")
	}

	issuedAt := time.Now().UTC()
	metadata := BuildCertificateMetadata(&course, &proof, issuedAt)

	metadataCID, err := s.IPFS.PinJSON(c.UserContext(), metadata)
	if err != nil {
		log.Printf("IPFS pin error for certificate metadata: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to upload certificate metadata to IPFS")
	}

	score := 0
	if proof.Score != nil {
		score = *proof.Score
	}

	minted, err := s.Chain.MintCertificate(c.UserContext(),
		req.WalletAddress, course.SkillTag, string(course.Level), score, proof.IPFSCID, s.IPFS.URI(metadataCID))
	if err != nil {
		if errors.Is(err, ErrChainUnconfigured) {
			return utils.Fail(c, fiber.StatusServiceUnavailable, ErrChainUnconfigured.Error())
		}
		log.Printf("Chain mint error for proof %s: %v", proof.ID, err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to mint certificate on blockchain")
	}

	certificate := &models.Certificate{
		ID:            uuid.NewString(),
		ProofID:       proof.ID,
		WalletAddress: strings.ToLower(req.WalletAddress),
		TokenID:       minted.TokenID,
		Skill:         course.SkillTag,
		Level:         string(course.Level),
		Score:         score,
		ProofCID:      proof.IPFSCID,
		MetadataCID:   metadataCID,
		TxHash:        minted.TxHash,
		IssuedAt:      issuedAt,
		ChainValid:    true,
	}

	if err := s.DB.Create(certificate).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent mint for the same proof.
			return utils.Fail(c, fiber.StatusConflict, "Certificate already minted for this proof")
		}
		log.Printf("DB Error saving certificate (token %d already on chain): %v", minted.TokenID, err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to save certificate record")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"certificate":  certificate,
		"explorer_url": fmt.Sprintf("%s/tx/%s", s.explorerBase, minted.TxHash),
	})
}

// GetCertificateByTokenID returns the local record joined with its proof
// and course, plus the live on-chain validity so staleness is visible.
// is_valid is null when the chain client is unconfigured or unreachable.
func (s *CertificateService) GetCertificateByTokenID(c *fiber.Ctx) error {
	tokenID, err := strconv.ParseUint(c.Params("tokenId"), 10, 64)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid token id")
	}

	var certificate models.Certificate
	if err := s.DB.First(&certificate, "token_id = ?", tokenID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, fiber.StatusNotFound, "Certificate not found")
		}
		log.Printf("DB Error fetching certificate: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch certificate")
	}

	certs := []models.Certificate{certificate}
	if err := s.attachProofs(certs); err != nil {
		log.Printf("DB Error joining proof onto certificate: %v", err)
	}
	certificate = certs[0]

	var isValid *bool
	if s.Chain != nil {
		valid, err := s.Chain.IsValid(c.UserContext(), tokenID)
		if err != nil {
			log.Printf("Chain isValid error for token %d: %v", tokenID, err)
		} else {
			isValid = &valid
		}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"certificate":  certificate,
		"is_valid":     isValid,
		"metadata_url": s.IPFS.GatewayURL(certificate.MetadataCID),
		"proof_url":    s.IPFS.GatewayURL(certificate.ProofCID),
		"explorer_url": fmt.Sprintf("%s/tx/%s", s.explorerBase, certificate.TxHash),
	})
}

// GetCertificatesByWallet lists a wallet's certificates, newest first.
func (s *CertificateService) GetCertificatesByWallet(c *fiber.Ctx) error {
	wallet := strings.ToLower(c.Params("walletAddress"))

	var certificates []models.Certificate
	if err := s.DB.Where("wallet_address = ?", wallet).
		Order("issued_at DESC").
		Find(&certificates).Error; err != nil {
		log.Printf("DB Error listing certificates: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch certificates")
	}

	if err := s.attachProofs(certificates); err != nil {
		log.Printf("DB Error joining proofs onto certificates: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch certificates")
	}

	return utils.Success(c, fiber.StatusOK, certificates)
}

// VerifyCertificate answers from the chain alone, so revocations and tokens
// missing from the local mirror are still verifiable.
func (s *CertificateService) VerifyCertificate(c *fiber.Ctx) error {
	tokenID, err := strconv.ParseUint(c.Params("tokenId"), 10, 64)
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid token id")
	}

	if s.Chain == nil {
		return utils.Fail(c, fiber.StatusServiceUnavailable, ErrChainUnconfigured.Error())
	}

	data, err := s.Chain.GetCertificateData(c.UserContext(), tokenID)
	if err != nil {
		log.Printf("Chain getCertificateData error for token %d: %v", tokenID, err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch certificate from blockchain")
	}

	valid, err := s.Chain.IsValid(c.UserContext(), tokenID)
	if err != nil {
		log.Printf("Chain isValid error for token %d: %v", tokenID, err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to verify certificate on blockchain")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"certificate": data,
		"is_valid":    valid,
	})
}

// attachProofs performs the read-time join of certificates to their proofs
// and, transitively, courses.
func (s *CertificateService) attachProofs(certificates []models.Certificate) error {
	if len(certificates) == 0 {
		return nil
	}

	proofIDs := make([]string, 0, len(certificates))
	for _, cert := range certificates {
		proofIDs = append(proofIDs, cert.ProofID)
	}

	var proofs []models.Proof
	if err := s.DB.Where("id IN ?", proofIDs).Find(&proofs).Error; err != nil {
		return err
	}

	courseIDs := make([]string, 0, len(proofs))
	for _, p := range proofs {
		courseIDs = append(courseIDs, p.CourseID)
	}
	var courses []models.Course
	if len(courseIDs) > 0 {
		if err := s.DB.Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return err
		}
	}

	coursesByID := make(map[string]*models.Course, len(courses))
	for i := range courses {
		coursesByID[courses[i].ID] = &courses[i]
	}
	proofsByID := make(map[string]*models.Proof, len(proofs))
	for i := range proofs {
		proofs[i].Course = coursesByID[proofs[i].CourseID]
		proofsByID[proofs[i].ID] = &proofs[i]
	}
	for i := range certificates {
		certificates[i].Proof = proofsByID[certificates[i].ProofID]
	}
	return nil
}
