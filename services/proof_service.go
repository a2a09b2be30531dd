// services/proof_service.go
package services

import (
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"skillchain/models"
	"skillchain/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxProofFileSize caps uploaded proof documents at 10MB.
const MaxProofFileSize = 10 * 1024 * 1024

type ProofService struct {
	DB         *gorm.DB
	IPFS       IPFSClient
	Evaluators map[models.ProofType]Evaluator
	validate   *validator.Validate
}

func NewProofService(db *gorm.DB, ipfs IPFSClient) *ProofService {
	return &ProofService{
		DB:         db,
		IPFS:       ipfs,
		Evaluators: DefaultEvaluators(),
		validate:   validator.New(),
	}
}

// githubProofEnvelope is what gets pinned for link-type proofs.
type githubProofEnvelope struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
}

// SubmitProof accepts a GitHub link (JSON or form) or a PDF upload
// (multipart). The pin to IPFS happens before any record is written, so a
// failed upload leaves no partial proof behind.
func (s *ProofService) SubmitProof(c *fiber.Ctx) error {
	var req struct {
		CourseID      string `json:"courseId" form:"courseId" validate:"required"`
		WalletAddress string `json:"walletAddress" form:"walletAddress" validate:"required"`
		ProofType     string `json:"proofType" form:"proofType" validate:"required,oneof=github pdf"`
		ProofData     string `json:"proofData" form:"proofData"`
	}

	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid proof payload: "+err.Error())
	}

	var course models.Course
	if err := s.DB.First(&course, "id = ?", req.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, fiber.StatusNotFound, "Course not found")
		}
		log.Printf("DB Error fetching course for proof: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to submit proof")
	}

	proofType := models.ProofType(req.ProofType)
	proofData := req.ProofData

	var cid string
	switch proofType {
	case models.ProofTypeGitHub:
		if req.ProofData == "" {
			return utils.Fail(c, fiber.StatusBadRequest, "proofData is required for github proofs")
		}
		envelope := githubProofEnvelope{
			Type:      "github",
			URL:       req.ProofData,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		pinned, err := s.IPFS.PinJSON(c.UserContext(), envelope)
		if err != nil {
			log.Printf("IPFS pin error for github proof: %v", err)
			return utils.Fail(c, fiber.StatusInternalServerError, "Failed to upload proof to IPFS")
		}
		cid = pinned

	case models.ProofTypePDF:
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "Invalid proof type or missing file")
		}
		if fileHeader.Size > MaxProofFileSize {
			return utils.Fail(c, fiber.StatusBadRequest, "Proof file exceeds the 10MB limit")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "Failed to read uploaded file")
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "Failed to read uploaded file")
		}

		pinned, err := s.IPFS.PinFile(c.UserContext(), data, fileHeader.Filename)
		if err != nil {
			log.Printf("IPFS pin error for pdf proof: %v", err)
			return utils.Fail(c, fiber.StatusInternalServerError, "Failed to upload proof to IPFS")
		}
		cid = pinned
		if proofData == "" {
			proofData = fileHeader.Filename
		}
	}

	proof := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: strings.ToLower(req.WalletAddress),
		ProofType:     proofType,
		ProofData:     proofData,
		IPFSCID:       cid,
		Status:        models.ProofStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.DB.Create(proof).Error; err != nil {
		log.Printf("DB Error creating proof: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to submit proof")
	}

	proof.Course = &course
	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"proof":    proof,
		"ipfs_url": s.IPFS.GatewayURL(cid),
	})
}

// GetProofsByWallet lists a wallet's proofs, newest first. Lookup is
// case-insensitive because addresses are stored lowercase.
func (s *ProofService) GetProofsByWallet(c *fiber.Ctx) error {
	wallet := strings.ToLower(c.Params("walletAddress"))

	var proofs []models.Proof
	if err := s.DB.Where("wallet_address = ?", wallet).
		Order("created_at DESC").
		Find(&proofs).Error; err != nil {
		log.Printf("DB Error listing proofs: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch proofs")
	}

	if err := s.attachCourses(proofs); err != nil {
		log.Printf("DB Error joining courses onto proofs: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch proofs")
	}

	return utils.Success(c, fiber.StatusOK, proofs)
}

// EvaluateProof decides a pending proof, manually when manualScore is
// present, otherwise via the proof type's automatic strategy. A decided
// proof cannot be re-evaluated.
func (s *ProofService) EvaluateProof(c *fiber.Ctx) error {
	var req struct {
		ManualScore *int `json:"manualScore" form:"manualScore"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	var proof models.Proof
	if err := s.DB.First(&proof, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, fiber.StatusNotFound, "Proof not found")
		}
		log.Printf("DB Error fetching proof: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to evaluate proof")
	}

	if proof.Status != models.ProofStatusPending {
		return utils.Fail(c, fiber.StatusConflict, "Proof has already been evaluated")
	}

	var result EvalResult
	if req.ManualScore != nil {
		r, err := ManualEvaluation(*req.ManualScore)
		if err != nil {
			return utils.Fail(c, fiber.StatusBadRequest, "Manual score must be between 0 and 100")
		}
		result = r
	} else {
		evaluator, ok := s.Evaluators[proof.ProofType]
		if !ok {
			return utils.Fail(c, fiber.StatusBadRequest, "No evaluator for proof type "+string(proof.ProofType))
		}
		r, err := evaluator.Evaluate(&proof)
		if err != nil {
			log.Printf("Evaluation error for proof %s: %v", proof.ID, err)
			return utils.Fail(c, fiber.StatusInternalServerError, "Failed to evaluate proof")
		}
		result = r
	}

	now := time.Now().UTC()
	if result.Pass {
		proof.Status = models.ProofStatusApproved
	} else {
		proof.Status = models.ProofStatusRejected
	}
	proof.Score = &result.Score
	proof.EvaluatedAt = &now

	if err := s.DB.Save(&proof).Error; err != nil {
		log.Printf("DB Error saving evaluated proof: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to evaluate proof")
	}

	return utils.Success(c, fiber.StatusOK, proof)
}

// attachCourses performs the read-time join of proofs to their courses.
// Records stay normalized; the embedded Course is never persisted.
func (s *ProofService) attachCourses(proofs []models.Proof) error {
	if len(proofs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(proofs))
	for _, p := range proofs {
		ids = append(ids, p.CourseID)
	}

	var courses []models.Course
	if err := s.DB.Where("id IN ?", ids).Find(&courses).Error; err != nil {
		return err
	}

	byID := make(map[string]*models.Course, len(courses))
	for i := range courses {
		byID[courses[i].ID] = &courses[i]
	}
	for i := range proofs {
		proofs[i].Course = byID[proofs[i].CourseID]
	}
	return nil
}
