package services

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"skillchain/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newProofTestApp(t *testing.T) (*fiber.App, *ProofService, *fakeIPFS, *gorm.DB) {
	t.Helper()

	db := testDB(t)
	ipfs := &fakeIPFS{}
	svc := NewProofService(db, ipfs)

	app := fiber.New()
	app.Post("/proofs/submit", svc.SubmitProof)
	app.Get("/proofs/wallet/:walletAddress", svc.GetProofsByWallet)
	app.Post("/proofs/:id/evaluate", svc.EvaluateProof)
	return app, svc, ipfs, db
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSubmitGitHubProof(t *testing.T) {
	app, _, ipfs, db := newProofTestApp(t)
	course := seedCourse(t, db)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/proofs/submit",
		`{"courseId":"`+course.ID+`","walletAddress":"0xABCdef0123456789","proofType":"github","proofData":"https://github.com/alice/repo"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.Equal(t, true, envelope["success"])
	assert.Equal(t, 1, ipfs.pinJSONCalls)

	var proof models.Proof
	require.NoError(t, db.First(&proof).Error)
	assert.Equal(t, course.ID, proof.CourseID)
	assert.Equal(t, "0xabcdef0123456789", proof.WalletAddress, "wallet is stored lowercase")
	assert.Equal(t, models.ProofStatusPending, proof.Status)
	assert.Equal(t, "QmFakeJSON", proof.IPFSCID)
	assert.Nil(t, proof.Score)
}

func TestSubmitProofUnknownCourse(t *testing.T) {
	app, _, ipfs, _ := newProofTestApp(t)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/proofs/submit",
		`{"courseId":"`+uuid.NewString()+`","walletAddress":"0xabc","proofType":"github","proofData":"https://github.com/alice/repo"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Zero(t, ipfs.pinJSONCalls, "no upload before the course check")
}

func TestSubmitPDFProof(t *testing.T) {
	app, _, ipfs, db := newProofTestApp(t)
	course := seedCourse(t, db)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("courseId", course.ID))
	require.NoError(t, writer.WriteField("walletAddress", "0xABC"))
	require.NoError(t, writer.WriteField("proofType", "pdf"))
	part, err := writer.CreateFormFile("file", "completion.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/proofs/submit", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, ipfs.pinFileCalls)

	var proof models.Proof
	require.NoError(t, db.First(&proof).Error)
	assert.Equal(t, models.ProofTypePDF, proof.ProofType)
	assert.Equal(t, "completion.pdf", proof.ProofData)
	assert.Equal(t, "QmFakeFile", proof.IPFSCID)
}

func TestSubmitPDFProofWithoutFile(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("courseId", course.ID))
	require.NoError(t, writer.WriteField("walletAddress", "0xabc"))
	require.NoError(t, writer.WriteField("proofType", "pdf"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/proofs/submit", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmitProofUploadFailureLeavesNoRecord(t *testing.T) {
	app, _, ipfs, db := newProofTestApp(t)
	course := seedCourse(t, db)
	ipfs.failPin = true

	resp, err := app.Test(jsonRequest(http.MethodPost, "/proofs/submit",
		`{"courseId":"`+course.ID+`","walletAddress":"0xabc","proofType":"github","proofData":"https://github.com/alice/repo"}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Proof{}).Count(&count).Error)
	assert.Zero(t, count, "pin failure must not persist a partial proof")
}

func TestGetProofsByWalletCaseInsensitive(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	older := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: "0xabc",
		ProofType:     models.ProofTypeGitHub,
		ProofData:     "https://github.com/alice/old",
		IPFSCID:       "QmOld",
		Status:        models.ProofStatusPending,
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	}
	newer := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: "0xabc",
		ProofType:     models.ProofTypeGitHub,
		ProofData:     "https://github.com/alice/new",
		IPFSCID:       "QmNew",
		Status:        models.ProofStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.Create(older).Error)
	require.NoError(t, db.Create(newer).Error)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/proofs/wallet/0xABC", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	data := envelope["data"].([]interface{})
	require.Len(t, data, 2)

	first := data[0].(map[string]interface{})
	assert.Equal(t, newer.ID, first["id"], "newest first")
	require.NotNil(t, first["course"], "course is joined at read time")
	assert.Equal(t, course.Title, first["course"].(map[string]interface{})["title"])
}

func TestEvaluateProofAutomatic(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	proof := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: "0xabc",
		ProofType:     models.ProofTypeGitHub,
		ProofData:     "https://github.com/alice/repo",
		IPFSCID:       "QmProof",
		Status:        models.ProofStatusPending,
	}
	require.NoError(t, db.Create(proof).Error)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/proofs/"+proof.ID+"/evaluate", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated models.Proof
	require.NoError(t, db.First(&updated, "id = ?", proof.ID).Error)
	assert.Equal(t, models.ProofStatusApproved, updated.Status)
	require.NotNil(t, updated.Score)
	assert.Equal(t, 75, *updated.Score)
	assert.NotNil(t, updated.EvaluatedAt)
}

func TestEvaluateProofAutomaticRejection(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	proof := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: "0xabc",
		ProofType:     models.ProofTypeGitHub,
		ProofData:     "https://gitlab.com/alice/repo",
		IPFSCID:       "QmProof",
		Status:        models.ProofStatusPending,
	}
	require.NoError(t, db.Create(proof).Error)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/proofs/"+proof.ID+"/evaluate", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var updated models.Proof
	require.NoError(t, db.First(&updated, "id = ?", proof.ID).Error)
	assert.Equal(t, models.ProofStatusRejected, updated.Status)
	require.NotNil(t, updated.Score)
	assert.Equal(t, 0, *updated.Score)
}

func TestEvaluateProofManualScore(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	for _, tc := range []struct {
		score      int
		wantStatus models.ProofStatus
	}{
		{60, models.ProofStatusApproved},
		{59, models.ProofStatusRejected},
	} {
		proof := &models.Proof{
			ID:            uuid.NewString(),
			CourseID:      course.ID,
			WalletAddress: "0xabc",
			ProofType:     models.ProofTypePDF,
			ProofData:     "notes.pdf",
			IPFSCID:       "QmProof",
			Status:        models.ProofStatusPending,
		}
		require.NoError(t, db.Create(proof).Error)

		resp, err := app.Test(jsonRequest(http.MethodPost, "/proofs/"+proof.ID+"/evaluate",
			`{"manualScore":`+strconv.Itoa(tc.score)+`}`))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var updated models.Proof
		require.NoError(t, db.First(&updated, "id = ?", proof.ID).Error)
		assert.Equal(t, tc.wantStatus, updated.Status)
		require.NotNil(t, updated.Score)
		assert.Equal(t, tc.score, *updated.Score)
	}
}

func TestEvaluateProofManualScoreOutOfRange(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	proof := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: "0xabc",
		ProofType:     models.ProofTypePDF,
		ProofData:     "notes.pdf",
		IPFSCID:       "QmProof",
		Status:        models.ProofStatusPending,
	}
	require.NoError(t, db.Create(proof).Error)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/proofs/"+proof.ID+"/evaluate", `{"manualScore":101}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEvaluateProofOnlyOnce(t *testing.T) {
	app, _, _, db := newProofTestApp(t)
	course := seedCourse(t, db)

	proof := &models.Proof{
		ID:            uuid.NewString(),
		CourseID:      course.ID,
		WalletAddress: "0xabc",
		ProofType:     models.ProofTypeGitHub,
		ProofData:     "https://github.com/alice/repo",
		IPFSCID:       "QmProof",
		Status:        models.ProofStatusPending,
	}
	require.NoError(t, db.Create(proof).Error)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/proofs/"+proof.ID+"/evaluate", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(http.MethodPost, "/proofs/"+proof.ID+"/evaluate", `{"manualScore":90}`))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "decided proofs cannot be re-evaluated")

	var updated models.Proof
	require.NoError(t, db.First(&updated, "id = ?", proof.ID).Error)
	require.NotNil(t, updated.Score)
	assert.Equal(t, 75, *updated.Score, "first decision sticks")
}

func TestEvaluateMissingProof(t *testing.T) {
	app, _, _, _ := newProofTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/proofs/"+uuid.NewString()+"/evaluate", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
