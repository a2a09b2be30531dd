package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"skillchain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Course{}, &models.Proof{}, &models.Certificate{}))
	return db
}

func seedCourse(t *testing.T, db *gorm.DB) *models.Course {
	t.Helper()

	course := &models.Course{
		ID:          uuid.NewString(),
		Title:       "Intro to Solidity",
		Slug:        "intro-to-solidity",
		Description: "Smart contract basics",
		SkillTag:    "Solidity",
		Level:       models.LevelIntermediate,
		Lessons:     []string{"Lesson 1", "Lesson 2"},
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

// fakeIPFS counts pin calls so tests can assert that failed preconditions
// never reach the content store.
type fakeIPFS struct {
	pinJSONCalls int
	pinFileCalls int
	failPin      bool
	lastJSON     interface{}
}

func (f *fakeIPFS) PinJSON(ctx context.Context, payload interface{}) (string, error) {
	f.pinJSONCalls++
	if f.failPin {
		return "", fmt.Errorf("%w: pinata unreachable", ErrRemote)
	}
	f.lastJSON = payload
	return "QmFakeJSON", nil
}

func (f *fakeIPFS) PinFile(ctx context.Context, data []byte, name string) (string, error) {
	f.pinFileCalls++
	if f.failPin {
		return "", fmt.Errorf("%w: pinata unreachable", ErrRemote)
	}
	return "QmFakeFile", nil
}

func (f *fakeIPFS) GatewayURL(cid string) string { return "https://gateway.test/ipfs/" + cid }
func (f *fakeIPFS) URI(cid string) string        { return "ipfs://" + cid }

// fakeChain hands out sequential token ids and lets tests flip validity.
type fakeChain struct {
	mintCalls    int
	nextToken    uint64
	failMint     bool
	validByToken map[uint64]bool
}

func (f *fakeChain) MintCertificate(ctx context.Context, recipient, skill, level string, score int, proofCID, metadataURI string) (*MintResult, error) {
	f.mintCalls++
	if f.failMint {
		return nil, fmt.Errorf("%w: mint transaction reverted", ErrRemote)
	}
	id := f.nextToken
	f.nextToken++
	return &MintResult{TokenID: id, TxHash: fmt.Sprintf("0xtx%d", id)}, nil
}

func (f *fakeChain) GetCertificateData(ctx context.Context, tokenID uint64) (*ChainCertificateData, error) {
	valid, err := f.IsValid(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	return &ChainCertificateData{
		Skill:    "Solidity",
		Level:    "Intermediate",
		Score:    85,
		ProofCID: "QmFakeJSON",
		Issuer:   "0x0000000000000000000000000000000000000001",
		Revoked:  !valid,
	}, nil
}

func (f *fakeChain) GetCertificatesByWallet(ctx context.Context, wallet string) ([]uint64, error) {
	tokenIDs := make([]uint64, 0, int(f.nextToken))
	for id := uint64(0); id < f.nextToken; id++ {
		tokenIDs = append(tokenIDs, id)
	}
	return tokenIDs, nil
}

func (f *fakeChain) IsValid(ctx context.Context, tokenID uint64) (bool, error) {
	if f.validByToken == nil {
		return true, nil
	}
	valid, ok := f.validByToken[tokenID]
	if !ok {
		return true, nil
	}
	return valid, nil
}
