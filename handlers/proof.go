// handlers/proof.go
package handlers

import (
	"skillchain/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProofRoutes(app *fiber.App, proofService *services.ProofService) {
	app.Post("/proofs/submit", proofService.SubmitProof)
	app.Get("/proofs/wallet/:walletAddress", proofService.GetProofsByWallet)
	app.Post("/proofs/:id/evaluate", proofService.EvaluateProof)
}
