// handlers/certificate.go
package handlers

import (
	"skillchain/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCertificateRoutes(app *fiber.App, certificateService *services.CertificateService) {
	app.Post("/certificates/mint", certificateService.MintCertificate)
	app.Get("/certificates/token/:tokenId", certificateService.GetCertificateByTokenID)
	app.Get("/certificates/wallet/:walletAddress", certificateService.GetCertificatesByWallet)
	app.Get("/certificates/verify/:tokenId", certificateService.VerifyCertificate)
}
