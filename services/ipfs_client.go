// services/ipfs_client.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-resty/resty/v2"
)

// IPFSClient pins blobs to the content-addressed store. Anything fetched by
// the returned CID is immutable, so uploads must happen before any DB write
// that references them.
type IPFSClient interface {
	PinJSON(ctx context.Context, payload interface{}) (string, error)
	PinFile(ctx context.Context, data []byte, name string) (string, error)
	GatewayURL(cid string) string
	URI(cid string) string
}

const pinataAPIURL = "https://api.pinata.cloud"

// PinataClient pins through the Pinata REST API using JWT bearer auth.
type PinataClient struct {
	http    *resty.Client
	gateway string
}

func NewPinataClient(http *resty.Client) *PinataClient {
	jwt := os.Getenv("PINATA_JWT")
	if jwt == "" {
		log.Println("⚠️  PINATA_JWT is not set — pinning requests will be rejected by Pinata")
	}

	gateway := os.Getenv("PINATA_GATEWAY_URL")
	if gateway == "" {
		gateway = "https://gateway.pinata.cloud"
	}

	return &PinataClient{
		http:    http.SetBaseURL(pinataAPIURL).SetAuthToken(jwt),
		gateway: gateway,
	}
}

type pinataPinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func (p *PinataClient) PinJSON(ctx context.Context, payload interface{}) (string, error) {
	var out pinataPinResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&out).
		Post("/pinning/pinJSONToIPFS")
	if err != nil {
		return "", fmt.Errorf("%w: pin json: %v", ErrRemote, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: pinata returned status %d", ErrRemote, resp.StatusCode())
	}
	return out.IpfsHash, nil
}

func (p *PinataClient) PinFile(ctx context.Context, data []byte, name string) (string, error) {
	var out pinataPinResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetFileReader("file", name, bytes.NewReader(data)).
		SetResult(&out).
		Post("/pinning/pinFileToIPFS")
	if err != nil {
		return "", fmt.Errorf("%w: pin file: %v", ErrRemote, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: pinata returned status %d", ErrRemote, resp.StatusCode())
	}
	return out.IpfsHash, nil
}

// GatewayURL returns the HTTP URL a browser can fetch the pinned content from.
func (p *PinataClient) GatewayURL(cid string) string {
	return fmt.Sprintf("%s/ipfs/%s", p.gateway, cid)
}

// URI returns the content-addressed URI used in token metadata.
func (p *PinataClient) URI(cid string) string {
	return "ipfs://" + cid
}
