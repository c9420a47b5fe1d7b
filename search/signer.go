package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
)

// RequestSigner authenticates an outgoing request. body is the exact payload
// that will be sent.
type RequestSigner interface {
	Sign(ctx context.Context, req *http.Request, body []byte) error
}

// SigV4Signer signs requests for an Amazon OpenSearch domain.
type SigV4Signer struct {
	credentials aws.CredentialsProvider
	region      string
	signer      *v4.Signer
	now         func() time.Time
}

// NewSigV4Signer signs with credentials from provider for region.
func NewSigV4Signer(provider aws.CredentialsProvider, region string) *SigV4Signer {
	if region == "" {
		region = DefaultRegion
	}
	return &SigV4Signer{
		credentials: provider,
		region:      region,
		signer:      v4.NewSigner(),
		now:         time.Now,
	}
}

// LoadSigV4Signer resolves credentials through the default AWS chain
// (environment, shared config, instance role).
func LoadSigV4Signer(ctx context.Context, region string) (*SigV4Signer, error) {
	if region == "" {
		region = DefaultRegion
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewSigV4Signer(cfg.Credentials, region), nil
}

// Sign implements RequestSigner.
func (s *SigV4Signer) Sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve aws credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(sum[:])
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, signingService, s.region, s.now()); err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	return nil
}
