// Package sharelink packs a plan into a URL-safe string and back.
//
// The payload is the plan's JSON, zstd-compressed and encoded with unpadded
// base64url so it can sit in a query parameter or fragment as is.
package sharelink

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// maxPlanBytes caps the decompressed size of a payload.
const maxPlanBytes = 1 << 20

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
	)
	if err != nil {
		panic("sharelink: zstd encoder initialization failed: " + err.Error())
	}

	decoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(maxPlanBytes),
	)
	if err != nil {
		panic("sharelink: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode returns the share payload for p.
func Encode(p domain.Plan) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(encoder.EncodeAll(data, nil)), nil
}

// Parse reverses Encode. Every failure matches domain.ErrInvalidSharePlan.
func Parse(payload string) (*domain.Plan, error) {
	payload = strings.TrimRight(strings.TrimSpace(payload), "=")
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrInvalidSharePlan)
	}
	compressed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSharePlan, err)
	}
	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompress: %v", domain.ErrInvalidSharePlan, err)
	}
	if len(data) > maxPlanBytes {
		return nil, fmt.Errorf("%w: payload too large", domain.ErrInvalidSharePlan)
	}
	var p domain.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidSharePlan, err)
	}
	return &p, nil
}

// Decode is Parse for callers that only care whether a plan came out.
// It returns nil on any corruption.
func Decode(payload string) *domain.Plan {
	p, err := Parse(payload)
	if err != nil {
		return nil
	}
	return p
}
