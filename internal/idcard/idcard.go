// Package idcard renders vendor identity cards as QR codes scannable at
// marketplace entry points.
package idcard

import (
	"encoding/json"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/marketconnect/marketconnect/internal/models"
)

const pngSize = 256

type payload struct {
	VendorID     uint   `json:"vendor_id"`
	BusinessName string `json:"business_name"`
	Email        string `json:"email"`
	IssuedAt     string `json:"issued_at"`
}

// PNG encodes the vendor's identity as a QR code image.
func PNG(v *models.Vendor) ([]byte, error) {
	p := payload{
		VendorID:     v.ID,
		BusinessName: v.BusinessName,
		Email:        v.Email,
		IssuedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, pngSize)
}
