// Package country resolves the buyer's shipping destination.
package country

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/your-org/marketplace-backend/internal/pkg/apperrors"
)

// CookieName is the cookie holding the buyer's country preference
const CookieName = "userCountry"

// HeaderName lets API clients pass the preference without cookies
const HeaderName = "X-User-Country"

// Destination is the buyer's shipping destination
type Destination struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`
}

// Parse decodes a stored preference. Cookie values may arrive URL-encoded.
func Parse(raw string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, apperrors.New(apperrors.KindValidation, "empty country preference")
	}
	if !strings.HasPrefix(raw, "{") {
		unescaped, err := url.QueryUnescape(raw)
		if err != nil {
			return Destination{}, apperrors.Wrap(apperrors.KindValidation, "malformed country preference", err)
		}
		raw = unescaped
	}

	var d Destination
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return Destination{}, apperrors.Wrap(apperrors.KindValidation, "malformed country preference", err)
	}

	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return Destination{}, err
	}
	return d, nil
}

// Normalize trims every field and upper-cases the code
func (d Destination) Normalize() Destination {
	return Destination{
		Name:   strings.TrimSpace(d.Name),
		Code:   strings.ToUpper(strings.TrimSpace(d.Code)),
		City:   strings.TrimSpace(d.City),
		Region: strings.TrimSpace(d.Region),
	}
}

// Validate requires a name and a two-letter code
func (d Destination) Validate() error {
	if d.Name == "" {
		return apperrors.New(apperrors.KindValidation, "country name is required")
	}
	if len(d.Code) != 2 {
		return apperrors.New(apperrors.KindValidation, fmt.Sprintf("invalid country code %q", d.Code))
	}
	return nil
}

// Encode returns the JSON form stored in the cookie and in redis
func (d Destination) Encode() string {
	b, _ := json.Marshal(d)
	return string(b)
}

func (d Destination) String() string {
	return fmt.Sprintf("%s (%s)", d.Name, d.Code)
}
