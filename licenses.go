package keygate

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"keygate/internal/pkg/validator"
)

// License is a license record as the API returns it.
type License struct {
	Key         string            `json:"key"`
	Owner       string            `json:"owner"`
	Plan        string            `json:"plan"`
	Status      string            `json:"status"` // active, suspended, expired, revoked
	MaxMachines int               `json:"max_machines"`
	Machines    []Machine         `json:"machines,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ExpiresAt   int64             `json:"expires_at,omitempty"`
	CreatedAt   int64             `json:"created_at"`
	UpdatedAt   int64             `json:"updated_at"`
}

// CreateLicenseParams are the fields accepted when creating a license.
type CreateLicenseParams struct {
	Owner       string            `json:"owner"`
	Plan        string            `json:"plan"`
	MaxMachines int               `json:"max_machines,omitempty"`
	ExpiresAt   int64             `json:"expires_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// UpdateLicenseParams are the fields accepted when updating a license.
// Zero-valued fields are left unchanged by the server.
type UpdateLicenseParams struct {
	Plan        string            `json:"plan,omitempty"`
	Status      string            `json:"status,omitempty"`
	MaxMachines int               `json:"max_machines,omitempty"`
	ExpiresAt   int64             `json:"expires_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ListLicensesParams filter and paginate ListLicenses.
type ListLicensesParams struct {
	Status  string
	Page    int
	PerPage int
}

// LicenseList is one page of licenses.
type LicenseList struct {
	Licenses []License `json:"licenses"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

// Validation is the server's verdict on a license key, possibly served
// from the local cache.
type Validation struct {
	Valid     bool     `json:"valid"`
	Status    string   `json:"status"`
	Reason    string   `json:"reason,omitempty"`
	License   *License `json:"license,omitempty"`
	CheckedAt int64    `json:"checked_at"`
}

// CreateLicense issues a new license.
func (c *Client) CreateLicense(ctx context.Context, params CreateLicenseParams) (*License, error) {
	var lic License
	if err := c.do(ctx, "POST", "/licenses", params, &lic); err != nil {
		return nil, err
	}
	return &lic, nil
}

// GetLicense fetches a single license by key.
func (c *Client) GetLicense(ctx context.Context, key string) (*License, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	var lic License
	if err := c.do(ctx, "GET", "/licenses/"+url.PathEscape(key), nil, &lic); err != nil {
		return nil, err
	}
	return &lic, nil
}

// ListLicenses returns one page of licenses.
func (c *Client) ListLicenses(ctx context.Context, params ListLicensesParams) (*LicenseList, error) {
	q := url.Values{}
	if params.Status != "" {
		q.Set("status", params.Status)
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(params.PerPage))
	}

	path := "/licenses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list LicenseList
	if err := c.do(ctx, "GET", path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateLicense applies a partial update to a license.
func (c *Client) UpdateLicense(ctx context.Context, key string, params UpdateLicenseParams) (*License, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	var lic License
	if err := c.do(ctx, "PATCH", "/licenses/"+url.PathEscape(key), params, &lic); err != nil {
		return nil, err
	}
	c.cache.invalidate(key)
	return &lic, nil
}

// DeleteLicense revokes and removes a license.
func (c *Client) DeleteLicense(ctx context.Context, key string) error {
	key, err := c.checkKey(key)
	if err != nil {
		return err
	}

	if err := c.do(ctx, "DELETE", "/licenses/"+url.PathEscape(key), nil, nil); err != nil {
		return err
	}
	c.cache.invalidate(key)
	return nil
}

// ValidateLicense asks the server whether key is currently valid. Results
// are cached locally for the configured TTL, so hot paths can call this on
// every run without hammering the API.
func (c *Client) ValidateLicense(ctx context.Context, key string) (*Validation, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	if v, ok := c.cache.get(key); ok {
		c.log.Debug().Str("license_key", maskKey(key)).Msg("validation served from cache")
		return v, nil
	}

	var v Validation
	if err := c.do(ctx, "POST", "/licenses/"+url.PathEscape(key)+"/validate", nil, &v); err != nil {
		return nil, err
	}
	v.CheckedAt = time.Now().Unix()
	c.cache.set(key, v)
	return &v, nil
}

// InvalidateValidation drops any cached validation for key, forcing the
// next ValidateLicense to hit the server.
func (c *Client) InvalidateValidation(key string) {
	c.cache.invalidate(validator.NormalizeKey(key))
}

// checkKey normalizes and format-checks a license key.
func (c *Client) checkKey(key string) (string, error) {
	key = validator.NormalizeKey(key)
	if err := validator.ValidateKey(key); err != nil {
		return "", fmt.Errorf("keygate: %w", err)
	}
	return key, nil
}

// maskKey hides most of a license key for logging.
func maskKey(key string) string {
	if len(key) <= 7 {
		return "***"
	}
	return key[:7] + "****"
}
