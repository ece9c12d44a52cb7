package keygate

import (
	"context"
	"net/url"
)

// Machine is one hardware activation slot on a license.
type Machine struct {
	Fingerprint string `json:"fingerprint"`
	Hostname    string `json:"hostname,omitempty"`
	OS          string `json:"os,omitempty"`
	Arch        string `json:"arch,omitempty"`
	ActivatedAt int64  `json:"activated_at"`
}

type activateMachineRequest struct {
	Fingerprint string `json:"fingerprint"`
	Hostname    string `json:"hostname,omitempty"`
	OS          string `json:"os,omitempty"`
	Arch        string `json:"arch,omitempty"`
}

// ActivateMachine binds the machine identified by fingerprint to the
// license. The server enforces the license's machine limit and rejects
// duplicate activations.
func (c *Client) ActivateMachine(ctx context.Context, key, fingerprint string) (*Machine, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	var m Machine
	req := activateMachineRequest{Fingerprint: fingerprint}
	if err := c.do(ctx, "POST", "/licenses/"+url.PathEscape(key)+"/machines", req, &m); err != nil {
		return nil, err
	}
	c.cache.invalidate(key)
	return &m, nil
}

// ActivateCurrentMachine fingerprints the local machine and binds it to
// the license.
func (c *Client) ActivateCurrentMachine(ctx context.Context, key string) (*Machine, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	fp, err := c.hwid.Generate()
	if err != nil {
		return nil, err
	}

	var m Machine
	req := activateMachineRequest{
		Fingerprint: fp.Fingerprint,
		Hostname:    fp.Hostname,
		OS:          fp.OS,
		Arch:        fp.Arch,
	}
	if err := c.do(ctx, "POST", "/licenses/"+url.PathEscape(key)+"/machines", req, &m); err != nil {
		return nil, err
	}
	c.cache.invalidate(key)
	return &m, nil
}

// DeactivateMachine releases a machine slot on the license.
func (c *Client) DeactivateMachine(ctx context.Context, key, fingerprint string) error {
	key, err := c.checkKey(key)
	if err != nil {
		return err
	}

	path := "/licenses/" + url.PathEscape(key) + "/machines/" + url.PathEscape(fingerprint)
	if err := c.do(ctx, "DELETE", path, nil, nil); err != nil {
		return err
	}
	c.cache.invalidate(key)
	return nil
}

// ListMachines returns the machines currently bound to the license.
func (c *Client) ListMachines(ctx context.Context, key string) ([]Machine, error) {
	key, err := c.checkKey(key)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Machines []Machine `json:"machines"`
	}
	if err := c.do(ctx, "GET", "/licenses/"+url.PathEscape(key)+"/machines", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Machines, nil
}
