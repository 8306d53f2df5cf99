package apiclient

// HealthStatus is the server's readiness snapshot.
type HealthStatus struct {
	Status string `json:"status"`
	Images int64  `json:"images"`
}

type healthResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Images  int64  `json:"images"`
}

// Health checks the readiness endpoint, which also probes the metadata store.
func (c *Client) Health() (*HealthStatus, error) {
	var resp healthResponse
	if err := c.get("/health/ready", &resp); err != nil {
		return nil, err
	}
	return &HealthStatus{Status: resp.Status, Images: resp.Images}, nil
}
