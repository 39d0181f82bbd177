package ddn

import (
	"context"
	"fmt"
	"net/http"
)

// VolumeRequest describes an IntelliFlash volume to create. Compression and
// deduplication default to enabled, matching the platform defaults.
type VolumeRequest struct {
	Name          string `json:"name" mapstructure:"name"`
	SizeGB        int    `json:"size_gb" mapstructure:"size_gb"`
	Compression   *bool  `json:"compression" mapstructure:"compression"`
	Deduplication *bool  `json:"deduplication" mapstructure:"deduplication"`
}

// IntelliflashSystemInfo fetches IntelliFlash system information.
func (c *Client) IntelliflashSystemInfo(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.IntelliFlash+"/api/v1/system/info")
}

// CreateVolume creates an IntelliFlash volume and returns its volume ID.
func (c *Client) CreateVolume(ctx context.Context, req VolumeRequest) (string, error) {
	enabled := true

	if req.Compression == nil {
		req.Compression = &enabled
	}

	if req.Deduplication == nil {
		req.Deduplication = &enabled
	}

	return c.postCreated(ctx, c.cfg.IntelliFlash+"/api/v1/volumes/create", req, "volume_id")
}

// Volume fetches the details of one IntelliFlash volume.
func (c *Client) Volume(ctx context.Context, volumeID string) (*Response, error) {
	return c.get(ctx, c.volumeURL(volumeID))
}

// ResizeVolume updates the size of an IntelliFlash volume.
func (c *Client) ResizeVolume(ctx context.Context, volumeID string, sizeGB int) (*Response, error) {
	payload := map[string]any{"size_gb": sizeGB}

	return c.send(ctx, http.MethodPatch, c.volumeURL(volumeID), payload)
}

// DeleteVolume deletes an IntelliFlash volume.
func (c *Client) DeleteVolume(ctx context.Context, volumeID string) (*Response, error) {
	return c.send(ctx, http.MethodDelete, c.volumeURL(volumeID), nil)
}

// StorageEfficiency fetches dedup and compression efficiency metrics.
func (c *Client) StorageEfficiency(ctx context.Context) (*Response, error) {
	return c.get(ctx, c.cfg.IntelliFlash+"/api/v1/storage/efficiency")
}

func (c *Client) volumeURL(volumeID string) string {
	return fmt.Sprintf("%s/api/v1/volumes/%s", c.cfg.IntelliFlash, volumeID)
}
