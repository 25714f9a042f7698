package service

import (
	"time"

	"github.com/nammatraffic/backend/internal/domain"
)

// VisionSource is a placeholder snapshot source for camera-based vehicle
// detection. No camera pipeline is wired in, so it always reports itself
// unavailable and deployments stay on the simulator.
type VisionSource struct{}

// NewVisionSource creates the stub source.
func NewVisionSource() *VisionSource { return &VisionSource{} }

// Snapshots implements domain.SnapshotSource.
func (v *VisionSource) Snapshots(time.Time) (map[string]domain.TrafficSnapshot, error) {
	return nil, domain.ErrSourceUnavailable
}
