package analyzer

import (
	"errors"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// ErrDetectorFailed wraps any internal failure of the face detector. Callers
// treat it as "analysis unavailable", never as a violation.
var ErrDetectorFailed = errors.New("face detector failed")

// Region is one detected face in frame coordinates.
type Region struct {
	X int
	Y int
	W int
	H int
}

func (r Region) CenterX() float64 { return float64(r.X) + float64(r.W)/2 }
func (r Region) CenterY() float64 { return float64(r.Y) + float64(r.H)/2 }

// FaceDetector finds face regions in a decoded frame. The detection algorithm
// behind it is a black box; the analyzer only consumes bounding boxes.
type FaceDetector interface {
	Detect(frame image.Image) ([]Region, error)
}

type DetectorConfig struct {
	CascadeFile      string
	ScaleFactor      float64
	QualityThreshold float64
	MinRegionSize    int
}

type pigoDetector struct {
	classifier *pigo.Pigo
	cfg        DetectorConfig
}

// NewPigoDetector loads the cascade file once and reuses the classifier for
// every frame. Detection itself is stateless and safe for concurrent use.
func NewPigoDetector(cfg DetectorConfig) (FaceDetector, error) {
	cascade, err := os.ReadFile(cfg.CascadeFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file %s: %w", cfg.CascadeFile, err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	return &pigoDetector{
		classifier: classifier,
		cfg:        cfg,
	}, nil
}

func (d *pigoDetector) Detect(frame image.Image) (regions []Region, err error) {
	// The classifier operates on raw pixel buffers; a malformed frame can
	// make it panic, which must surface as ErrDetectorFailed.
	defer func() {
		if r := recover(); r != nil {
			regions = nil
			err = fmt.Errorf("%w: %v", ErrDetectorFailed, r)
		}
	}()

	bounds := frame.Bounds()
	rows := bounds.Dy()
	cols := bounds.Dx()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrDetectorFailed)
	}

	pixels := pigo.RgbToGrayscale(frame)

	maxSize := rows
	if cols > maxSize {
		maxSize = cols
	}

	params := pigo.CascadeParams{
		MinSize:     d.cfg.MinRegionSize,
		MaxSize:     maxSize,
		ShiftFactor: 0.1,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	detections := d.classifier.RunCascade(params, 0.0)
	detections = d.classifier.ClusterDetections(detections, 0.2)

	for _, det := range detections {
		if float64(det.Q) < d.cfg.QualityThreshold {
			continue
		}

		regions = append(regions, Region{
			X: det.Col - det.Scale/2,
			Y: det.Row - det.Scale/2,
			W: det.Scale,
			H: det.Scale,
		})
	}

	return regions, nil
}
