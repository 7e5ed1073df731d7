package analyzer

import (
	"fmt"
	"image"
	"math"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
)

type Config struct {
	MinFaceRatio        float64
	CenterThreshold     float64
	NoFaceConfidence    float64
	MultiFaceConfidence float64
	TooSmallConfidence  float64
	OffCenterConfidence float64
}

// FrameAnalyzer classifies one decoded frame into a violation verdict using
// geometric checks on the detected face regions. Checks run in priority
// order; the first one that fires wins and the rest are skipped.
type FrameAnalyzer struct {
	detector FaceDetector
	cfg      Config
	logger   zerolog.Logger
}

func NewFrameAnalyzer(detector FaceDetector, cfg Config, logger zerolog.Logger) *FrameAnalyzer {
	return &FrameAnalyzer{
		detector: detector,
		cfg:      cfg,
		logger:   logger,
	}
}

func (a *FrameAnalyzer) Analyze(frame image.Image) models.Verdict {
	regions, err := a.detector.Detect(frame)
	if err != nil {
		// Detector failure is not a violation, but it is surfaced so a
		// policy layer can treat repeated failures as suspicious.
		a.logger.Warn().Err(err).Msg("Face detection unavailable for frame")
		return models.Verdict{
			Unavailable: true,
			Message:     "face detection unavailable",
		}
	}

	if len(regions) == 0 {
		return models.Verdict{
			Detected:   true,
			Type:       models.ViolationNoFace,
			Confidence: a.cfg.NoFaceConfidence,
			Message:    "No face detected in frame",
		}
	}

	if len(regions) > 1 {
		return models.Verdict{
			Detected:   true,
			Type:       models.ViolationMultipleFaces,
			Confidence: math.Min(1.0, float64(len(regions))*a.cfg.MultiFaceConfidence),
			Message:    fmt.Sprintf("Multiple faces detected: %d", len(regions)),
			FaceCount:  len(regions),
		}
	}

	face := regions[0]
	bounds := frame.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())

	if float64(face.W) < width*a.cfg.MinFaceRatio || float64(face.H) < height*a.cfg.MinFaceRatio {
		return models.Verdict{
			Detected:   true,
			Type:       models.ViolationFaceTooSmall,
			Confidence: a.cfg.TooSmallConfidence,
			Message:    "Face appears too small - possible attention issue",
			FaceCount:  1,
		}
	}

	if math.Abs(face.CenterX()-width/2) > width*a.cfg.CenterThreshold ||
		math.Abs(face.CenterY()-height/2) > height*a.cfg.CenterThreshold {
		return models.Verdict{
			Detected:   true,
			Type:       models.ViolationFaceOffCenter,
			Confidence: a.cfg.OffCenterConfidence,
			Message:    "Face not properly centered in frame",
			FaceCount:  1,
		}
	}

	return models.Verdict{FaceCount: 1}
}
