package analyzer_test

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/service/analyzer"
)

type stubDetector struct {
	regions []analyzer.Region
	err     error
}

func (d *stubDetector) Detect(frame image.Image) ([]analyzer.Region, error) {
	return d.regions, d.err
}

func testConfig() analyzer.Config {
	return analyzer.Config{
		MinFaceRatio:        0.15,
		CenterThreshold:     0.3,
		NoFaceConfidence:    0.9,
		MultiFaceConfidence: 0.3,
		TooSmallConfidence:  0.7,
		OffCenterConfidence: 0.6,
	}
}

func newAnalyzer(d analyzer.FaceDetector) *analyzer.FrameAnalyzer {
	return analyzer.NewFrameAnalyzer(d, testConfig(), zerolog.Nop())
}

func frame1000() image.Image {
	return image.NewGray(image.Rect(0, 0, 1000, 1000))
}

func TestAnalyzeNoFace(t *testing.T) {
	a := newAnalyzer(&stubDetector{})

	verdict := a.Analyze(frame1000())

	if !verdict.Detected {
		t.Fatal("expected a violation for a frame with no face")
	}
	if verdict.Type != models.ViolationNoFace {
		t.Fatalf("got type %q, want %q", verdict.Type, models.ViolationNoFace)
	}
	if verdict.Confidence != 0.9 {
		t.Fatalf("got confidence %v, want 0.9", verdict.Confidence)
	}
}

func TestAnalyzeMultipleFaces(t *testing.T) {
	region := analyzer.Region{X: 300, Y: 300, W: 400, H: 400}

	tests := []struct {
		name       string
		faces      int
		confidence float64
	}{
		{"two faces", 2, 0.6},
		{"three faces", 3, 0.9},
		{"confidence capped at one", 4, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regions := make([]analyzer.Region, tt.faces)
			for i := range regions {
				regions[i] = region
			}
			a := newAnalyzer(&stubDetector{regions: regions})

			verdict := a.Analyze(frame1000())

			if !verdict.Detected || verdict.Type != models.ViolationMultipleFaces {
				t.Fatalf("got verdict %+v, want multiple faces violation", verdict)
			}
			if math.Abs(verdict.Confidence-tt.confidence) > 1e-9 {
				t.Fatalf("got confidence %v, want %v", verdict.Confidence, tt.confidence)
			}
			if verdict.FaceCount != tt.faces {
				t.Fatalf("got face count %d, want %d", verdict.FaceCount, tt.faces)
			}
		})
	}
}

func TestAnalyzeFaceTooSmall(t *testing.T) {
	// 100px is 10% of a 1000px frame, below the 15% minimum.
	a := newAnalyzer(&stubDetector{regions: []analyzer.Region{{X: 450, Y: 450, W: 100, H: 100}}})

	verdict := a.Analyze(frame1000())

	if !verdict.Detected || verdict.Type != models.ViolationFaceTooSmall {
		t.Fatalf("got verdict %+v, want face too small violation", verdict)
	}
	if verdict.Confidence != 0.7 {
		t.Fatalf("got confidence %v, want 0.7", verdict.Confidence)
	}
}

func TestAnalyzeSizeBeforeCenter(t *testing.T) {
	// A face that is both tiny and in a corner must report the size check;
	// it runs before the centering check.
	a := newAnalyzer(&stubDetector{regions: []analyzer.Region{{X: 0, Y: 0, W: 100, H: 100}}})

	verdict := a.Analyze(frame1000())

	if verdict.Type != models.ViolationFaceTooSmall {
		t.Fatalf("got type %q, want %q", verdict.Type, models.ViolationFaceTooSmall)
	}
}

func TestAnalyzeFaceOffCenter(t *testing.T) {
	// Center (100, 500) deviates 400px horizontally, past the 300px limit.
	a := newAnalyzer(&stubDetector{regions: []analyzer.Region{{X: 0, Y: 400, W: 200, H: 200}}})

	verdict := a.Analyze(frame1000())

	if !verdict.Detected || verdict.Type != models.ViolationFaceOffCenter {
		t.Fatalf("got verdict %+v, want off-center violation", verdict)
	}
	if verdict.Confidence != 0.6 {
		t.Fatalf("got confidence %v, want 0.6", verdict.Confidence)
	}
}

func TestAnalyzeCleanFrame(t *testing.T) {
	// 400px face centered at (500, 500): large enough and centered.
	a := newAnalyzer(&stubDetector{regions: []analyzer.Region{{X: 300, Y: 300, W: 400, H: 400}}})

	verdict := a.Analyze(frame1000())

	if verdict.Detected {
		t.Fatalf("got verdict %+v, want no violation", verdict)
	}
	if verdict.FaceCount != 1 {
		t.Fatalf("got face count %d, want 1", verdict.FaceCount)
	}
}

func TestAnalyzeBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		region analyzer.Region
		want   string
	}{
		// Exactly 15% wide is acceptable; the check is strictly below.
		{"exact minimum size", analyzer.Region{X: 425, Y: 425, W: 150, H: 150}, ""},
		// Deviation of exactly 30% is acceptable; the check is strictly above.
		{"exact center threshold", analyzer.Region{X: 100, Y: 400, W: 200, H: 200}, ""},
		{"just past center threshold", analyzer.Region{X: 98, Y: 400, W: 200, H: 200}, models.ViolationFaceOffCenter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newAnalyzer(&stubDetector{regions: []analyzer.Region{tt.region}})

			verdict := a.Analyze(frame1000())

			if verdict.Type != tt.want {
				t.Fatalf("got type %q, want %q", verdict.Type, tt.want)
			}
		})
	}
}

func TestAnalyzeDetectorFailure(t *testing.T) {
	a := newAnalyzer(&stubDetector{err: errors.New("cascade exploded")})

	verdict := a.Analyze(frame1000())

	if verdict.Detected {
		t.Fatal("detector failure must not produce a violation")
	}
	if !verdict.Unavailable {
		t.Fatal("detector failure must be surfaced as unavailable")
	}
}
