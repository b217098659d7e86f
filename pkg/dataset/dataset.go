package dataset

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ishanwen-byte/symrule-go/internal/types"
	"github.com/ishanwen-byte/symrule-go/pkg/errors"
)

// Annotation is a single detection in an annotation file.
type Annotation struct {
	CategoryName string    `json:"category_name"`
	Score        float64   `json:"score"`
	BBox         []float64 `json:"bbox"`
	ImageName    string    `json:"image_name,omitempty"`
}

// Sample is the set of detections for one image.
type Sample struct {
	ImagePath   string
	Annotations []Annotation
}

// Labeler maps an image path to a binary class label.
type Labeler func(imagePath string) int

// PathLabeler labels a sample positive when its path follows the
// positive-set naming convention.
func PathLabeler(imagePath string) int {
	if strings.Contains(imagePath, "positive") ||
		strings.Contains(filepath.Base(imagePath), "P") ||
		strings.Contains(imagePath, "event_whx") {
		return 1
	}
	return 0
}

// MapLabeler labels samples by looking up the last four path segments
// in an explicit label map.
func MapLabeler(labels map[string]int) Labeler {
	return func(imagePath string) int {
		parts := strings.Split(imagePath, "/")
		if len(parts) > 4 {
			parts = parts[len(parts)-4:]
		}
		return labels[strings.Join(parts, "/")]
	}
}

// Split is a train/validation partition of loaded samples.
type Split struct {
	Train []Sample
	Val   []Sample
}

// Loader reads detection annotation directories into samples.
type Loader struct {
	cfg    types.DataConfig
	rng    *rand.Rand
	logger *logrus.Logger
}

// NewLoader creates a loader. The seed fixes the train/validation split.
func NewLoader(cfg types.DataConfig, seed int64) *Loader {
	return &Loader{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logrus.StandardLogger(),
	}
}

// SetLogger replaces the loader's logger.
func (l *Loader) SetLogger(logger *logrus.Logger) {
	l.logger = logger
}

// LoadDir reads every .json file under dir, applies the score and IoU
// filter, and splits the samples into train and validation sets.
// Unreadable files are logged and skipped.
func (l *Loader) LoadDir(dir string, scoreThreshold float64) (*Split, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.Resource, "failed to read annotation directory")
	}

	samples := make([]Sample, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		sample, err := l.loadFile(path, scoreThreshold)
		if err != nil {
			l.logger.WithFields(logrus.Fields{
				"file":  path,
				"error": err,
			}).Warn("Skipping unreadable annotation file")
			continue
		}
		samples = append(samples, sample)
	}

	if len(samples) == 0 {
		return nil, errors.Newf(errors.Resource, "no annotation files found in %s", dir)
	}

	split := l.split(samples)
	l.logger.WithFields(logrus.Fields{
		"dir":       dir,
		"threshold": scoreThreshold,
		"train":     len(split.Train),
		"val":       len(split.Val),
	}).Info("Loaded annotation directory")

	return split, nil
}

// loadFile decodes one annotation file. Files are JSON arrays of
// detection objects, optionally ending with a bare image path string.
func (l *Loader) loadFile(path string, scoreThreshold float64) (Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sample{}, errors.Wrap(err, errors.Resource, "failed to read annotation file")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Sample{}, errors.Wrap(err, errors.Resource, "failed to parse annotation file")
	}

	sample := Sample{ImagePath: path}
	for _, item := range raw {
		var imagePath string
		if err := json.Unmarshal(item, &imagePath); err == nil {
			sample.ImagePath = imagePath
			continue
		}

		var ann Annotation
		if err := json.Unmarshal(item, &ann); err != nil {
			return Sample{}, errors.Wrap(err, errors.Resource, "malformed annotation entry")
		}
		if ann.ImageName != "" {
			sample.ImagePath = ann.ImageName
		}
		sample.Annotations = append(sample.Annotations, ann)
	}

	if l.cfg.IoUFilter {
		sample.Annotations = FilterAnnotations(sample.Annotations, scoreThreshold, l.cfg.IoUThreshold)
	}
	return sample, nil
}

// FilterAnnotations drops detections below the score threshold and
// deduplicates overlapping boxes, keeping the first of any pair whose
// IoU exceeds iouThreshold.
func FilterAnnotations(anns []Annotation, scoreThreshold, iouThreshold float64) []Annotation {
	filtered := make([]Annotation, 0, len(anns))
	kept := make([][]float64, 0, len(anns))

	for _, ann := range anns {
		if ann.Score < scoreThreshold {
			continue
		}
		if len(ann.BBox) == 4 && overlapsAny(ann.BBox, kept, iouThreshold) {
			continue
		}
		filtered = append(filtered, ann)
		if len(ann.BBox) == 4 {
			kept = append(kept, ann.BBox)
		}
	}
	return filtered
}

func overlapsAny(box []float64, kept [][]float64, iouThreshold float64) bool {
	for _, other := range kept {
		if IoUXYWH(box, other) > iouThreshold {
			return true
		}
	}
	return false
}

// split partitions samples into train and validation sets. A ratio
// outside (0, 1) uses the full set on both sides; a positive search
// scale overrides the ratio with a fixed train count.
func (l *Loader) split(samples []Sample) *Split {
	ratio := l.cfg.TrainTestRatio
	if ratio <= 0 || ratio >= 1 {
		return &Split{Train: samples, Val: samples}
	}

	numTrain := int(float64(len(samples)) * ratio)
	if l.cfg.SearchScale > 0 {
		numTrain = l.cfg.SearchScale
	}
	if numTrain > len(samples) {
		numTrain = len(samples)
	}

	perm := l.rng.Perm(len(samples))
	trainIdx := make(map[int]struct{}, numTrain)
	for _, i := range perm[:numTrain] {
		trainIdx[i] = struct{}{}
	}

	split := &Split{
		Train: make([]Sample, 0, numTrain),
		Val:   make([]Sample, 0, len(samples)-numTrain),
	}
	for i, s := range samples {
		if _, ok := trainIdx[i]; ok {
			split.Train = append(split.Train, s)
		} else {
			split.Val = append(split.Val, s)
		}
	}
	return split
}

// DiscoverLabels returns the sorted set of category names present in
// the samples.
func DiscoverLabels(samples []Sample) []string {
	seen := make(map[string]struct{})
	for _, s := range samples {
		for _, ann := range s.Annotations {
			seen[ann.CategoryName] = struct{}{}
		}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// FeatureMatrix builds per-sample category-count feature vectors over
// the ordered label set, with binary targets from the labeler.
func FeatureMatrix(samples []Sample, labels []string, labeler Labeler) ([][]float64, []int) {
	if labeler == nil {
		labeler = PathLabeler
	}

	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}

	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		row := make([]float64, len(labels))
		for _, ann := range s.Annotations {
			if j, ok := index[ann.CategoryName]; ok {
				row[j]++
			}
		}
		X[i] = row
		y[i] = labeler(s.ImagePath)
	}
	return X, y
}
