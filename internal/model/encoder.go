// Package model provides the statistical-model collaborators of the rule
// engine: the crop label encoder, predictor backends and the registry that
// holds the currently loaded model bundle.
package model

import (
	"sort"

	"github.com/fertilizer-advisor/internal/domain"
)

// LabelEncoder maps crop names to integer codes. Classes are stored sorted so
// codes match a label encoder fitted on the same set of names.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder builds an encoder over the given class names. Duplicates are
// dropped.
func NewLabelEncoder(classes []string) *LabelEncoder {
	seen := make(map[string]struct{}, len(classes))
	sorted := make([]string, 0, len(classes))
	for _, c := range classes {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	index := make(map[string]int, len(sorted))
	for i, c := range sorted {
		index[c] = i
	}
	return &LabelEncoder{classes: sorted, index: index}
}

// NewCropEncoder returns an encoder fitted on the known crop set.
func NewCropEncoder() *LabelEncoder {
	crops := domain.AllCrops()
	names := make([]string, len(crops))
	for i, c := range crops {
		names[i] = string(c)
	}
	return NewLabelEncoder(names)
}

// Encode returns the code for crop, or 0 when the name is not a known class.
func (e *LabelEncoder) Encode(crop string) int {
	if code, ok := e.index[crop]; ok {
		return code
	}
	return 0
}

// Decode returns the class name for code.
func (e *LabelEncoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.classes) {
		return "", false
	}
	return e.classes[code], true
}

// Classes returns the fitted class names in code order.
func (e *LabelEncoder) Classes() []string {
	out := make([]string, len(e.classes))
	copy(out, e.classes)
	return out
}
