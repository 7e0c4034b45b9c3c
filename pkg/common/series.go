package common

import (
	"fmt"
	"strings"
	"time"
)

// SeriesKey identifies a stored bar or trade series. Bars built by different
// classifiers differ, so the classifier name is part of the key.
type SeriesKey struct {
	Instrument string        `json:"instrument"`
	Dataset    string        `json:"dataset"`
	Period     time.Duration `json:"period"`
	From       time.Time     `json:"from"`
	To         time.Time     `json:"to"`
	Classifier string        `json:"classifier,omitempty"`
}

func (k SeriesKey) String() string {
	s := fmt.Sprintf("%s:%s:%s:%d:%d", k.Instrument, k.Dataset, k.Period, k.From.UnixNano(), k.To.UnixNano())
	if k.Classifier != "" {
		s += ":" + k.Classifier
	}
	return s
}

// Slug is a file system safe form of the key.
func (k SeriesKey) Slug() string {
	r := strings.NewReplacer(":", "_", "/", "_", ".", "-", " ", "")
	return r.Replace(k.String())
}
