package aggregators

import (
	"errors"
	"fmt"
	"strings"

	"edge-log-analytics/internal/models"

	"github.com/mileusna/useragent"
)

var ErrEmptyMarker = errors.New("classifier marker cannot be empty")

// ClassifierConfig holds the substrings that identify each client class.
type ClassifierConfig struct {
	IOSMarker     string
	AndroidMarker string
	WebMarker     string
	// OSFallback also treats user agents that parse as iOS / Android devices as such
	// when the marker is missing.
	OSFallback bool
}

//go:generate mockgen -source=traffic_classifier.go -destination=./mocks/traffic_classifier_mock.go -package=mocks
type TrafficClassifier interface {
	// Classify assigns exactly one client class. Empty userAgent or referer means absent.
	Classify(userAgent, referer string) models.ClientClass
}

type trafficClassifier struct {
	cfg ClassifierConfig
}

func NewTrafficClassifier(cfg ClassifierConfig) (TrafficClassifier, error) {
	markers := []struct{ name, value string }{
		{"ios", cfg.IOSMarker},
		{"android", cfg.AndroidMarker},
		{"web", cfg.WebMarker},
	}
	for _, m := range markers {
		if strings.TrimSpace(m.value) == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyMarker, m.name)
		}
	}
	return &trafficClassifier{cfg: cfg}, nil
}

func (c *trafficClassifier) Classify(userAgent, referer string) models.ClientClass {
	if userAgent != "" {
		var parsed useragent.UserAgent
		if c.cfg.OSFallback {
			parsed = useragent.Parse(userAgent)
		}
		if strings.Contains(userAgent, c.cfg.IOSMarker) || parsed.IsIOS() {
			return models.ClassIOS
		}
		if strings.Contains(userAgent, c.cfg.AndroidMarker) || parsed.IsAndroid() {
			return models.ClassAndroid
		}
	}
	if referer != "" && strings.Contains(referer, c.cfg.WebMarker) {
		return models.ClassWeb
	}
	return models.ClassOther
}
