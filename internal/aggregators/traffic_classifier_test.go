package aggregators

import (
	"testing"

	"edge-log-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	iPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	androidUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Mobile Safari/537.36"
)

func testClassifierConfig() ClassifierConfig {
	return ClassifierConfig{IOSMarker: "iOS", AndroidMarker: "Android", WebMarker: "livescore.com"}
}

func TestTrafficClassifier_Classify(t *testing.T) {
	t.Parallel()

	classifier, err := NewTrafficClassifier(testClassifierConfig())
	require.NoError(t, err)

	tests := []struct {
		name      string
		userAgent string
		referer   string
		want      models.ClientClass
	}{
		{"ios marker wins over web referer", "LiveScore/iOS 3.2", "https://www.livescore.com/x", models.ClassIOS},
		{"android marker", "LiveScore/Android 5.1", "", models.ClassAndroid},
		{"ios checked before android", "iOS Android", "", models.ClassIOS},
		{"web referer", "Mozilla/5.0", "https://www.livescore.com/en/football", models.ClassWeb},
		{"web referer without user agent", "", "https://www.livescore.com/", models.ClassWeb},
		{"unknown", "curl/8.0", "https://example.org", models.ClassOther},
		{"nothing present", "", "", models.ClassOther},
		{"markers are case sensitive", "livescore/ios", "", models.ClassOther},
		{"browser on iphone without marker", iPhoneUA, "", models.ClassOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifier.Classify(tt.userAgent, tt.referer))
		})
	}
}

func TestTrafficClassifier_OSFallback(t *testing.T) {
	t.Parallel()

	cfg := testClassifierConfig()
	cfg.OSFallback = true
	classifier, err := NewTrafficClassifier(cfg)
	require.NoError(t, err)

	assert.Equal(t, models.ClassIOS, classifier.Classify(iPhoneUA, "https://www.livescore.com/"))
	assert.Equal(t, models.ClassAndroid, classifier.Classify(androidUA, ""))
	assert.Equal(t, models.ClassOther, classifier.Classify("curl/8.0", ""))
}

func TestNewTrafficClassifier_RejectsEmptyMarkers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*ClassifierConfig)
	}{
		{"ios", func(c *ClassifierConfig) { c.IOSMarker = "" }},
		{"android", func(c *ClassifierConfig) { c.AndroidMarker = "  " }},
		{"web", func(c *ClassifierConfig) { c.WebMarker = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testClassifierConfig()
			tt.mutate(&cfg)
			_, err := NewTrafficClassifier(cfg)
			assert.ErrorIs(t, err, ErrEmptyMarker)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}
