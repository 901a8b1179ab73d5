package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "What will the weather be like in Cologne tomorrow evening?", "en"},
		{"german", "Wie wird das Wetter morgen Abend in Köln sein? Wird es regnen oder bleibt es trocken?", "de"},
		{"empty", "   ", Fallback},
		{"digits only", "12345 67890", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.text))
		})
	}
}
