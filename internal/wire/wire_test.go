package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorPriorityOrdering(t *testing.T) {
	t.Run("should order red before yellow before green", func(t *testing.T) {
		assert.Less(t, ColorRed.ColorPriority(), ColorYellow.ColorPriority())
		assert.Less(t, ColorYellow.ColorPriority(), ColorGreen.ColorPriority())
	})

	t.Run("should render human-readable names", func(t *testing.T) {
		assert.Equal(t, "red", ColorRed.String())
		assert.Equal(t, "yellow", ColorYellow.String())
		assert.Equal(t, "green", ColorGreen.String())
		assert.Equal(t, "none", ColorNone.String())
	})
}

func TestSpecialistKey(t *testing.T) {
	t.Run("should combine specialist index and color priority", func(t *testing.T) {
		assert.Equal(t, 21, SpecialistKey(2, ColorRed))
		assert.Equal(t, 22, SpecialistKey(2, ColorYellow))
		assert.Equal(t, 23, SpecialistKey(2, ColorGreen))
	})

	t.Run("should keep keys ordered across specialist indices", func(t *testing.T) {
		assert.Less(t, SpecialistKey(0, ColorGreen), SpecialistKey(1, ColorRed))
	})
}

func TestSpecialistMaxKey(t *testing.T) {
	t.Run("should admit every color within its own specialist type", func(t *testing.T) {
		maxKey := SpecialistMaxKey(3)
		for _, c := range []Color{ColorRed, ColorYellow, ColorGreen} {
			assert.LessOrEqual(t, SpecialistKey(3, c), maxKey)
		}
	})

	t.Run("should exclude a different specialist type's keys", func(t *testing.T) {
		maxKey := SpecialistMaxKey(0)
		assert.Greater(t, SpecialistKey(1, ColorRed), maxKey)
	})
}
