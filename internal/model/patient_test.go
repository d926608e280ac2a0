package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorsim/edsim/internal/wire"
)

func TestNewProfile(t *testing.T) {
	t.Run("should derive guardian and personsCount from age", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		for i := int64(0); i < 200; i++ {
			p := NewProfile(rng, i)
			assert.GreaterOrEqual(t, p.Age, 1)
			assert.LessOrEqual(t, p.Age, 90)
			assert.Equal(t, p.Age < 18, p.HasGuardian)
			if p.HasGuardian {
				assert.Equal(t, 2, p.PersonsCount)
			} else {
				assert.Equal(t, 1, p.PersonsCount)
			}
			assert.Equal(t, wire.ColorNone, p.TriageColor)
			assert.Equal(t, i, p.ID)
		}
	})

	t.Run("should produce VIPs at roughly the configured rate", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		vipCount := 0
		const n = 5000
		for i := int64(0); i < n; i++ {
			if NewProfile(rng, i).VIP {
				vipCount++
			}
		}
		rate := float64(vipCount) / float64(n)
		assert.InDelta(t, 0.10, rate, 0.03)
	})
}

func TestRegistrationKey(t *testing.T) {
	t.Run("should prefer VIP key for VIP patients", func(t *testing.T) {
		p := Patient{VIP: true}
		assert.Equal(t, wire.KeyVIP, p.RegistrationKey())
	})

	t.Run("should use normal key for non-VIP patients", func(t *testing.T) {
		p := Patient{VIP: false}
		assert.Equal(t, wire.KeyNormal, p.RegistrationKey())
	})
}
