package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStaticStore(t *testing.T) {
	store := NewStatic()

	t.Run("VMOnDemandMonthly", func(t *testing.T) {
		cost, ok := store.VMOnDemandMonthly("Standard_D2s_v3")
		assert.True(t, ok)
		assert.Equal(t, 96.0, cost)

		_, ok = store.VMOnDemandMonthly("Standard_B1s")
		assert.False(t, ok)
	})

	t.Run("AppServicePlanMonthly", func(t *testing.T) {
		cost, ok := store.AppServicePlanMonthly("S3")
		assert.True(t, ok)
		assert.Equal(t, 292.0, cost)

		_, ok = store.AppServicePlanMonthly("B1")
		assert.False(t, ok)
	})

	t.Run("SQLDatabaseMonthly", func(t *testing.T) {
		cost, ok := store.SQLDatabaseMonthly("P1")
		assert.True(t, ok)
		assert.Equal(t, 465.0, cost)

		_, ok = store.SQLDatabaseMonthly("GP_Gen5_8")
		assert.False(t, ok)
	})

	t.Run("SQLVCoreMonthly", func(t *testing.T) {
		assert.Equal(t, 610.0, store.SQLVCoreMonthly(4))
		assert.Equal(t, 1220.0, store.SQLVCoreMonthly(8))
	})
}
