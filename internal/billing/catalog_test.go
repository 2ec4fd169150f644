package billing

import (
	"testing"

	"commercekit/internal/types"
)

func TestNewStaticTierCatalog(t *testing.T) {
	if NewStaticTierCatalog() == nil {
		t.Fatal("NewStaticTierCatalog returned nil")
	}
}

func TestFeaturesFor_FreeTier(t *testing.T) {
	cat := NewStaticTierCatalog()

	assertFeatures(t, "free", cat.FeaturesFor(types.TierFree), types.FeatureSet{
		APICallsLimit:   types.Limited(100),
		SyncFrequency:   types.SyncDaily,
		ExternalAPIs:    types.Limited(1),
		PrioritySupport: false,
		AdvancedCaching: false,
	})
}

func TestFeaturesFor_ProTier(t *testing.T) {
	cat := NewStaticTierCatalog()

	assertFeatures(t, "pro", cat.FeaturesFor(types.TierPro), types.FeatureSet{
		APICallsLimit:   types.Limited(1000),
		SyncFrequency:   types.SyncHourly,
		ExternalAPIs:    types.Limited(5),
		PrioritySupport: true,
		AdvancedCaching: true,
	})
}

func TestFeaturesFor_EnterpriseTier(t *testing.T) {
	cat := NewStaticTierCatalog()

	assertFeatures(t, "enterprise", cat.FeaturesFor(types.TierEnterprise), types.FeatureSet{
		APICallsLimit:   types.Unlimited(),
		SyncFrequency:   types.SyncRealTime,
		ExternalAPIs:    types.Unlimited(),
		PrioritySupport: true,
		AdvancedCaching: true,
	})
}

func TestFeaturesFor_UnknownTierFallsBackToFree(t *testing.T) {
	cat := NewStaticTierCatalog()
	free := cat.FeaturesFor(types.TierFree)

	for _, raw := range []string{"", "gold", "Enterprise", "pro "} {
		assertFeatures(t, "unknown "+raw, cat.FeaturesFor(types.Tier(raw)), free)
	}
}

func TestTiers_Ordered(t *testing.T) {
	cat := NewStaticTierCatalog()
	got := cat.Tiers()

	want := []types.Tier{types.TierFree, types.TierPro, types.TierEnterprise}
	if len(got) != len(want) {
		t.Fatalf("Tiers() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tiers()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	got[0] = "mutated"
	if cat.Tiers()[0] != types.TierFree {
		t.Error("Tiers() must return a copy")
	}
}

func TestCatalogIsolation(t *testing.T) {
	c1 := NewStaticTierCatalog().(*staticTierCatalog)
	c1.features[types.TierFree] = types.FeatureSet{APICallsLimit: types.Limited(1)}

	c2 := NewStaticTierCatalog()
	if n, _ := c2.FeaturesFor(types.TierFree).APICallsLimit.Value(); n != 100 {
		t.Errorf("mutating one catalog leaked into another: limit = %d", n)
	}
}

func assertFeatures(t *testing.T, name string, got, want types.FeatureSet) {
	t.Helper()
	if got != want {
		t.Errorf("%s: FeaturesFor() = %+v, want %+v", name, got, want)
	}
}
