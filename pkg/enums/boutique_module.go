package enums

import "fmt"

// BoutiqueModule identifies one purchasable wedding-service wizard.
type BoutiqueModule string

const (
	ModuleFloral      BoutiqueModule = "floral"
	ModuleJamGroove   BoutiqueModule = "jam_groove"
	ModuleYumCatering BoutiqueModule = "yum_catering"
	ModuleYumDessert  BoutiqueModule = "yum_dessert"
	ModuleVenue       BoutiqueModule = "venue"
	ModulePlanner     BoutiqueModule = "planner"
)

var validBoutiqueModules = []BoutiqueModule{
	ModuleFloral,
	ModuleJamGroove,
	ModuleYumCatering,
	ModuleYumDessert,
	ModuleVenue,
	ModulePlanner,
}

var boutiqueModuleLabels = map[BoutiqueModule]string{
	ModuleFloral:      "Floral",
	ModuleJamGroove:   "Jam & Groove",
	ModuleYumCatering: "Yum Yum Catering",
	ModuleYumDessert:  "Yum Yum Desserts",
	ModuleVenue:       "Venue",
	ModulePlanner:     "Planner",
}

// String implements fmt.Stringer.
func (m BoutiqueModule) String() string {
	return string(m)
}

// Label is the customer facing module name.
func (m BoutiqueModule) Label() string {
	if label, ok := boutiqueModuleLabels[m]; ok {
		return label
	}
	return string(m)
}

// IsValid reports whether the value is a known BoutiqueModule.
func (m BoutiqueModule) IsValid() bool {
	for _, candidate := range validBoutiqueModules {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseBoutiqueModule converts raw input into a BoutiqueModule.
func ParseBoutiqueModule(value string) (BoutiqueModule, error) {
	for _, candidate := range validBoutiqueModules {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid boutique module %q", value)
}

// BoutiqueModules returns every known module in display order.
func BoutiqueModules() []BoutiqueModule {
	out := make([]BoutiqueModule, len(validBoutiqueModules))
	copy(out, validBoutiqueModules)
	return out
}
