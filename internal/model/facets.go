package model

// FacetName identifies a derived, filterable attribute.
type FacetName string

const (
	FacetCaliber       FacetName = "caliber"
	FacetBarrelLength  FacetName = "barrel_length"
	FacetFinish        FacetName = "finish"
	FacetFrameSize     FacetName = "frame_size"
	FacetActionType    FacetName = "action_type"
	FacetSightType     FacetName = "sight_type"
	FacetAccessoryType FacetName = "accessory_type"
	FacetCompatibility FacetName = "compatibility"
	FacetMaterial      FacetName = "material"
	FacetMountType     FacetName = "mount_type"
	FacetCapacity      FacetName = "capacity"
)

// FacetNames lists every facet in a stable order.
var FacetNames = []FacetName{
	FacetCaliber,
	FacetBarrelLength,
	FacetFinish,
	FacetFrameSize,
	FacetActionType,
	FacetSightType,
	FacetAccessoryType,
	FacetCompatibility,
	FacetMaterial,
	FacetMountType,
	FacetCapacity,
}

// Facets holds facet values. A missing key means the attribute is unset.
type Facets map[FacetName]string

// Get returns the value for n and whether it is set.
func (f Facets) Get(n FacetName) (string, bool) {
	v, ok := f[n]
	return v, ok && v != ""
}

// Clone returns an independent copy.
func (f Facets) Clone() Facets {
	out := make(Facets, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
