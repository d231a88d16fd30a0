package models

// Variant names one category of reference screenshot kept per brand.
type Variant string

const (
	VariantMain     Variant = "main"
	VariantLogin    Variant = "login"
	VariantElements Variant = "elements"
)

// Variants lists the recognized reference variants in comparison order.
var Variants = []Variant{VariantMain, VariantLogin, VariantElements}

// BrandProfile is an immutable reference record for one known brand.
// References holds the encoded reference screenshots keyed by variant; a
// missing key means the variant is not available. Profiles are built once at
// startup and shared read-only by every analysis in a run.
type BrandProfile struct {
	ShortName  string             `json:"short_name" mapstructure:"short_name" validate:"required"`
	Name       string             `json:"name" mapstructure:"name" validate:"required"`
	URL        string             `json:"url" mapstructure:"url" validate:"required,url"`
	LoginURL   string             `json:"login_url,omitempty" mapstructure:"login_url" validate:"omitempty,url"`
	References map[Variant][]byte `json:"-" mapstructure:"-"`
}

// Reference returns the encoded reference image for a variant, if present.
func (b BrandProfile) Reference(v Variant) ([]byte, bool) {
	data, ok := b.References[v]
	if !ok || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// HasLogin reports whether the brand publishes a separate login page.
func (b BrandProfile) HasLogin() bool {
	return b.LoginURL != ""
}

// WithReferences returns a copy of the profile carrying the given reference set.
func (b BrandProfile) WithReferences(refs map[Variant][]byte) BrandProfile {
	out := b
	out.References = make(map[Variant][]byte, len(refs))
	for k, v := range refs {
		out.References[k] = v
	}
	return out
}

// BrandName looks up the display name of a brand by short name.
func BrandName(brands []BrandProfile, shortName string) string {
	for _, b := range brands {
		if b.ShortName == shortName {
			return b.Name
		}
	}
	return "Unknown"
}
