package references

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/rs/zerolog"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/capture"
	"github.com/amosWeiskopf/phishsmith/pkg/visual"
)

// DefaultElementsHeight is the height of the header band kept as the
// elements reference.
const DefaultElementsHeight = 400

// Error records a failed reference operation for one brand variant.
type Error struct {
	Brand   string
	Variant models.Variant
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reference %s/%s: %v", e.Brand, e.Variant, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Status reports which references exist for one brand.
type Status struct {
	ShortName string                  `json:"short_name"`
	Variants  map[models.Variant]bool `json:"variants"`
	Complete  bool                    `json:"complete"`
}

// Load attaches every stored reference image to its brand. Missing variants
// are simply absent; the visual analyzer reports them as unavailable.
func Load(ctx context.Context, store Store, brands []models.BrandProfile) ([]models.BrandProfile, error) {
	out := make([]models.BrandProfile, 0, len(brands))
	for _, brand := range brands {
		refs := make(map[models.Variant][]byte, len(models.Variants))
		for _, v := range models.Variants {
			data, err := store.Get(ctx, brand.ShortName, v)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, &Error{Brand: brand.ShortName, Variant: v, Err: err}
			}
			refs[v] = data
		}
		out = append(out, brand.WithReferences(refs))
	}
	return out, nil
}

// Capture renders missing references for every brand: the home page as
// main, the login page as login when the brand has one, and the top band
// of the home page as elements. Existing references are left alone unless
// force is set. Per-brand failures are collected and returned joined; the
// remaining brands are still processed.
func Capture(ctx context.Context, capturer capture.Capturer, store Store, brands []models.BrandProfile, elementsHeight int, force bool) error {
	if elementsHeight <= 0 {
		elementsHeight = DefaultElementsHeight
	}
	logger := zerolog.Ctx(ctx)

	var errs []error
	for _, brand := range brands {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		needMain := force || !exists(ctx, store, brand.ShortName, models.VariantMain)
		needElements := force || !exists(ctx, store, brand.ShortName, models.VariantElements)
		if needMain || needElements {
			shot, err := capturer.Capture(ctx, brand.URL)
			if err != nil {
				errs = append(errs, &Error{Brand: brand.ShortName, Variant: models.VariantMain, Err: err})
			} else {
				if needMain {
					errs = appendErr(errs, put(ctx, store, brand.ShortName, models.VariantMain, shot.PNG))
				}
				if needElements {
					data, err := encodePNG(visual.CropTop(shot.Image, elementsHeight))
					if err != nil {
						errs = append(errs, &Error{Brand: brand.ShortName, Variant: models.VariantElements, Err: err})
					} else {
						errs = appendErr(errs, put(ctx, store, brand.ShortName, models.VariantElements, data))
					}
				}
			}
		}

		if brand.HasLogin() && (force || !exists(ctx, store, brand.ShortName, models.VariantLogin)) {
			shot, err := capturer.Capture(ctx, brand.LoginURL)
			if err != nil {
				errs = append(errs, &Error{Brand: brand.ShortName, Variant: models.VariantLogin, Err: err})
			} else {
				errs = appendErr(errs, put(ctx, store, brand.ShortName, models.VariantLogin, shot.PNG))
			}
		}

		logger.Info().Str("brand", brand.ShortName).Msg("references processed")
	}
	return errors.Join(errs...)
}

// Check reports, per brand, whether every expected reference exists. A
// brand without a login URL needs no login reference.
func Check(ctx context.Context, store Store, brands []models.BrandProfile) ([]Status, bool, error) {
	statuses := make([]Status, 0, len(brands))
	allGood := true
	for _, brand := range brands {
		st := Status{ShortName: brand.ShortName, Variants: make(map[models.Variant]bool, len(models.Variants)), Complete: true}
		for _, v := range models.Variants {
			ok, err := store.Exists(ctx, brand.ShortName, v)
			if err != nil {
				return nil, false, &Error{Brand: brand.ShortName, Variant: v, Err: err}
			}
			if v == models.VariantLogin && !brand.HasLogin() {
				ok = true
			}
			st.Variants[v] = ok
			if !ok {
				st.Complete = false
			}
		}
		if !st.Complete {
			allGood = false
		}
		statuses = append(statuses, st)
	}
	return statuses, allGood, nil
}

func exists(ctx context.Context, store Store, shortName string, v models.Variant) bool {
	ok, err := store.Exists(ctx, shortName, v)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("brand", shortName).Str("variant", string(v)).Msg("reference lookup failed")
		return false
	}
	return ok
}

func put(ctx context.Context, store Store, shortName string, v models.Variant, data []byte) error {
	if err := store.Put(ctx, shortName, v, data); err != nil {
		return &Error{Brand: shortName, Variant: v, Err: err}
	}
	zerolog.Ctx(ctx).Debug().Str("brand", shortName).Str("variant", string(v)).Msg("reference saved")
	return nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
