package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Add-on flag names carried in checkout session flags.
const (
	FlagPrescription = "prescription"
	FlagWarranty     = "warranty"
)

// Product is one configurable product line.
type Product struct {
	Slug                 string   `yaml:"slug" json:"slug"`
	Name                 string   `yaml:"name" json:"name"`
	ShortName            string   `yaml:"shortName" json:"shortName"`
	BasePrice            float64  `yaml:"basePrice" json:"basePrice"`
	Image                string   `yaml:"image" json:"image"`
	Magnifications       []string `yaml:"magnifications" json:"magnifications"`
	DefaultMagnification string   `yaml:"defaultMagnification" json:"defaultMagnification,omitempty"`
	Frames               []string `yaml:"frames" json:"frames"`
}

// HasMagnification reports whether the product is sold in optical powers.
func (p Product) HasMagnification() bool {
	return len(p.Magnifications) > 0
}

// SupportsMagnification reports whether mag is one of the product's options.
func (p Product) SupportsMagnification(mag string) bool {
	for _, m := range p.Magnifications {
		if m == mag {
			return true
		}
	}
	return false
}

// SupportsFrame reports whether frameID is offered for the product.
func (p Product) SupportsFrame(frameID string) bool {
	for _, f := range p.Frames {
		if f == frameID {
			return true
		}
	}
	return false
}

// Color is a finish of a base frame with its own preview image.
type Color struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Image string `yaml:"image" json:"image"`
}

// Frame is a base frame shape with one or more color variants.
type Frame struct {
	ID     string  `yaml:"id" json:"id"`
	Label  string  `yaml:"label" json:"label"`
	Colors []Color `yaml:"colors" json:"colors"`
}

// Color returns the variant with colorID.
func (f Frame) Color(colorID string) (Color, bool) {
	for _, c := range f.Colors {
		if c.ID == colorID {
			return c, true
		}
	}
	return Color{}, false
}

// DisplayName is the "<FrameLabel> <ColorName>" label shown in the cart.
func (f Frame) DisplayName(c Color) string {
	return strings.TrimSpace(f.Label + " " + c.Name)
}

// StripeProduct maps a (slug, magnification) pair to a remote product id.
type StripeProduct struct {
	Slug          string `yaml:"slug"`
	Magnification string `yaml:"magnification"`
	ProductID     string `yaml:"productId"`
}

// Addon is a non-physical item billed through a preconfigured remote price.
type Addon struct {
	Slug      string `yaml:"slug" json:"slug"`
	Flag      string `yaml:"flag" json:"flag"`
	Name      string `yaml:"name" json:"name"`
	ShortName string `yaml:"shortName" json:"shortName"`
	Image     string `yaml:"image" json:"image"`
	PriceID   string `yaml:"priceId" json:"-"`
	ProductID string `yaml:"productId" json:"-"`
}

type file struct {
	Products       []Product       `yaml:"products"`
	Frames         []Frame         `yaml:"frames"`
	StripeProducts []StripeProduct `yaml:"stripeProducts"`
	Addons         []Addon         `yaml:"addons"`
	Placeholders   []string        `yaml:"placeholders"`
}

// Catalog is the static product, frame and billing configuration.
type Catalog struct {
	products     []Product
	frames       []Frame
	addons       []Addon
	bySlug       map[string]int
	byFrame      map[string]int
	byVariant    map[string]variantRef
	stripeIDs    map[string]string
	placeholders map[string]struct{}
}

type variantRef struct {
	frame int
	color int
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog from path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %q: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return build(f)
}

func build(f file) (*Catalog, error) {
	c := &Catalog{
		products:     f.Products,
		frames:       f.Frames,
		addons:       f.Addons,
		bySlug:       make(map[string]int, len(f.Products)),
		byFrame:      make(map[string]int, len(f.Frames)),
		byVariant:    make(map[string]variantRef),
		stripeIDs:    make(map[string]string, len(f.StripeProducts)),
		placeholders: make(map[string]struct{}, len(f.Placeholders)),
	}
	for _, p := range f.Placeholders {
		c.placeholders[strings.TrimSpace(p)] = struct{}{}
	}

	var errs error
	for i, fr := range f.Frames {
		if fr.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("frame %d: id is required", i))
			continue
		}
		if _, dup := c.byFrame[fr.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("frame %q: duplicate id", fr.ID))
			continue
		}
		if len(fr.Colors) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("frame %q: at least one color is required", fr.ID))
		}
		c.byFrame[fr.ID] = i
		for j, col := range fr.Colors {
			if col.ID == "" || col.Image == "" {
				errs = multierr.Append(errs, fmt.Errorf("frame %q color %d: id and image are required", fr.ID, j))
				continue
			}
			if _, dup := c.byVariant[col.ID]; dup {
				errs = multierr.Append(errs, fmt.Errorf("color %q: duplicate id", col.ID))
				continue
			}
			c.byVariant[col.ID] = variantRef{frame: i, color: j}
		}
	}

	for i, p := range f.Products {
		if p.Slug == "" {
			errs = multierr.Append(errs, fmt.Errorf("product %d: slug is required", i))
			continue
		}
		if _, dup := c.bySlug[p.Slug]; dup {
			errs = multierr.Append(errs, fmt.Errorf("product %q: duplicate slug", p.Slug))
			continue
		}
		if p.BasePrice < 0 {
			errs = multierr.Append(errs, fmt.Errorf("product %q: base price must not be negative", p.Slug))
		}
		if p.HasMagnification() && !p.SupportsMagnification(p.DefaultMagnification) {
			errs = multierr.Append(errs, fmt.Errorf("product %q: default magnification %q is not an option", p.Slug, p.DefaultMagnification))
		}
		for _, id := range p.Frames {
			if _, ok := c.byFrame[id]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("product %q: unknown frame %q", p.Slug, id))
			}
		}
		c.bySlug[p.Slug] = i
	}

	for _, sp := range f.StripeProducts {
		c.stripeIDs[stripeKey(sp.Slug, sp.Magnification)] = strings.TrimSpace(sp.ProductID)
	}

	flags := map[string]bool{}
	for i, a := range f.Addons {
		if a.Slug == "" || a.Flag == "" {
			errs = multierr.Append(errs, fmt.Errorf("addon %d: slug and flag are required", i))
			continue
		}
		if flags[a.Flag] {
			errs = multierr.Append(errs, fmt.Errorf("addon %q: duplicate flag %q", a.Slug, a.Flag))
		}
		flags[a.Flag] = true
		if _, clash := c.bySlug[a.Slug]; clash {
			errs = multierr.Append(errs, fmt.Errorf("addon %q: slug collides with a product", a.Slug))
		}
	}

	if len(f.Products) == 0 {
		errs = multierr.Append(errs, errors.New("at least one product is required"))
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}

func stripeKey(slug, mag string) string {
	return slug + "|" + mag
}

// Products lists the product lines in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Product looks up a product line by slug.
func (c *Catalog) Product(slug string) (Product, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Listing returns the catalog name, short name and base price of a product.
func (c *Catalog) Listing(slug string) (name, shortName string, price float64, ok bool) {
	p, ok := c.Product(slug)
	if !ok {
		return "", "", 0, false
	}
	return p.Name, p.ShortName, p.BasePrice, true
}

// Frame looks up a base frame by id.
func (c *Catalog) Frame(id string) (Frame, bool) {
	i, ok := c.byFrame[id]
	if !ok {
		return Frame{}, false
	}
	return c.frames[i], true
}

// Frames returns the frames offered for a product, in product order.
func (c *Catalog) Frames(p Product) []Frame {
	out := make([]Frame, 0, len(p.Frames))
	for _, id := range p.Frames {
		if f, ok := c.Frame(id); ok {
			out = append(out, f)
		}
	}
	return out
}

// Variant resolves a color variant id to its frame and color.
func (c *Catalog) Variant(colorID string) (Frame, Color, bool) {
	ref, ok := c.byVariant[colorID]
	if !ok {
		return Frame{}, Color{}, false
	}
	f := c.frames[ref.frame]
	return f, f.Colors[ref.color], true
}

// IsPlaceholder reports whether a remote identifier was left unconfigured.
func (c *Catalog) IsPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	if _, ok := c.placeholders[v]; ok {
		return true
	}
	return strings.Contains(strings.ToUpper(v), "REPLACE")
}

// StripeProductID resolves the remote product id for (slug, magnification).
// It returns nil when no mapping exists or the mapped value is a placeholder.
func (c *Catalog) StripeProductID(slug string, magnification *string) *string {
	mag := ""
	if magnification != nil {
		mag = *magnification
	}
	id, ok := c.stripeIDs[stripeKey(slug, mag)]
	if !ok || c.IsPlaceholder(id) {
		return nil
	}
	return &id
}

// Addons lists the configured add-ons.
func (c *Catalog) Addons() []Addon {
	out := make([]Addon, len(c.addons))
	copy(out, c.addons)
	return out
}

// Addon looks up an add-on by slug.
func (c *Catalog) Addon(slug string) (Addon, bool) {
	for _, a := range c.addons {
		if a.Slug == slug {
			return a, true
		}
	}
	return Addon{}, false
}

// AddonByFlag looks up the add-on enabled by a session flag.
func (c *Catalog) AddonByFlag(flag string) (Addon, bool) {
	for _, a := range c.addons {
		if a.Flag == flag {
			return a, true
		}
	}
	return Addon{}, false
}

// AddonPriceID returns the add-on's remote price id, or nil when unconfigured.
func (c *Catalog) AddonPriceID(a Addon) *string {
	if c.IsPlaceholder(a.PriceID) {
		return nil
	}
	id := a.PriceID
	return &id
}

// AddonProductID returns the add-on's remote product id, or nil when unconfigured.
func (c *Catalog) AddonProductID(a Addon) *string {
	if c.IsPlaceholder(a.ProductID) {
		return nil
	}
	id := a.ProductID
	return &id
}
