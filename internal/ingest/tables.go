package ingest

// CategoryLabels maps the category labels used in supplier exports and the
// storefront admin to canonical category slugs.
var CategoryLabels = map[string]string{
	"Brave Explorers":        "brave-explorers",
	"Climbing & Active Play": "brave-explorers",
	"Active Play":            "brave-explorers",
	"Climbing":               "brave-explorers",
	"Little Dreamers":        "little-dreamers",
	"Beds & Sleep":           "little-dreamers",
	"Sleep":                  "little-dreamers",
	"Creative Minds":         "creative-minds",
	"Play & Learn":           "creative-minds",
	"Tables & Chairs":        "creative-minds",
	"Tidy Nests":             "tidy-nests",
	"Storage":                "tidy-nests",
	"Storage & Organisation": "tidy-nests",
	"Cozy Corners":           "cozy-corners",
	"Soft Play":              "cozy-corners",
	"Textiles & Decor":       "cozy-corners",
}

// SubcategoryLabels maps subcategory labels to canonical slugs.
var SubcategoryLabels = map[string]string{
	"Pikler Triangles":      "climbing-triangles",
	"Pikler Triangle":       "climbing-triangles",
	"Climbing Triangles":    "climbing-triangles",
	"Climbing Arches":       "climbing-arches",
	"Rocker Arches":         "climbing-arches",
	"Balance Boards":        "balance-boards",
	"Wobble Boards":         "balance-boards",
	"Slides":                "indoor-slides",
	"Indoor Slides":         "indoor-slides",
	"Floor Beds":            "floor-beds",
	"Montessori Floor Beds": "floor-beds",
	"House Beds":            "house-beds",
	"Cribs":                 "cribs",
	"Cribs & Cots":          "cribs",
	"Bedding":               "bedding",
	"Bedding Sets":          "bedding",
	"Tables":                "kids-tables",
	"Kids Tables":           "kids-tables",
	"Chairs":                "kids-chairs",
	"Kids Chairs":           "kids-chairs",
	"Easels":                "easels",
	"Art Easels":            "easels",
	"Play Kitchens":         "play-kitchens",
	"Bookshelves":           "bookshelves",
	"Book Displays":         "bookshelves",
	"Toy Storage":           "toy-storage",
	"Toy Boxes":             "toy-storage",
	"Wardrobes":             "wardrobes",
	"Play Mats":             "play-mats",
	"Teepees":               "teepees",
	"Tipis":                 "teepees",
	"Floor Cushions":        "floor-cushions",
}

// DefaultMappings builds Mappings from CategoryLabels and SubcategoryLabels.
func DefaultMappings() Mappings {
	m, err := NewMappings(CategoryLabels, SubcategoryLabels)
	if err != nil {
		panic(err)
	}
	return m
}
