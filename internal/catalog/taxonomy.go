package catalog

// DefaultTaxonomy returns the shop's category tree. The slugs match the
// output of the ingestion mapping tables.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{Roots: []TaxonomyNode{
		{
			ID: "1", Slug: "brave-explorers", Name: "Brave Explorers",
			Children: []TaxonomyNode{
				{ID: "11", Slug: "climbing-triangles", Name: "Climbing Triangles"},
				{ID: "12", Slug: "climbing-arches", Name: "Climbing Arches"},
				{ID: "13", Slug: "balance-boards", Name: "Balance Boards"},
				{ID: "14", Slug: "indoor-slides", Name: "Indoor Slides"},
			},
		},
		{
			ID: "2", Slug: "little-dreamers", Name: "Little Dreamers",
			Children: []TaxonomyNode{
				{ID: "21", Slug: "floor-beds", Name: "Floor Beds"},
				{ID: "22", Slug: "house-beds", Name: "House Beds"},
				{ID: "23", Slug: "cribs", Name: "Cribs"},
				{ID: "24", Slug: "bedding", Name: "Bedding"},
			},
		},
		{
			ID: "3", Slug: "creative-minds", Name: "Creative Minds",
			Children: []TaxonomyNode{
				{ID: "31", Slug: "kids-tables", Name: "Tables"},
				{ID: "32", Slug: "kids-chairs", Name: "Chairs"},
				{ID: "33", Slug: "easels", Name: "Easels"},
				{ID: "34", Slug: "play-kitchens", Name: "Play Kitchens"},
			},
		},
		{
			ID: "4", Slug: "tidy-nests", Name: "Tidy Nests",
			Children: []TaxonomyNode{
				{ID: "41", Slug: "bookshelves", Name: "Bookshelves"},
				{ID: "42", Slug: "toy-storage", Name: "Toy Storage"},
				{ID: "43", Slug: "wardrobes", Name: "Wardrobes"},
			},
		},
		{
			ID: "5", Slug: "cozy-corners", Name: "Cozy Corners",
			Children: []TaxonomyNode{
				{ID: "51", Slug: "play-mats", Name: "Play Mats"},
				{ID: "52", Slug: "teepees", Name: "Teepees"},
				{ID: "53", Slug: "floor-cushions", Name: "Floor Cushions"},
			},
		},
	}}
}
