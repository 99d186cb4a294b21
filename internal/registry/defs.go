package registry

import "github.com/sells-group/pagelens/internal/model"

// builtinSpecs are the canonical product-attribute definitions. Rules are
// written for a noisy-text-to-JSON inference step: they assume the input
// may be OCR output with split digits and joined words.
var builtinSpecs = []model.FieldSpec{
	{
		Name:        "rating",
		Type:        model.TypeDecimal,
		Description: "Product rating (0.0 to 5.0)",
		Min:         0,
		Max:         5,
		Rules: []string{
			"Find the rating number before or after star symbols (★, ⭐, ☆, *) or near 'out of 5 stars'.",
			"Accept '4★', '★4', '4.3★', and decimals OCR may split: '4 3' or '4-3' means '4.3'.",
			"Read exactly as shown: '4' stays 4, never 40 or 0.4.",
			"Valid range is 0.0 to 5.0.",
		},
		Example: "4.3",
	},
	{
		Name:        "ratings_count",
		Type:        model.TypeInteger,
		Description: "Total number of ratings",
		Rules: []string{
			"Find the number immediately before 'Ratings' or 'ratings'.",
			"Strip grouping separators and OCR spaces: '7,624' and '7 624' both mean 7624.",
			"Handle Indian grouping: '3,34,015' means 334015.",
		},
		Example: "7624",
	},
	{
		Name:        "reviews_count",
		Type:        model.TypeInteger,
		Description: "Total number of reviews",
		Rules: []string{
			"Find the number immediately before 'Reviews' or 'reviews', including 'N ratings and M reviews'.",
			"Handle Indian grouping: '17,504' means 17504.",
		},
		Example: "140",
	},
	{
		Name:        "review",
		Type:        model.TypeString,
		Description: "Customer review text",
		Rules: []string{
			"Look after 'reviews', 'customer review', 'verified purchase', or customer names.",
			"Extract the first meaningful review sentence or paragraph; clean OCR errors but preserve meaning.",
			"If no review text exists, use null.",
		},
		Example: "Great quality product, arrived on time.",
	},
	{
		Name:        "price",
		Type:        model.TypeString,
		Description: "Current (non-struck-through) selling price",
		Rules: []string{
			"Look for currency values with symbols like ₹, Rs, Rs., or $.",
			"Ignore struck-through prices; those are the MRP or old price.",
			"The non-crossed-out price near 'Special price', 'Offer price', or discount text is the current price.",
			"Read digits exactly and count them: OCR may split '592' into '5 92' or '5 9 2'; all mean 592.",
			"If multiple candidates exist, pick the highlighted one or the one next to 'Special price'.",
			"Keep commas and the currency symbol as displayed; return exactly one value.",
		},
		Example: "₹592",
	},
	{
		Name:        "mrp",
		Type:        model.TypeString,
		Description: "MRP: the struck-through original price",
		Rules: []string{
			"The MRP is the struck-through price in the pricing section, near the current price.",
			"Never take numbers from the ratings or reviews section: '2,82,519 ratings' is a count, not a price.",
			"Read digits exactly; OCR may split '1302' into '1 302' or '1 3 0 2'.",
			"If multiple crossed-out prices exist, choose the one nearest the current price or discount percentage.",
			"Preserve commas and currency symbols as displayed.",
		},
		Example: "₹1,302",
	},
	{
		Name:        "product_name",
		Type:        model.TypeString,
		Description: "Product name or title",
		Rules: []string{
			"Usually at the top of the page, in a heading or prominent text.",
			"Extract the main product title and clean OCR errors.",
			"Skip generic navigation text like 'Home' or 'Shop'.",
		},
		Example: "Men's Cotton T-Shirt",
	},
	{
		Name:        "discount",
		Type:        model.TypeString,
		Description: "Discount percentage or amount",
		Rules: []string{
			"Look for '% off', 'discount', 'save', or 'off'.",
			"Accept '20% off', 'Save 20%', '₹100 off'.",
		},
		Example: "20% off",
	},
	{
		Name:        "availability",
		Type:        model.TypeString,
		Description: "Product availability status",
		Rules: []string{
			"Look for 'In Stock', 'Out of Stock', 'Available', 'Unavailable', usually near the price or cart button.",
		},
		Example: "In Stock",
	},
}
