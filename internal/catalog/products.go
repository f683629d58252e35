package catalog

// defaultProducts is the storefront's launch assortment.
var defaultProducts = []seed{
	{"p1", "Mystic Moon Tarot Deck", "A beautifully illustrated tarot deck inspired by lunar phases and cosmic energy.", "42.99", "tarot", true, true, 4.8, 124},
	{"p2", "Amethyst Crystal Cluster", "Natural amethyst cluster for spiritual protection, purification, and inner peace.", "28.50", "crystals", true, true, 4.9, 87},
	{"p3", "White Sage Smudge Bundle", "Ethically harvested white sage bundle for cleansing spaces and removing negative energy.", "12.99", "incense", true, true, 4.7, 152},
	{"p4", "Chakra Alignment Candle Set", "Set of seven hand-poured soy candles in chakra colors with essential oils.", "35.99", "candles", false, true, 4.6, 64},
	{"p5", "Moonstone Pendant Necklace", "Sterling silver pendant with natural moonstone for intuition and feminine energy.", "49.99", "jewelry", true, true, 4.9, 42},
	{"p6", "The Modern Witch's Guide to Tarot", "Comprehensive guide to tarot reading for the contemporary practitioner.", "24.99", "books", false, true, 4.8, 76},
	{"p7", "Labradorite Palm Stone", "Polished labradorite palm stone for transformation and spiritual protection.", "18.99", "crystals", false, true, 4.7, 38},
	{"p8", "Frankincense & Myrrh Resin Incense", "Traditional sacred resin incense for purification and spiritual connection.", "15.99", "incense", false, true, 4.8, 53},
	{"p9", "Black Obsidian Scrying Mirror", "Handcrafted obsidian mirror for divination and spiritual insight.", "59.99", "crystals", true, false, 4.9, 29},
	{"p10", "Moon Phase Altar Candle Set", "Set of eight beeswax candles representing the phases of the moon for ritual work.", "32.99", "candles", false, true, 4.8, 47},
	{"p11", "Tree of Life Brass Incense Holder", "Intricate brass incense holder with sacred geometry Tree of Life design.", "27.99", "incense", false, true, 4.6, 34},
	{"p12", "Chakra Gemstone Bracelet", "Adjustable bracelet with seven chakra gemstones for energy balance.", "23.99", "jewelry", false, true, 4.7, 68},
	{"p13", "The Astrology of Self-Discovery", "Insightful guide to using your birth chart for personal growth and transformation.", "22.99", "books", false, true, 4.5, 41},
	{"p14", "Wild Soul Tarot Deck", "Nature-inspired tarot deck celebrating the connection between humanity and the natural world.", "45.99", "tarot", false, true, 4.9, 56},
}

// Categories lists the storefront categories in display order.
var Categories = []Category{
	{ID: "tarot", Name: "Tarot Decks"},
	{ID: "crystals", Name: "Crystals & Gemstones"},
	{ID: "incense", Name: "Sage & Incense"},
	{ID: "candles", Name: "Ritual Candles"},
	{ID: "jewelry", Name: "Spiritual Jewelry"},
	{ID: "books", Name: "Books & Guides"},
}

type seed struct {
	id, name, description, price, category string
	featured, inStock                      bool
	rating                                 float64
	reviews                                int
}
