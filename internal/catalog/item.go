package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// PlaceholderImage is shown for items stored without an image URL.
const PlaceholderImage = "https://images.unsplash.com/photo-1600585154340-be6161a56a0c?w=800&auto=format&fit=crop&q=80"

// Item is a catalog entry. Fields the store does not know about are kept in
// Extra and written back out unchanged.
type Item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type plainItem Item

// UnmarshalJSON matches field names exactly. A known field whose value has
// the wrong JSON type is kept in Extra as sent, except id, which is dropped:
// the store assigns ids and a malformed one has nothing to round-trip to.
func (it *Item) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var out Item
	for key, val := range raw {
		var err error
		switch key {
		case "id":
			_ = json.Unmarshal(val, &out.ID)
			delete(raw, key)
			continue
		case "name":
			err = json.Unmarshal(val, &out.Name)
		case "price":
			err = json.Unmarshal(val, &out.Price)
		case "description":
			err = json.Unmarshal(val, &out.Description)
		case "image":
			err = json.Unmarshal(val, &out.Image)
		default:
			continue
		}
		if err == nil {
			delete(raw, key)
		}
	}
	if len(raw) > 0 {
		out.Extra = raw
	}

	*it = out
	return nil
}

// MarshalJSON writes Extra alongside the known fields. A known name present
// in Extra holds the value as originally sent and wins over the zero field.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.Extra) == 0 {
		return json.Marshal(plainItem(it))
	}

	known, err := json.Marshal(plainItem(it))
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}

	merged := make(map[string]json.RawMessage, len(it.Extra)+len(fields))
	for k, v := range fields {
		merged[k] = v
	}
	for k, v := range it.Extra {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// ImageURL returns the item image or the placeholder when none was stored.
func (it Item) ImageURL() string {
	if strings.TrimSpace(it.Image) == "" {
		return PlaceholderImage
	}
	return it.Image
}

// ParseID reads an id the way a loose equality check would: surrounding
// whitespace is ignored and any numeric text naming the same integer matches,
// so "7", " 7", "07" and "7.0" all resolve to 7.
func ParseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// SeedItems is the catalog a fresh memory store starts with.
func SeedItems() []Item {
	return []Item{
		{ID: 1, Name: "Laptop", Price: 50000, Description: "A powerful laptop",
			Image: "https://i.ibb.co.com/prsVXqbD/Gemini-Generated-Image-ixmogmixmogmixmo.png"},
		{ID: 2, Name: "Phone", Price: 20000, Description: "A smart phone",
			Image: "https://brotherselectronicsbd.com/image/catalog/demo/product/Samsung/S25%20ULTRA/s25%20ultra%2030.png"},
		{ID: 3, Name: "MSI GeForce RTX 5090 ", Price: 20000, Description: "MSI GeForce RTX 5090 32G GAMING TRIO OC 32GB GDDR7 Graphics Card",
			Image: "https://www.startech.com.bd/image/cache/catalog/graphics-card/msi/geforce-rtx-5090-32g-gaming-trio-oc/geforce-rtx-5090-32g-gaming-trio-oc-01-500x500.webp"},
		{ID: 4, Name: "Shoe", Price: 20000, Description: "shoe",
			Image: "https://www.batabd.com/cdn/shop/files/3_bc85fd15-0268-4fbc-b492-40543d6158c4_1024x1024.jpg?v=1756576843"},
		{ID: 5, Name: "Men's Premium T-Shirt", Price: 99, Description: "Men's Premium T-Shirt",
			Image: "https://i.ibb.co.com/r2bDbR2D/Gemini-Generated-Image-1svm9h1svm9h1svm.png"},
		{ID: 6, Name: "Kitchen Mixer Grinder", Price: 99, Description: "Kitchen Mixer Grinder",
			Image: "https://i.ibb.co.com/WppmYk77/Gemini-Generated-Image-v7p8nvv7p8nvv7p8-1.png"},
		{ID: 7, Name: "Women's Fashion Handbag", Price: 99, Description: "Women's Fashion Handbag",
			Image: "https://i.ibb.co.com/60qTJ97G/Gemini-Generated-Image-y4pa9ry4pa9ry4pa.png"},
		{ID: 8, Name: "Iphone 17 pro max", Price: 99, Description: "Iphone 17 pro max",
			Image: "https://encrypted-tbn0.gstatic.com/images?q=tbn:ANd9GcSRUsryy05hmT3_3zd8AUSNEqJhIwY8QeS3RdFBKVz8gSvXsP81VnvdtSI&s=10"},
	}
}
