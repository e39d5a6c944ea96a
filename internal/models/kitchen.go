package models

// ShoppingItem is an entry on the shopping list.
type ShoppingItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Emoji    string `json:"emoji"`
	Quantity int    `json:"quantity"`
}

// Timer is a countdown shown on the display.
type Timer struct {
	ID      string `json:"id"`
	Minutes int    `json:"minutes"`
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}
