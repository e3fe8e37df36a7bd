package inventory

type StockItem struct {
	ProductID string `json:"productId"`
	Available int    `json:"available"`
}
