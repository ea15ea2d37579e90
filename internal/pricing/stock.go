package pricing

type StockStatus string

const (
	InStock    StockStatus = "in_stock"
	LowStock   StockStatus = "low_stock"
	OutOfStock StockStatus = "out_of_stock"
)

// StockLevel classifies a stock quantity. Quantities at or below
// lowThreshold (but above zero) are low.
func StockLevel(stock, lowThreshold int) StockStatus {
	switch {
	case stock <= 0:
		return OutOfStock
	case stock <= lowThreshold:
		return LowStock
	}
	return InStock
}

// CompletionPercent returns done/total as a whole percentage clamped to
// [0, 100]. A zero total is 0%.
func CompletionPercent(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}
