package orders

import "fmt"

// FormatOrderNumber renders the customer-facing order number, e.g. #000042.
func FormatOrderNumber(number int64) string {
	return fmt.Sprintf("#%06d", number)
}
