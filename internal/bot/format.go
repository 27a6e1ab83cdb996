package bot

import (
	"fmt"
	"strconv"
	"strings"

	"tokobot/internal/order"
)

const buyCallbackPrefix = "buy_"

func buyCallbackData(productID int64) string {
	return buyCallbackPrefix + strconv.FormatInt(productID, 10)
}

func parseBuyCallback(data string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, buyCallbackPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func catalogText(products []order.Product) string {
	var sb strings.Builder
	sb.WriteString("Here is what we have in stock:\n\n")
	for _, p := range products {
		fmt.Fprintf(&sb, "*%s*\n", p.Name)
		fmt.Fprintf(&sb, "Price: %s\n", formatRupiah(p.Price))
		fmt.Fprintf(&sb, "Stock: %d\n", p.Stock)
		fmt.Fprintf(&sb, "Description: %s\n\n", p.Description)
	}
	return sb.String()
}

// formatRupiah renders an IDR amount with thousands separators, e.g.
// "Rp 50,000".
func formatRupiah(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	neg := false
	if strings.HasPrefix(digits, "-") {
		neg = true
		digits = digits[1:]
	}

	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}

	if neg {
		return "Rp -" + sb.String()
	}
	return "Rp " + sb.String()
}
