package bot

import (
	"strings"
	"testing"

	"tokobot/internal/order"
)

func TestFormatRupiah(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "Rp 0"},
		{500, "Rp 500"},
		{50000, "Rp 50,000"},
		{120000, "Rp 120,000"},
		{1234567, "Rp 1,234,567"},
		{-7500, "Rp -7,500"},
	}
	for _, c := range cases {
		if got := formatRupiah(c.in); got != c.want {
			t.Errorf("formatRupiah(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseBuyCallback(t *testing.T) {
	cases := []struct {
		data   string
		wantID int64
		wantOK bool
	}{
		{"buy_1", 1, true},
		{"buy_42", 42, true},
		{"buy_", 0, false},
		{"buy_abc", 0, false},
		{"sell_1", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		id, ok := parseBuyCallback(c.data)
		if id != c.wantID || ok != c.wantOK {
			t.Errorf("parseBuyCallback(%q) = (%d, %v), want (%d, %v)", c.data, id, ok, c.wantID, c.wantOK)
		}
	}
}

func TestBuyCallbackRoundTrip(t *testing.T) {
	id, ok := parseBuyCallback(buyCallbackData(7))
	if !ok || id != 7 {
		t.Fatalf("round trip = (%d, %v), want (7, true)", id, ok)
	}
}

func TestCatalogText(t *testing.T) {
	text := catalogText([]order.Product{
		{ID: 1, Name: "Kopi Robusta 250g", Price: 50000, Stock: 10, Description: "Robusta beans"},
		{ID: 2, Name: "Teh Hijau Premium", Price: 75000, Stock: 15, Description: "Export-grade green tea"},
	})

	for _, want := range []string{
		"*Kopi Robusta 250g*",
		"Price: Rp 50,000",
		"Stock: 10",
		"Description: Robusta beans",
		"*Teh Hijau Premium*",
		"Price: Rp 75,000",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("catalog text missing %q:\n%s", want, text)
		}
	}
}
