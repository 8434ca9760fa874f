package money_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starclip/starclip-api/internal/pkg/money"
)

func TestRound2HalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10.00"},
		{"0.125", "0.13"},
		{"99.999", "100.00"},
		{"1.2", "1.20"},
	}

	for _, c := range cases {
		d, _ := decimal.NewFromString(c.in)
		got := money.Round2(d).StringFixed(2)
		if got != c.want {
			t.Errorf("Round2(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestParseRejectsTooManyDecimals(t *testing.T) {
	if _, err := money.Parse("10.001"); err == nil {
		t.Fatal("expected error for 3 decimal places")
	}
	if _, err := money.Parse("not-a-number"); err == nil {
		t.Fatal("expected error for garbage input")
	}

	d, err := money.Parse("42.50")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if d.StringFixed(2) != "42.50" {
		t.Fatalf("got %s, want 42.50", d.StringFixed(2))
	}
}

func TestSplitExactness(t *testing.T) {
	gross, _ := decimal.NewFromString("100.00")
	rate, _ := decimal.NewFromString("0.10")

	fee, net := money.Split(gross, rate)
	if fee.StringFixed(2) != "10.00" {
		t.Errorf("fee = %s, want 10.00", fee.StringFixed(2))
	}
	if net.StringFixed(2) != "90.00" {
		t.Errorf("net = %s, want 90.00", net.StringFixed(2))
	}
}

func TestSplitConservesGross(t *testing.T) {
	rate, _ := decimal.NewFromString("0.10")
	for _, raw := range []string{"0.01", "0.05", "33.33", "99.99", "0.15"} {
		gross, _ := decimal.NewFromString(raw)
		fee, net := money.Split(gross, rate)
		if !fee.Add(net).Equal(gross) {
			t.Errorf("split of %s loses money: fee %s + net %s", raw, fee, net)
		}
	}
}
