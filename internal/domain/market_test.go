package domain

import (
	"strings"
	"testing"
)

func TestMarket_Accessors(t *testing.T) {
	m := NewMarket(7, 3)
	m.FillLevel(0, Level{BidQty: 100, BidPrice: 10000000, AskQty: 5, AskPrice: 10500000})

	if m.Depth() != 3 {
		t.Errorf("Expected depth 3, got %d", m.Depth())
	}
	if m.BidQty(0) != 100 || m.AskPrice(0) != 10500000 {
		t.Errorf("Unexpected level 0: %+v", m.Level(0))
	}
	if m.BidQty(5) != 0 || m.AskQty(-1) != 0 {
		t.Error("Out-of-range levels should read as empty")
	}
}

func TestMarket_CloneIsIndependent(t *testing.T) {
	m := NewMarket(1, 2)
	m.FillLevel(0, Level{BidQty: 10, BidPrice: 1000000})

	c := m.Clone()
	m.FillLevel(0, Level{BidQty: 20, BidPrice: 2000000})

	if c.Levels[0].BidQty != 10 {
		t.Errorf("Clone must not alias the source levels, got %d", c.Levels[0].BidQty)
	}
}

func TestMarket_String(t *testing.T) {
	m := NewMarket(7, 2)
	m.FillTrade(50, 10000000)
	m.FillLevel(0, Level{BidQty: 60, BidPrice: 10000000, AskQty: 30, AskPrice: 10500000})
	m.FillLevel(1, Level{BidQty: 15, BidPrice: 9500000})

	lines := strings.Split(m.String(), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), m.String())
	}

	if lines[0] != "product: 7 last 50@10" {
		t.Errorf("Header = %q", lines[0])
	}
	wantPrc := "PRC: " + "     9.5" + "      10" + " | " + "    10.5" + "       0"
	if lines[1] != wantPrc {
		t.Errorf("PRC row = %q, want %q", lines[1], wantPrc)
	}
	wantQty := "QTY: " + "      15" + "      60" + " | " + "      30" + "       0"
	if lines[2] != wantQty {
		t.Errorf("QTY row = %q, want %q", lines[2], wantQty)
	}
}
