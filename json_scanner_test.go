// Copyright (c) 2025 Neomantra Corp

package backtest_test

import (
	"strings"

	backtest "github.com/NimbleMarkets/backtest-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("TickJsonScanner", func() {
	It("should scan quote and trade lines", func() {
		input := strings.Join([]string{
			`{"type":"quote","instrument":"EUR/USD.SIM","bid":"1.0000","ask":"1.0001","bid_size":"1000000","ask_size":"1000000","ts_ns":"1609160400000000000"}`,
			``,
			`{"type":"trade","instrument":"EUR/USD.SIM","price":"1.0000","size":"100","match_id":"T-1","aggressor":"B","ts_ns":"1609160400000000001"}`,
		}, "\n")

		scanner := backtest.NewTickJsonScanner(strings.NewReader(input))

		Expect(scanner.Next()).To(BeTrue())
		tick, err := scanner.Decode()
		Expect(err).To(BeNil())
		quote, ok := tick.(backtest.QuoteTick)
		Expect(ok).To(BeTrue())
		Expect(quote.InstrumentId).To(Equal(eurusd))
		Expect(quote.Bid.String()).To(Equal("1"))
		Expect(quote.BidSize.String()).To(Equal("1000000"))
		Expect(quote.TsNs).To(Equal(int64(1609160400000000000)))

		Expect(scanner.Next()).To(BeTrue())
		tick, err = scanner.Decode()
		Expect(err).To(BeNil())
		trade, ok := tick.(backtest.TradeTick)
		Expect(ok).To(BeTrue())
		Expect(trade.MatchId).To(Equal("T-1"))
		Expect(trade.Aggressor).To(Equal(backtest.AggressorSide_Buyer))
		Expect(trade.TsNs).To(Equal(int64(1609160400000000001)))

		Expect(scanner.Next()).To(BeFalse())
		Expect(scanner.Error()).To(BeNil())
	})

	It("should reject unknown tick types and bad decimals", func() {
		scanner := backtest.NewTickJsonScanner(strings.NewReader(
			`{"type":"candle","instrument":"EUR/USD.SIM","ts_ns":"1"}`))
		Expect(scanner.Next()).To(BeTrue())
		_, err := scanner.Decode()
		Expect(err).ToNot(BeNil())

		scanner = backtest.NewTickJsonScanner(strings.NewReader(
			`{"type":"quote","instrument":"EUR/USD.SIM","bid":"junk","ask":"1","bid_size":"1","ask_size":"1","ts_ns":"1"}`))
		Expect(scanner.Next()).To(BeTrue())
		_, err = scanner.Decode()
		Expect(err).ToNot(BeNil())
	})
})

var _ = Describe("FillJsonScanner", func() {
	It("should scan fill lines", func() {
		input := `{"client_order_id":"O-1","order_id":"V-1","execution_id":"E-1","position_id":"P-1","strategy_id":"S-1","account_id":"A-1","instrument":"EUR/USD.SIM","side":"BUY","price":"1.0000","qty":"100","currency":"USD","is_inverse":false,"commission":"0.02","commission_currency":"USD","execution_ns":"1000"}`

		scanner := backtest.NewFillJsonScanner(strings.NewReader(input))
		Expect(scanner.Next()).To(BeTrue())

		fill, err := scanner.Decode()
		Expect(err).To(BeNil())
		Expect(fill.ExecutionId).To(Equal(backtest.ExecutionId("E-1")))
		Expect(fill.OrderSide).To(Equal(backtest.OrderSide_Buy))
		Expect(fill.FillQty.String()).To(Equal("100"))
		Expect(fill.Commission.String()).To(Equal("0.02 USD"))
		Expect(fill.ExecutionNs).To(Equal(int64(1000)))
		Expect(fill.IsInverse).To(BeFalse())

		// A scanned fill opens a position directly.
		position, err := backtest.NewPosition(fill)
		Expect(err).To(BeNil())
		Expect(position.Side()).To(Equal(backtest.PositionSide_Long))
	})
})
