// Copyright (c) 2025 Neomantra Corp

package backtest_test

import (
	backtest "github.com/NimbleMarkets/backtest-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Money", func() {
	Context("arithmetic", func() {
		It("should add and subtract within one currency", func() {
			a := backtest.NewMoney(decimal.RequireFromString("1.50"), "USD")
			b := backtest.NewMoney(decimal.RequireFromString("0.25"), "USD")

			sum, err := a.Add(b)
			Expect(err).To(BeNil())
			Expect(sum.String()).To(Equal("1.75 USD"))

			diff, err := a.Sub(b)
			Expect(err).To(BeNil())
			Expect(diff.String()).To(Equal("1.25 USD"))

			Expect(a.Neg().String()).To(Equal("-1.5 USD"))
		})

		It("should reject cross-currency addition", func() {
			a := backtest.NewMoney(decimal.RequireFromString("1.50"), "USD")
			b := backtest.NewMoney(decimal.RequireFromString("0.25"), "EUR")

			_, err := a.Add(b)
			Expect(err).To(MatchError(backtest.ErrCurrencyMismatch))
			_, err = a.Sub(b)
			Expect(err).To(MatchError(backtest.ErrCurrencyMismatch))
		})

		It("should parse from string and report zero", func() {
			m, err := backtest.MoneyFromString("0.000", "BTC")
			Expect(err).To(BeNil())
			Expect(m.IsZero()).To(BeTrue())
			Expect(backtest.ZeroMoney("USD").IsZero()).To(BeTrue())

			_, err = backtest.MoneyFromString("not-a-number", "BTC")
			Expect(err).ToNot(BeNil())
		})
	})
})

///////////////////////////////////////////////////////////////////////////////

var _ = Describe("Enums", func() {
	Context("round trips", func() {
		It("should round-trip order sides", func() {
			for _, side := range []backtest.OrderSide{
				backtest.OrderSide_Undefined, backtest.OrderSide_Buy, backtest.OrderSide_Sell,
			} {
				parsed, err := backtest.OrderSideFromString(side.String())
				Expect(err).To(BeNil())
				Expect(parsed).To(Equal(side))
			}
			_, err := backtest.OrderSideFromString("SIDEWAYS")
			Expect(err).ToNot(BeNil())
		})

		It("should round-trip position sides", func() {
			for _, side := range []backtest.PositionSide{
				backtest.PositionSide_Flat, backtest.PositionSide_Long, backtest.PositionSide_Short,
			} {
				parsed, err := backtest.PositionSideFromString(side.String())
				Expect(err).To(BeNil())
				Expect(parsed).To(Equal(side))
			}
		})

		It("should parse aggressor sides from both forms", func() {
			parsed, err := backtest.AggressorSideFromString("B")
			Expect(err).To(BeNil())
			Expect(parsed).To(Equal(backtest.AggressorSide_Buyer))

			parsed, err = backtest.AggressorSideFromString("SELLER")
			Expect(err).To(BeNil())
			Expect(parsed).To(Equal(backtest.AggressorSide_Seller))
		})
	})

	Context("side derivation", func() {
		It("should map BUY to LONG and SELL to SHORT", func() {
			side, err := backtest.SideFromOrderSide(backtest.OrderSide_Buy)
			Expect(err).To(BeNil())
			Expect(side).To(Equal(backtest.PositionSide_Long))

			side, err = backtest.SideFromOrderSide(backtest.OrderSide_Sell)
			Expect(err).To(BeNil())
			Expect(side).To(Equal(backtest.PositionSide_Short))

			_, err = backtest.SideFromOrderSide(backtest.OrderSide_Undefined)
			Expect(err).To(MatchError(backtest.ErrInvalidOrderSide))
		})
	})
})

///////////////////////////////////////////////////////////////////////////////

var _ = Describe("Identifiers", func() {
	It("should round-trip instrument ids with dotted symbols", func() {
		id, err := backtest.InstrumentIdFromString("BRK.B.XNYS")
		Expect(err).To(BeNil())
		Expect(id.Symbol).To(Equal("BRK.B"))
		Expect(id.Venue).To(Equal("XNYS"))
		Expect(id.String()).To(Equal("BRK.B.XNYS"))

		_, err = backtest.InstrumentIdFromString("NOVENUE")
		Expect(err).ToNot(BeNil())
	})

	It("should treat empty and NULL sentinels as null", func() {
		Expect(backtest.PositionId("").IsNull()).To(BeTrue())
		Expect(backtest.PositionId(backtest.NullIdValue).IsNull()).To(BeTrue())
		Expect(backtest.PositionId("P-1").IsNull()).To(BeFalse())
		Expect(backtest.InstrumentId{}.IsNull()).To(BeTrue())
	})
})
