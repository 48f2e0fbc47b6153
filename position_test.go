// Copyright (c) 2025 Neomantra Corp

package backtest_test

import (
	"fmt"

	backtest "github.com/NimbleMarkets/backtest-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

///////////////////////////////////////////////////////////////////////////////

var fillSeq int

// fill builds an OrderFilled with sensible defaults and a unique execution id.
func fill(side backtest.OrderSide, qty string, px string, execNs int64) backtest.OrderFilled {
	fillSeq++
	return backtest.OrderFilled{
		ClientOrderId: backtest.ClientOrderId(fmt.Sprintf("O-%d", fillSeq)),
		OrderId:       backtest.OrderId(fmt.Sprintf("V-%d", fillSeq)),
		ExecutionId:   backtest.ExecutionId(fmt.Sprintf("E-%d", fillSeq)),
		PositionId:    "P-1",
		StrategyId:    "S-1",
		AccountId:     "A-1",
		InstrumentId:  eurusd,
		OrderSide:     side,
		FillPrice:     decimal.RequireFromString(px),
		FillQty:       decimal.RequireFromString(qty),
		Currency:      "USD",
		Commission:    backtest.ZeroMoney("USD"),
		ExecutionNs:   execNs,
	}
}

func mustPosition(event backtest.OrderFilled) *backtest.Position {
	position, err := backtest.NewPosition(event)
	Expect(err).To(BeNil())
	return position
}

func mustApply(p *backtest.Position, event backtest.OrderFilled) {
	Expect(p.Apply(event)).To(Succeed())
}

///////////////////////////////////////////////////////////////////////////////

var _ = Describe("Position", func() {
	Context("construction", func() {
		It("should open LONG from a BUY fill", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.0000", 1_000))
			Expect(p.Side()).To(Equal(backtest.PositionSide_Long))
			Expect(p.IsLong()).To(BeTrue())
			Expect(p.IsOpen()).To(BeTrue())
			Expect(p.EntrySide()).To(Equal(backtest.OrderSide_Buy))
			Expect(p.Quantity().String()).To(Equal("100"))
			Expect(p.AvgPxOpen().String()).To(Equal("1"))
			Expect(p.OpenedTsNs()).To(Equal(int64(1_000)))
			Expect(p.ClosedTsNs()).To(Equal(int64(0)))
		})

		It("should open SHORT from a SELL fill", func() {
			p := mustPosition(fill(backtest.OrderSide_Sell, "50", "1.1000", 1_000))
			Expect(p.Side()).To(Equal(backtest.PositionSide_Short))
			Expect(p.IsShort()).To(BeTrue())
			Expect(p.RelativeQty().String()).To(Equal("-50"))
			Expect(p.Quantity().String()).To(Equal("50"))
		})

		It("should reject a null position id", func() {
			event := fill(backtest.OrderSide_Buy, "100", "1.0000", 1_000)
			event.PositionId = ""
			_, err := backtest.NewPosition(event)
			Expect(err).To(MatchError(backtest.ErrNullIdentifier))
		})

		It("should reject a null strategy id", func() {
			event := fill(backtest.OrderSide_Buy, "100", "1.0000", 1_000)
			event.StrategyId = backtest.NullIdValue
			_, err := backtest.NewPosition(event)
			Expect(err).To(MatchError(backtest.ErrNullIdentifier))
		})

		It("should reject an undefined order side", func() {
			event := fill(backtest.OrderSide_Undefined, "100", "1.0000", 1_000)
			_, err := backtest.NewPosition(event)
			Expect(err).To(MatchError(backtest.ErrInvalidOrderSide))
		})
	})

	Context("round trips", func() {
		It("should realize (close - open) * qty on a LONG round trip", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.0000", 1_000))
			closing := fill(backtest.OrderSide_Sell, "100", "1.0010", 2_000)
			mustApply(p, closing)

			Expect(p.Side()).To(Equal(backtest.PositionSide_Flat))
			Expect(p.IsClosed()).To(BeTrue())
			Expect(p.RealizedPnl().Amount.String()).To(Equal("0.1"))
			Expect(p.RealizedPoints().String()).To(Equal("0.001"))
			Expect(p.RealizedReturn().String()).To(Equal("0.001"))
			Expect(p.PeakQty().String()).To(Equal("100"))
			Expect(p.ClosedTsNs()).To(Equal(closing.ExecutionNs))
			Expect(p.OpenDurationNs()).To(Equal(int64(1_000)))
		})

		It("should negate the P&L on a SHORT round trip", func() {
			p := mustPosition(fill(backtest.OrderSide_Sell, "100", "1.0000", 1_000))
			mustApply(p, fill(backtest.OrderSide_Buy, "100", "1.0010", 2_000))

			Expect(p.Side()).To(Equal(backtest.PositionSide_Flat))
			Expect(p.RealizedPnl().Amount.String()).To(Equal("-0.1"))
		})

		It("should track weighted averages through scale-in and scale-out", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "50", "1.00", 1_000))
			mustApply(p, fill(backtest.OrderSide_Buy, "50", "1.10", 2_000))
			Expect(p.AvgPxOpen().String()).To(Equal("1.05"))
			Expect(p.PeakQty().String()).To(Equal("100"))

			mustApply(p, fill(backtest.OrderSide_Sell, "50", "1.20", 3_000))
			avgClose, ok := p.AvgPxClose()
			Expect(ok).To(BeTrue())
			Expect(avgClose.String()).To(Equal("1.2"))

			mustApply(p, fill(backtest.OrderSide_Sell, "50", "1.30", 4_000))
			avgClose, _ = p.AvgPxClose()
			Expect(avgClose.String()).To(Equal("1.25"))

			Expect(p.Side()).To(Equal(backtest.PositionSide_Flat))
			Expect(p.PeakQty().String()).To(Equal("100"))
			Expect(p.RealizedPnl().Amount.String()).To(Equal("20"))
		})

		It("should quote inverse P&L as return times quantity", func() {
			opening := fill(backtest.OrderSide_Buy, "1000", "10.00", 1_000)
			opening.IsInverse = true
			p := mustPosition(opening)

			closing := fill(backtest.OrderSide_Sell, "1000", "20.00", 2_000)
			closing.IsInverse = true
			mustApply(p, closing)

			Expect(p.RealizedReturn().String()).To(Equal("1"))
			Expect(p.RealizedPnl().Amount.String()).To(Equal("1000"))
		})
	})

	Context("invariants", func() {
		It("should keep quantity equal to |relativeQty| after every fill", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "30", "1.00", 1_000))
			events := []backtest.OrderFilled{
				fill(backtest.OrderSide_Buy, "20", "1.01", 2_000),
				fill(backtest.OrderSide_Sell, "40", "1.02", 3_000),
				fill(backtest.OrderSide_Sell, "10", "1.03", 4_000),
				fill(backtest.OrderSide_Buy, "25", "1.04", 5_000),
			}
			for _, event := range events {
				mustApply(p, event)
				Expect(p.Quantity().String()).To(Equal(p.RelativeQty().Abs().String()))
				switch {
				case p.RelativeQty().IsPositive():
					Expect(p.Side()).To(Equal(backtest.PositionSide_Long))
				case p.RelativeQty().IsNegative():
					Expect(p.Side()).To(Equal(backtest.PositionSide_Short))
				default:
					Expect(p.Side()).To(Equal(backtest.PositionSide_Flat))
				}
				Expect(p.PeakQty().GreaterThanOrEqual(p.Quantity())).To(BeTrue())
			}
		})

		It("should reject a duplicate execution id and leave state unchanged", func() {
			event := fill(backtest.OrderSide_Buy, "100", "1.0000", 1_000)
			p := mustPosition(event)

			err := p.Apply(event)
			Expect(err).To(MatchError(backtest.ErrDuplicateExecution))
			Expect(p.EventCount()).To(Equal(1))
			Expect(p.Quantity().String()).To(Equal("100"))
			Expect(p.ExecutionIds()).To(Equal([]backtest.ExecutionId{event.ExecutionId}))
		})

		It("should keep closed_ts stale when a flat position reopens", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.00", 1_000))
			mustApply(p, fill(backtest.OrderSide_Sell, "100", "1.01", 2_000))
			Expect(p.ClosedTsNs()).To(Equal(int64(2_000)))
			Expect(p.OpenDurationNs()).To(Equal(int64(1_000)))

			// Reopening does not clear the close markers; consumers of
			// OpenDurationNs observe the first round trip's values.
			mustApply(p, fill(backtest.OrderSide_Buy, "50", "1.02", 3_000))
			Expect(p.IsOpen()).To(BeTrue())
			Expect(p.ClosedTsNs()).To(Equal(int64(2_000)))
			Expect(p.OpenDurationNs()).To(Equal(int64(1_000)))
		})

		It("should verify execution timestamps arrive non-decreasing", func() {
			// Monotonic ExecutionNs is a caller precondition; this documents it.
			p := mustPosition(fill(backtest.OrderSide_Buy, "10", "1.00", 1_000))
			mustApply(p, fill(backtest.OrderSide_Buy, "10", "1.00", 1_000))
			mustApply(p, fill(backtest.OrderSide_Sell, "20", "1.00", 2_000))
			events := p.Events()
			for i := 1; i < len(events); i++ {
				Expect(events[i].ExecutionNs).To(BeNumerically(">=", events[i-1].ExecutionNs))
			}
		})
	})

	Context("commissions", func() {
		It("should accumulate per currency and mirror the quote currency", func() {
			opening := fill(backtest.OrderSide_Buy, "100", "1.00", 1_000)
			opening.Commission = backtest.NewMoney(decimal.RequireFromString("2.50"), "USD")
			p := mustPosition(opening)

			second := fill(backtest.OrderSide_Buy, "100", "1.00", 2_000)
			second.Commission = backtest.NewMoney(decimal.RequireFromString("0.0001"), "BTC")
			mustApply(p, second)

			third := fill(backtest.OrderSide_Sell, "200", "1.10", 3_000)
			third.Commission = backtest.NewMoney(decimal.RequireFromString("1.50"), "USD")
			mustApply(p, third)

			Expect(p.Commission().String()).To(Equal("4 USD"))
			commissions := p.Commissions()
			Expect(len(commissions)).To(Equal(2))
			Expect(commissions[0].String()).To(Equal("0.0001 BTC"))
			Expect(commissions[1].String()).To(Equal("4 USD"))
		})

		It("should net quote-currency commissions out of realized P&L", func() {
			opening := fill(backtest.OrderSide_Buy, "100", "1.0000", 1_000)
			opening.Commission = backtest.NewMoney(decimal.RequireFromString("0.02"), "USD")
			p := mustPosition(opening)

			closing := fill(backtest.OrderSide_Sell, "100", "1.0010", 2_000)
			closing.Commission = backtest.NewMoney(decimal.RequireFromString("0.03"), "USD")
			mustApply(p, closing)

			// 0.10 gross minus 0.05 commissions.
			Expect(p.RealizedPnl().Amount.String()).To(Equal("0.05"))
		})
	})

	Context("P&L queries", func() {
		It("should return exactly zero unrealized P&L when flat", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.00", 1_000))
			mustApply(p, fill(backtest.OrderSide_Sell, "100", "1.05", 2_000))

			unrealized := p.UnrealizedPnl(decimal.RequireFromString("1.10"))
			Expect(unrealized.IsZero()).To(BeTrue())
			Expect(unrealized.Currency).To(Equal(backtest.Currency("USD")))
		})

		It("should mark open P&L against the last price", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.00", 1_000))
			unrealized := p.UnrealizedPnl(decimal.RequireFromString("1.02"))
			Expect(unrealized.Amount.String()).To(Equal("2"))

			total := p.TotalPnl(decimal.RequireFromString("1.02"))
			Expect(total.Amount.String()).To(Equal("2"))
		})

		It("should value notional as qty * last for linear instruments", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.00", 1_000))
			notional := p.NotionalValue(decimal.RequireFromString("1.25"))
			Expect(notional.Amount.String()).To(Equal("125"))
		})

		It("should value notional as qty for inverse instruments", func() {
			opening := fill(backtest.OrderSide_Buy, "100", "10.00", 1_000)
			opening.IsInverse = true
			p := mustPosition(opening)
			notional := p.NotionalValue(decimal.RequireFromString("12.00"))
			Expect(notional.Amount.String()).To(Equal("100"))
		})
	})

	Context("queries", func() {
		It("should deduplicate order ids and keep execution ids in fill order", func() {
			first := fill(backtest.OrderSide_Buy, "50", "1.00", 1_000)
			p := mustPosition(first)

			partial := fill(backtest.OrderSide_Buy, "50", "1.00", 2_000)
			partial.ClientOrderId = first.ClientOrderId
			partial.OrderId = first.OrderId
			mustApply(p, partial)

			closing := fill(backtest.OrderSide_Sell, "100", "1.10", 3_000)
			mustApply(p, closing)

			Expect(p.EventCount()).To(Equal(3))
			Expect(p.ClientOrderIds()).To(Equal([]backtest.ClientOrderId{
				first.ClientOrderId, closing.ClientOrderId,
			}))
			Expect(p.OrderIds()).To(Equal([]backtest.OrderId{
				first.OrderId, closing.OrderId,
			}))
			Expect(p.ExecutionIds()).To(Equal([]backtest.ExecutionId{
				first.ExecutionId, partial.ExecutionId, closing.ExecutionId,
			}))
			Expect(p.FromOrder()).To(Equal(first.ClientOrderId))
			Expect(p.LastEvent()).To(Equal(closing))
		})

		It("should render the status string", func() {
			p := mustPosition(fill(backtest.OrderSide_Buy, "100", "1.00", 1_000))
			Expect(p.String()).To(Equal("LONG 100 EUR/USD.SIM"))

			mustApply(p, fill(backtest.OrderSide_Sell, "100", "1.00", 2_000))
			Expect(p.String()).To(Equal("FLAT EUR/USD.SIM"))
		})
	})
})
