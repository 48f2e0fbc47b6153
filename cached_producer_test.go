// Copyright (c) 2025 Neomantra Corp

package backtest_test

import (
	backtest "github.com/NimbleMarkets/backtest-go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CachedProducer", func() {
	newContainer := func() *backtest.DataContainer {
		container := backtest.NewDataContainer()
		container.AddQuoteColumns(eurusd, quoteColsAt(1_000, 2_000, 3_000, 4_000))
		container.AddTradeColumns(eurusd, tradeColsAt(1_000, 2_500, 4_000))
		container.AddQuoteColumns(gbpusd, quoteColsAt(1_500, 3_500))
		return container
	}

	Context("replay idempotence", func() {
		It("should emit identical sequences across Reset and re-Setup", func() {
			producer := backtest.NewCachedProducer(newContainer())
			Expect(producer.Setup(1_000, 4_000)).To(Succeed())
			l1 := drainTicks(producer)

			producer.Reset()
			l2 := drainTicks(producer)

			Expect(producer.Setup(1_000, 4_000)).To(Succeed())
			l3 := drainTicks(producer)

			Expect(l2).To(Equal(l1))
			Expect(l3).To(Equal(l1))
		})

		It("should match the uncached producer's emission order", func() {
			container := newContainer()

			uncached := backtest.NewProducer(container)
			Expect(uncached.Setup(container.MinTsNs(), container.MaxTsNs())).To(Succeed())
			want := drainTicks(uncached)

			cached := backtest.NewCachedProducer(container)
			Expect(cached.Setup(container.MinTsNs(), container.MaxTsNs())).To(Succeed())
			got := drainTicks(cached)

			Expect(got).To(Equal(want))
		})
	})

	Context("window resolution", func() {
		It("should rebind the window without rebuilding the cache", func() {
			producer := backtest.NewCachedProducer(newContainer())
			Expect(producer.Setup(1_000, 4_000)).To(Succeed())
			full := drainTicks(producer)
			Expect(len(full)).To(Equal(9))

			Expect(producer.Setup(2_000, 3_000)).To(Succeed())
			window := drainTicks(producer)
			Expect(len(window)).To(Equal(3))
			for _, tick := range window {
				Expect(tick.Timestamp()).To(BeNumerically(">=", 2_000))
				Expect(tick.Timestamp()).To(BeNumerically("<=", 3_000))
			}
		})

		It("should reflect window emptiness in HasData", func() {
			producer := backtest.NewCachedProducer(newContainer())
			Expect(producer.Setup(1_000, 4_000)).To(Succeed())
			Expect(producer.HasData()).To(BeTrue())

			// A window between ticks holds nothing.
			Expect(producer.Setup(2_600, 2_900)).To(Succeed())
			Expect(producer.HasData()).To(BeFalse())
			Expect(producer.Next()).To(BeNil())
		})

		It("should reject invalid windows", func() {
			producer := backtest.NewCachedProducer(newContainer())
			Expect(producer.Setup(4_000, 1_000)).To(MatchError(backtest.ErrWindowInvalid))
			Expect(producer.Setup(500, 1_000)).To(MatchError(backtest.ErrWindowInvalid))
		})
	})

	Context("lifecycle", func() {
		It("should rebuild after Clear", func() {
			producer := backtest.NewCachedProducer(newContainer())
			Expect(producer.Setup(1_000, 4_000)).To(Succeed())
			first := drainTicks(producer)

			producer.Clear()
			Expect(producer.HasData()).To(BeFalse())

			Expect(producer.Setup(1_000, 4_000)).To(Succeed())
			second := drainTicks(producer)
			Expect(second).To(Equal(first))
		})
	})
})
