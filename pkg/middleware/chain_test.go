package middleware

import (
	"context"
	"testing"

	"github.com/peter-kozarec/flowdelta/pkg/bus"
	"github.com/peter-kozarec/flowdelta/pkg/common"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_Chain(t *testing.T) {
	type handler func(int) int

	add10 := func(h handler) handler {
		return func(n int) int { return h(n) + 10 }
	}
	multiply2 := func(h handler) handler {
		return func(n int) int { return h(n) * 2 }
	}

	chained := Chain(add10, multiply2)(func(n int) int { return n })
	assert.Equal(t, 20, chained(5))
}

func TestMiddleware_ChainEmpty(t *testing.T) {
	type handler func(string) string

	chained := Chain[handler]()(func(s string) string { return s })
	assert.Equal(t, "test", chained("test"))
}

func TestMiddleware_ChainOrder(t *testing.T) {
	var order []string

	wrap := func(name string) func(bus.PositionClosedEventHandler) bus.PositionClosedEventHandler {
		return func(h bus.PositionClosedEventHandler) bus.PositionClosedEventHandler {
			return func(ctx context.Context, trade common.Trade) {
				order = append(order, name)
				h(ctx, trade)
			}
		}
	}

	base := func(context.Context, common.Trade) { order = append(order, "base") }

	chained := Chain(wrap("A"), wrap("B"), wrap("C"))(base)
	chained(context.Background(), common.Trade{})

	assert.Equal(t, []string{"A", "B", "C", "base"}, order)
}

func TestMiddleware_ChainLarge(t *testing.T) {
	type handler func(int) int

	increment := func(h handler) handler {
		return func(n int) int { return h(n) + 1 }
	}

	var middlewares []func(handler) handler
	for i := 0; i < 100; i++ {
		middlewares = append(middlewares, increment)
	}

	assert.Equal(t, 100, Chain(middlewares...)(func(n int) int { return n })(0))
}

func BenchmarkMiddleware_Chain(b *testing.B) {
	type handler func(int) int

	add := func(n int) func(handler) handler {
		return func(h handler) handler {
			return func(x int) int { return h(x) + n }
		}
	}

	chained := Chain(add(1), add(2), add(3))(func(n int) int { return n })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chained(0)
	}
}
