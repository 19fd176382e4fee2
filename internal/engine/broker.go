package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantor-lab/quantor-trading/internal/types"
)

// OrderSide is the direction of an order intent.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderIntent describes an order the engine wants executed. The engine
// emits intents without waiting for fills; execution confirmation is the
// broker's concern.
type OrderIntent struct {
	ID           string             `json:"id" yaml:"id"`
	Symbol       string             `json:"symbol" yaml:"symbol"`
	Side         OrderSide          `json:"side" yaml:"side"`
	PositionSide types.PositionSide `json:"position_side" yaml:"position_side"`
	Quantity     float64            `json:"quantity" yaml:"quantity"`
	Price        float64            `json:"price" yaml:"price"`
	Time         time.Time          `json:"time" yaml:"time"`
	Reason       string             `json:"reason" yaml:"reason"`
	Message      string             `json:"message" yaml:"message"`
	StrategyName string             `json:"strategy_name" yaml:"strategy_name"`
}

// Reasons attached to order intents.
const (
	ReasonEntrySignal = "entry_signal"
)

// OrderHandle acknowledges that a broker accepted an intent.
type OrderHandle struct {
	ID         string
	AcceptedAt time.Time
}

// BrokerPosition is a position as the broker reports it. Quantity is
// signed: negative for short exposure.
type BrokerPosition struct {
	Symbol   string
	Quantity float64
	AvgPrice float64
}

// Broker accepts order intents from the engine. Implementations must not
// block on execution; PlaceOrder returns as soon as the intent is accepted.
type Broker interface {
	PlaceOrder(ctx context.Context, intent OrderIntent) (OrderHandle, error)
	GetPositions(ctx context.Context) ([]BrokerPosition, error)
}

// RecordingBroker accepts every intent and keeps it in memory. It is the
// execution model for backtests, where a position opened against an
// unconfirmed intent is carried as provisional.
type RecordingBroker struct {
	mu      sync.Mutex
	intents []OrderIntent
}

func NewRecordingBroker() *RecordingBroker {
	return &RecordingBroker{}
}

func (b *RecordingBroker) PlaceOrder(_ context.Context, intent OrderIntent) (OrderHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}

	b.intents = append(b.intents, intent)

	return OrderHandle{ID: intent.ID, AcceptedAt: intent.Time}, nil
}

// GetPositions replays the accepted intents into net positions per symbol.
// The average price covers only the intents that added exposure.
func (b *RecordingBroker) GetPositions(_ context.Context) ([]BrokerPosition, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	type exposure struct {
		quantity float64
		cost     float64
	}

	net := make(map[string]*exposure)

	var order []string

	for _, intent := range b.intents {
		pos, ok := net[intent.Symbol]
		if !ok {
			pos = &exposure{}
			net[intent.Symbol] = pos
			order = append(order, intent.Symbol)
		}

		delta := intent.Quantity
		if intent.Side == OrderSideSell {
			delta = -delta
		}

		if pos.quantity == 0 || (pos.quantity > 0) == (delta > 0) {
			pos.cost += delta * intent.Price
		} else {
			// Reducing exposure releases cost proportionally.
			pos.cost += delta * pos.cost / pos.quantity
		}

		pos.quantity += delta
	}

	var positions []BrokerPosition

	for _, symbol := range order {
		pos := net[symbol]
		if pos.quantity == 0 {
			continue
		}

		positions = append(positions, BrokerPosition{
			Symbol:   symbol,
			Quantity: pos.quantity,
			AvgPrice: pos.cost / pos.quantity,
		})
	}

	return positions, nil
}

// Intents returns a copy of every accepted intent in acceptance order.
func (b *RecordingBroker) Intents() []OrderIntent {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]OrderIntent, len(b.intents))
	copy(out, b.intents)

	return out
}
