package orderbookv1

import "math"

// Identifiers are fixed-width integers with their maximum value reserved as
// an "invalid" sentinel, never used as real data.

// OrderID identifies an order, either client-assigned or engine-assigned.
type OrderID uint64

// OrderIDInvalid marks an unset or unknown order id.
const OrderIDInvalid OrderID = math.MaxUint64

// InstrumentID identifies one tradable symbol and indexes the engine's
// fixed array of order books.
type InstrumentID uint32

// InstrumentIDInvalid marks an unset instrument id.
const InstrumentIDInvalid InstrumentID = math.MaxUint32

// ClientID identifies a trading client.
type ClientID uint32

// ClientIDInvalid marks an unset client id.
const ClientIDInvalid ClientID = math.MaxUint32

// Price is a fixed-point price. Integer representation keeps matching
// deterministic and comparisons exact.
type Price int64

// PriceInvalid marks an unset price.
const PriceInvalid Price = math.MaxInt64

// Qty is an order quantity. Always > 0 while an order rests in the book.
type Qty uint32

// QtyInvalid marks an unset quantity.
const QtyInvalid Qty = math.MaxUint32

// Priority is the FIFO position of an order within its price level.
// Lower priority matches first.
type Priority uint64

// PriorityInvalid marks an unset priority.
const PriorityInvalid Priority = math.MaxUint64

// Side is the order side. The numeric values allow signed position math
// (buy flow positive, sell flow negative).
type Side int8

const (
	// SideInvalid is an uninitialized side.
	SideInvalid Side = 0
	// SideBuy is the bid side.
	SideBuy Side = 1
	// SideSell is the ask side.
	SideSell Side = -1
)

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	return -s
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	}
	return "INVALID"
}

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BUY":
		*s = SideBuy
	case "SELL":
		*s = SideSell
	default:
		*s = SideInvalid
	}
	return nil
}
