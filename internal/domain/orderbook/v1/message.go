package orderbookv1

import "fmt"

// ClientRequestType is the kind of inbound request.
type ClientRequestType uint8

const (
	// ClientRequestInvalid is an uninitialized request.
	ClientRequestInvalid ClientRequestType = iota
	// ClientRequestNew submits a new limit order.
	ClientRequestNew
	// ClientRequestCancel cancels a resting order.
	ClientRequestCancel
)

func (t ClientRequestType) String() string {
	switch t {
	case ClientRequestNew:
		return "NEW"
	case ClientRequestCancel:
		return "CANCEL"
	}
	return "INVALID"
}

// MarshalText implements encoding.TextMarshaler.
func (t ClientRequestType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ClientRequestType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NEW":
		*t = ClientRequestNew
	case "CANCEL":
		*t = ClientRequestCancel
	default:
		*t = ClientRequestInvalid
	}
	return nil
}

// ClientRequest is a typed order instruction from the gateway. For CANCEL,
// Side, Price and Qty are ignored and OrderID must match a prior NEW from
// the same client.
type ClientRequest struct {
	Type         ClientRequestType `json:"type"`
	ClientID     ClientID          `json:"clientID"`
	InstrumentID InstrumentID      `json:"instrumentID"`
	OrderID      OrderID           `json:"orderID"`
	Side         Side              `json:"side"`
	Price        Price             `json:"price"`
	Qty          Qty               `json:"qty"`
}

func (r *ClientRequest) String() string {
	return fmt.Sprintf("ClientRequest[%v client:%d instrument:%d oid:%d side:%v price:%d qty:%d]",
		r.Type, r.ClientID, r.InstrumentID, r.OrderID, r.Side, r.Price, r.Qty)
}

// ClientResponseType is the kind of outbound response.
type ClientResponseType uint8

const (
	// ClientResponseInvalid is an uninitialized response.
	ClientResponseInvalid ClientResponseType = iota
	// ClientResponseAccepted acknowledges a NEW request.
	ClientResponseAccepted
	// ClientResponseFilled reports an execution on either side of a match.
	ClientResponseFilled
	// ClientResponseCanceled acknowledges a successful cancel.
	ClientResponseCanceled
	// ClientResponseCancelRejected reports a cancel of an unknown or
	// already-terminal order.
	ClientResponseCancelRejected
)

func (t ClientResponseType) String() string {
	switch t {
	case ClientResponseAccepted:
		return "ACCEPTED"
	case ClientResponseFilled:
		return "FILLED"
	case ClientResponseCanceled:
		return "CANCELED"
	case ClientResponseCancelRejected:
		return "CANCEL_REJECTED"
	}
	return "INVALID"
}

// MarshalText implements encoding.TextMarshaler.
func (t ClientResponseType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ClientResponseType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ACCEPTED":
		*t = ClientResponseAccepted
	case "FILLED":
		*t = ClientResponseFilled
	case "CANCELED":
		*t = ClientResponseCanceled
	case "CANCEL_REJECTED":
		*t = ClientResponseCancelRejected
	default:
		*t = ClientResponseInvalid
	}
	return nil
}

// ClientResponse reports the outcome of a request back to one client.
// ExecQty is meaningful only for FILLED; EngineOrderID is OrderIDInvalid
// on CANCEL_REJECTED.
type ClientResponse struct {
	Type          ClientResponseType `json:"type"`
	ClientID      ClientID           `json:"clientID"`
	InstrumentID  InstrumentID       `json:"instrumentID"`
	ClientOrderID OrderID            `json:"clientOrderID"`
	EngineOrderID OrderID            `json:"engineOrderID"`
	Side          Side               `json:"side"`
	Price         Price              `json:"price"`
	ExecQty       Qty                `json:"execQty"`
	LeavesQty     Qty                `json:"leavesQty"`
}

func (r *ClientResponse) String() string {
	return fmt.Sprintf("ClientResponse[%v client:%d instrument:%d coid:%d eoid:%d side:%v price:%d exec:%d leaves:%d]",
		r.Type, r.ClientID, r.InstrumentID, r.ClientOrderID, r.EngineOrderID, r.Side, r.Price, r.ExecQty, r.LeavesQty)
}

// MarketUpdateType is the kind of anonymized market-data event.
type MarketUpdateType uint8

const (
	// MarketUpdateInvalid is an uninitialized update.
	MarketUpdateInvalid MarketUpdateType = iota
	// MarketUpdateAdd reports a new resting order.
	MarketUpdateAdd
	// MarketUpdateModify reports a quantity reduction at unchanged priority.
	MarketUpdateModify
	// MarketUpdateCancel reports removal of a resting order.
	MarketUpdateCancel
	// MarketUpdateTrade reports a crossing; it carries no order id.
	MarketUpdateTrade
)

func (t MarketUpdateType) String() string {
	switch t {
	case MarketUpdateAdd:
		return "ADD"
	case MarketUpdateModify:
		return "MODIFY"
	case MarketUpdateCancel:
		return "CANCEL"
	case MarketUpdateTrade:
		return "TRADE"
	}
	return "INVALID"
}

// MarshalText implements encoding.TextMarshaler.
func (t MarketUpdateType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *MarketUpdateType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ADD":
		*t = MarketUpdateAdd
	case "MODIFY":
		*t = MarketUpdateModify
	case "CANCEL":
		*t = MarketUpdateCancel
	case "TRADE":
		*t = MarketUpdateTrade
	default:
		*t = MarketUpdateInvalid
	}
	return nil
}

// MarketUpdate is broadcast to all subscribers of an instrument. It carries
// no client identity; EngineOrderID is OrderIDInvalid for TRADE.
type MarketUpdate struct {
	Type          MarketUpdateType `json:"type"`
	EngineOrderID OrderID          `json:"engineOrderID"`
	InstrumentID  InstrumentID     `json:"instrumentID"`
	Side          Side             `json:"side"`
	Price         Price            `json:"price"`
	Qty           Qty              `json:"qty"`
	Priority      Priority         `json:"priority"`
}

func (u *MarketUpdate) String() string {
	return fmt.Sprintf("MarketUpdate[%v eoid:%d instrument:%d side:%v price:%d qty:%d priority:%d]",
		u.Type, u.EngineOrderID, u.InstrumentID, u.Side, u.Price, u.Qty, u.Priority)
}
