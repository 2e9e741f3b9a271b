package orderbookv1

// Sink receives the responses and market updates a book produces. The book
// calls it synchronously from the matching path, so implementations must
// not block, lock or allocate; they must preserve emission order exactly.
type Sink interface {
	SendClientResponse(response *ClientResponse)
	SendMarketUpdate(update *MarketUpdate)
}
