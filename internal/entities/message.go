package entities

// ChatExchange is the transient record of one relayed message.
// Exactly one of BotReply or Err is meaningful: Err == nil means success.
type ChatExchange struct {
	UserMessage string
	BotReply    string
	Err         error
}

// OK reports whether the exchange completed with a reply.
func (e ChatExchange) OK() bool {
	return e.Err == nil
}
