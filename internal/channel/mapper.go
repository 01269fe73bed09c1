package channel

// ApplyModelMapping implements spec.md §4.3's "model mapping is applied
// exactly once": if the channel declares a substitute for
// requestedModel, return it; otherwise pass requestedModel through
// unchanged.
func ApplyModelMapping(ch *Channel, requestedModel string) string {
	if substitute, ok := ch.ModelMapping[requestedModel]; ok && substitute != "" {
		return substitute
	}
	return requestedModel
}
