package application

// JournalFilter narrows journal history lookups. Nil or zero fields
// are ignored.
type JournalFilter struct {
	ChainID *uint64
	TxHash  string
	Verdict string
	Limit   int
}
