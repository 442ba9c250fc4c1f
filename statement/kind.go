package statement

// Kind tells the engine how to run a finalized statement.
type Kind int

const (
	Update Kind = iota
	Query
	TransactionStart
	TransactionCommit
)

func (k Kind) String() string {
	switch k {
	case Query:
		return "QUERY"
	case Update:
		return "UPDATE"
	case TransactionStart:
		return "TRANSACTION_START"
	case TransactionCommit:
		return "TRANSACTION_COMMIT"
	default:
		return "UNKNOWN"
	}
}

// IsMarker reports whether the kind carries no SQL.
func (k Kind) IsMarker() bool {
	return k == TransactionStart || k == TransactionCommit
}
