package mode

// Mode is the retrieval strategy.
type Mode string

// Retrieval mode constants.
const (
	// Nearest returns the k rows with smallest cosine distance to the query,
	// ties broken by stable store order.
	Nearest Mode = "nearest"
	// Diversified re-ranks an oversampled candidate pool with MMR, balancing
	// relevance against redundancy among the selected results.
	Diversified Mode = "diversified"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Nearest || m == Diversified
}
