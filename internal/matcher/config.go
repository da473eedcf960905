package matcher

// Strategy confidence constants. These are design constants, not tuned
// probabilities; the relative order is what matters.
const (
	confConversation    = 1.0
	confPolicyExact     = 0.95
	confPolicyPartial   = 0.85
	confBrokerSender    = 0.85
	confCustomerCarrier = 0.80
	confCustomerOnly    = 0.60
	confSubjectBase     = 0.50
)

// Config holds the tunable matcher constants. The defaults mirror the
// values the matching rules were written against; they are exposed for
// tuning but are not load-bearing business rules.
type Config struct {
	// AutoAssignThreshold is the confidence at or above which the best
	// match is committed without human review.
	AutoAssignThreshold float64 `koanf:"auto_assign_threshold"`

	// RecipientDamping scales the broker-email confidence down when the
	// broker is the recipient rather than the sender (an outbound query
	// is weaker evidence than a reply).
	RecipientDamping float64 `koanf:"recipient_damping"`

	// SubjectSimilarityThreshold is the minimum Jaccard similarity of
	// normalized subject words for the subject strategy to fire.
	SubjectSimilarityThreshold float64 `koanf:"subject_similarity_threshold"`

	// MinPartialDigits is the run length for the partial policy-number
	// strategy. Known heuristic limitation: with many similar sequential
	// policy numbers, short runs produce false positives.
	MinPartialDigits int `koanf:"min_partial_digits"`
}

// DefaultConfig returns the standard matcher constants.
func DefaultConfig() Config {
	return Config{
		AutoAssignThreshold:        0.75,
		RecipientDamping:           0.9,
		SubjectSimilarityThreshold: 0.6,
		MinPartialDigits:           6,
	}
}
