package domain

// Shipping codes applied during splitting
const (
	// ExpeditedShippingMethod is the free 2-day shipping method code
	ExpeditedShippingMethod = "FX2D"

	// ExpeditedTicketSuffix uniquifies the pick ticket number of an
	// expedited sibling created by a split
	ExpeditedTicketSuffix = "_WSIX"
)

// apparelSKULength and apparelMaxLines bound the optional apparel
// heuristic: a SKU of exactly this length on a ticket with at most this
// many lines is treated as expedited-eligible.
const (
	apparelSKULength = 10
	apparelMaxLines  = 4
)

// SKUSet is a set of SKUs that qualify for expedited shipping
type SKUSet map[string]struct{}

// NewSKUSet builds a SKUSet from a list of SKUs
func NewSKUSet(skus ...string) SKUSet {
	set := make(SKUSet, len(skus))
	for _, sku := range skus {
		set[sku] = struct{}{}
	}
	return set
}

// Contains reports whether sku is in the set
func (s SKUSet) Contains(sku string) bool {
	_, ok := s[sku]
	return ok
}

// EligibilityRule decides whether a line item qualifies for expedited
// shipping given the full ticket and the eligible-SKU set.
type EligibilityRule func(ticket *PickTicket, line PickTicketDetail, eligible SKUSet) bool

// ExplicitSetRule qualifies a line only when its SKU is in the
// eligible-SKU set. This is the default rule.
func ExplicitSetRule(_ *PickTicket, line PickTicketDetail, eligible SKUSet) bool {
	return eligible.Contains(line.SKU)
}

// ApparelHeuristicRule extends ExplicitSetRule: a 10-character SKU on a
// ticket of 4 or fewer lines also qualifies. Business has not confirmed
// this rule; it exists behind an explicit opt-in and is not the default.
func ApparelHeuristicRule(ticket *PickTicket, line PickTicketDetail, eligible SKUSet) bool {
	if eligible.Contains(line.SKU) {
		return true
	}
	return len(line.SKU) == apparelSKULength && len(ticket.LineItems) <= apparelMaxLines
}

// Splitter partitions a pick ticket into expedited and standard work
// orders according to an eligibility rule. Split is pure: it never
// mutates its input and performs no I/O.
type Splitter struct {
	rule EligibilityRule
}

// NewSplitter creates a Splitter with the default explicit-set rule
func NewSplitter() *Splitter {
	return &Splitter{rule: ExplicitSetRule}
}

// NewSplitterWithRule creates a Splitter with a custom eligibility rule
func NewSplitterWithRule(rule EligibilityRule) *Splitter {
	if rule == nil {
		rule = ExplicitSetRule
	}
	return &Splitter{rule: rule}
}

// Split partitions ticket's line items by expedited eligibility and
// returns one or two tickets:
//
//   - every line eligible: the ticket itself with the expedited
//     shipping method, no suffix
//   - no line eligible: the ticket unchanged
//   - mixed: a reduced original holding the remaining lines and an
//     expedited sibling whose pick ticket number carries the
//     uniqueness suffix, in that order
//
// Line items in both results are renumbered 1..k preserving the
// original relative order; their union is exactly the input's lines.
func (s *Splitter) Split(ticket *PickTicket, eligible SKUSet) []*PickTicket {
	var eligibleLines, remainingLines []PickTicketDetail
	for _, line := range ticket.LineItems {
		if s.rule(ticket, line, eligible) {
			eligibleLines = append(eligibleLines, line)
		} else {
			remainingLines = append(remainingLines, line)
		}
	}

	// Whole ticket qualifies, including the single-line case. Ship it
	// expedited under its original pick ticket number.
	if len(remainingLines) == 0 {
		expedited := ticket.CloneWithoutLines()
		expedited.LineItems = append(expedited.LineItems, eligibleLines...)
		expedited.ShippingMethod = ExpeditedShippingMethod
		expedited.RenumberLines()
		return []*PickTicket{expedited}
	}

	if len(eligibleLines) == 0 {
		remainder := ticket.CloneWithoutLines()
		remainder.LineItems = append(remainder.LineItems, remainingLines...)
		remainder.RenumberLines()
		return []*PickTicket{remainder}
	}

	remainder := ticket.CloneWithoutLines()
	remainder.LineItems = append(remainder.LineItems, remainingLines...)
	remainder.RenumberLines()

	expedited := ticket.CloneWithoutLines()
	expedited.LineItems = append(expedited.LineItems, eligibleLines...)
	expedited.ShippingMethod = ExpeditedShippingMethod
	expedited.PickTicketNumber += ExpeditedTicketSuffix
	expedited.RenumberLines()

	return []*PickTicket{remainder, expedited}
}
