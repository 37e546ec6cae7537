package domain

// Capability names one {resource, action} pair a plan may grant.
type Capability struct {
	Resource string
	Action   string
}

// Capabilities granted by plans.
var (
	CapCustomCode   = Capability{Resource: "links", Action: "custom_code"}
	CapCustomDomain = Capability{Resource: "domains", Action: "attach"}
)

// CapabilitySet is a set of granted capabilities, resolved once from a plan
// and checked by membership.
type CapabilitySet map[Capability]struct{}

func (s CapabilitySet) Add(c Capability) {
	s[c] = struct{}{}
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}
