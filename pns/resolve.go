package pns

// Resolve fills in Eve's measurements for the rounds of h selected by policy,
// assuming bases have been made public. Eve measures each held photon in
// Alice's basis and so learns Alice's bit exactly. It returns the number of
// rounds resolved.
//
// Resolved rounds are never revisited, so calling Resolve again resolves
// nothing new.
func Resolve(h *History, policy ResolvePolicy) int {
	n := 0
	for i := range h.rounds {
		r := &h.rounds[i]
		if !r.Unresolved() {
			continue
		}
		if policy != ResolveAll && !r.Deferred() {
			continue
		}
		r.EveBasis = r.AliceBasis
		r.EveBit = r.AliceBit
		r.EveState = EveResolved
		n++
	}
	return n
}
