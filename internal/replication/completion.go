package replication

import "errors"

// ErrNotDone is returned by Choose when is_done() is still false.
var ErrNotDone = errors.New("replication: completion policy has not reached a decision")

// CompletionPolicy is a single-threaded state machine: the runner is the
// only writer (Push), and reads its decision once IsDone is true. No
// internal locking is needed because only one goroutine ever touches a
// given policy instance.
type CompletionPolicy interface {
	Push(reply ReplicaReply)
	IsDone() bool
	Choose() (ReplicaReply, error)
}

// FirstValidPolicy is done as soon as any ok reply arrives; it is the
// default, equivalent to KOutOfNPolicy with k = 1.
type FirstValidPolicy struct {
	winner *ReplicaReply
}

func NewFirstValidPolicy() *FirstValidPolicy { return &FirstValidPolicy{} }

func (p *FirstValidPolicy) Push(reply ReplicaReply) {
	if p.winner != nil || !reply.OK {
		return
	}
	r := reply
	p.winner = &r
}

func (p *FirstValidPolicy) IsDone() bool { return p.winner != nil }

func (p *FirstValidPolicy) Choose() (ReplicaReply, error) {
	if p.winner == nil {
		return ReplicaReply{}, ErrNotDone
	}
	return *p.winner, nil
}

// KOutOfNPolicy is done once k ok replies have accumulated; it chooses the
// lowest-latency one among them.
type KOutOfNPolicy struct {
	k  int
	ok []ReplicaReply
}

func NewKOutOfNPolicy(k int) *KOutOfNPolicy {
	if k < 1 {
		k = 1
	}
	return &KOutOfNPolicy{k: k}
}

func (p *KOutOfNPolicy) Push(reply ReplicaReply) {
	if len(p.ok) >= p.k || !reply.OK {
		return
	}
	p.ok = append(p.ok, reply)
}

func (p *KOutOfNPolicy) IsDone() bool { return len(p.ok) >= p.k }

func (p *KOutOfNPolicy) Choose() (ReplicaReply, error) {
	if !p.IsDone() {
		return ReplicaReply{}, ErrNotDone
	}
	return lowestLatency(p.ok), nil
}

// MajorityPolicy is done once some observed value's count reaches
// floor(n/2)+1 over all replies received so far (n grows as replies
// arrive); value equality is the reply's body digest.
type MajorityPolicy struct {
	received []ReplicaReply
	counts   map[string]int
}

func NewMajorityPolicy() *MajorityPolicy {
	return &MajorityPolicy{counts: make(map[string]int)}
}

func (p *MajorityPolicy) Push(reply ReplicaReply) {
	if p.winningValue() != "" {
		return
	}
	p.received = append(p.received, reply)
	if reply.OK {
		p.counts[reply.Value]++
	}
}

func (p *MajorityPolicy) IsDone() bool {
	return p.winningValue() != ""
}

func (p *MajorityPolicy) Choose() (ReplicaReply, error) {
	value := p.winningValue()
	if value == "" {
		return ReplicaReply{}, ErrNotDone
	}
	return lowestLatencyWithValue(p.received, value), nil
}

func (p *MajorityPolicy) winningValue() string {
	n := len(p.received)
	threshold := n/2 + 1
	for value, count := range p.counts {
		if count >= threshold {
			return value
		}
	}
	return ""
}

// QuorumPolicy is done once k replies have been received AND some value's
// count reaches floor(k/2)+1; replies beyond k are dropped.
type QuorumPolicy struct {
	k        int
	received []ReplicaReply
	counts   map[string]int
}

func NewQuorumPolicy(k int) *QuorumPolicy {
	if k < 1 {
		k = 1
	}
	return &QuorumPolicy{k: k, counts: make(map[string]int)}
}

func (p *QuorumPolicy) Push(reply ReplicaReply) {
	if len(p.received) >= p.k {
		return
	}
	p.received = append(p.received, reply)
	if reply.OK {
		p.counts[reply.Value]++
	}
}

func (p *QuorumPolicy) IsDone() bool {
	if len(p.received) < p.k {
		return false
	}
	return p.winningValue() != ""
}

func (p *QuorumPolicy) Choose() (ReplicaReply, error) {
	if !p.IsDone() {
		return ReplicaReply{}, ErrNotDone
	}
	return lowestLatencyWithValue(p.received, p.winningValue()), nil
}

func (p *QuorumPolicy) winningValue() string {
	threshold := p.k/2 + 1
	for value, count := range p.counts {
		if count >= threshold {
			return value
		}
	}
	return ""
}

// NewCompletionPolicy maps a BRS-selected completion strategy name to a
// CompletionPolicy, falling back to first-valid when name is empty. k is
// required (and must be >= 1) for quorum and k_out_of_n.
func NewCompletionPolicy(name string, k int) (CompletionPolicy, error) {
	switch name {
	case "", "first":
		return NewFirstValidPolicy(), nil
	case "k_out_of_n":
		if k < 1 {
			return nil, errMissingCompletionK("k_out_of_n")
		}
		return NewKOutOfNPolicy(k), nil
	case "majority":
		return NewMajorityPolicy(), nil
	case "quorum":
		if k < 1 {
			return nil, errMissingCompletionK("quorum")
		}
		return NewQuorumPolicy(k), nil
	default:
		return nil, errUnknownCompletionPolicy(name)
	}
}

func lowestLatency(replies []ReplicaReply) ReplicaReply {
	best := replies[0]
	for _, r := range replies[1:] {
		if r.LatencyMS < best.LatencyMS {
			best = r
		}
	}
	return best
}

func lowestLatencyWithValue(replies []ReplicaReply, value string) ReplicaReply {
	var best ReplicaReply
	found := false
	for _, r := range replies {
		if !r.OK || r.Value != value {
			continue
		}
		if !found || r.LatencyMS < best.LatencyMS {
			best = r
			found = true
		}
	}
	return best
}
