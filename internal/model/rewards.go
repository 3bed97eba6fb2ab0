package model

// StandardRewardModel carries optional state rewards and optional transition
// rewards. Bisimulation minimization requires pure state rewards; transition
// rewards must be converted upstream before a model reaches the
// decomposition.
type StandardRewardModel[V any] struct {
	stateRewards      []V
	transitionRewards *SparseMatrix[V]
}

// NewStateRewardModel returns a reward model holding only state rewards.
func NewStateRewardModel[V any](stateRewards []V) *StandardRewardModel[V] {
	return &StandardRewardModel[V]{stateRewards: stateRewards}
}

// NewRewardModel returns a reward model with state and/or transition
// rewards; either may be nil.
func NewRewardModel[V any](stateRewards []V, transitionRewards *SparseMatrix[V]) *StandardRewardModel[V] {
	return &StandardRewardModel[V]{stateRewards: stateRewards, transitionRewards: transitionRewards}
}

// HasStateRewards reports whether a state-reward vector is present.
func (r *StandardRewardModel[V]) HasStateRewards() bool { return r.stateRewards != nil }

// HasTransitionRewards reports whether transition rewards are present.
func (r *StandardRewardModel[V]) HasTransitionRewards() bool { return r.transitionRewards != nil }

// HasOnlyStateRewards reports whether the model consists of state rewards
// alone.
func (r *StandardRewardModel[V]) HasOnlyStateRewards() bool {
	return r.stateRewards != nil && r.transitionRewards == nil
}

// StateReward returns the reward of the given state.
func (r *StandardRewardModel[V]) StateReward(state int) V { return r.stateRewards[state] }

// StateRewards returns the full state-reward vector. The slice aliases the
// reward model.
func (r *StandardRewardModel[V]) StateRewards() []V { return r.stateRewards }
