package coordinator

// Kind identifies a user action.
type Kind int

const (
	KindAddCard Kind = iota
	KindDeleteCard
	KindUpdateCard
	KindMoveCard
	KindAddColumn
	KindDeleteColumn
	KindRenameColumn
	KindMoveColumn
	KindRenameBoard
	KindFixOrders
)

var kindNames = map[Kind]string{
	KindAddCard:      "add_card",
	KindDeleteCard:   "delete_card",
	KindUpdateCard:   "update_card",
	KindMoveCard:     "move_card",
	KindAddColumn:    "add_column",
	KindDeleteColumn: "delete_column",
	KindRenameColumn: "rename_column",
	KindMoveColumn:   "move_column",
	KindRenameBoard:  "rename_board",
	KindFixOrders:    "fix_orders",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Strategy is how an action's local effect is reconciled with the remote call.
type Strategy int

const (
	// StrategyOptimistic patches local state first, calls the remote side in
	// the background, then merges the result or resyncs on failure.
	StrategyOptimistic Strategy = iota

	// StrategyConfirmFirst calls the remote side first and patches local state
	// only on success. Failure leaves the tree unchanged.
	StrategyConfirmFirst

	// StrategyCascadingConfirm is StrategyConfirmFirst for removals that take
	// children with them.
	StrategyCascadingConfirm
)

func (s Strategy) String() string {
	switch s {
	case StrategyOptimistic:
		return "optimistic"
	case StrategyConfirmFirst:
		return "confirm_first"
	case StrategyCascadingConfirm:
		return "cascading_confirm"
	default:
		return "unknown"
	}
}

var policy = map[Kind]Strategy{
	KindAddCard:      StrategyOptimistic,
	KindDeleteCard:   StrategyOptimistic,
	KindMoveCard:     StrategyOptimistic,
	KindMoveColumn:   StrategyOptimistic,
	KindUpdateCard:   StrategyConfirmFirst,
	KindAddColumn:    StrategyConfirmFirst,
	KindRenameColumn: StrategyConfirmFirst,
	KindRenameBoard:  StrategyConfirmFirst,
	KindFixOrders:    StrategyConfirmFirst,
	KindDeleteColumn: StrategyCascadingConfirm,
}

// StrategyFor returns the reconciliation strategy for k. Unknown kinds are
// confirm-first, which never leaves unconfirmed local state behind.
func StrategyFor(k Kind) Strategy {
	if s, ok := policy[k]; ok {
		return s
	}
	return StrategyConfirmFirst
}
