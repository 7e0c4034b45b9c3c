package common

type SignalValue int8

const (
	SignalShort SignalValue = -1
	SignalNone  SignalValue = 0
	SignalLong  SignalValue = 1
)

func (s SignalValue) String() string {
	switch s {
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	default:
		return "none"
	}
}
